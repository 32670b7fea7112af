package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signHS256(t *testing.T, claims ledgerJWTClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func TestHS256VerifierAcceptsValidToken(t *testing.T) {
	verifier, err := NewHS256Verifier(testSecret, "giftme-auth")
	require.NoError(t, err)
	raw := signHS256(t, ledgerJWTClaims{
		Role: "Organizer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "org-1",
			Issuer:    "giftme-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "org-1", claims.SubjectID)
	require.Equal(t, "organizer", claims.Role)
}

func TestHS256VerifierRejects(t *testing.T) {
	verifier, err := NewHS256Verifier(testSecret, "giftme-auth")
	require.NoError(t, err)

	expired := signHS256(t, ledgerJWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "org-1",
		Issuer:    "giftme-auth",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	_, err = verifier.Verify(expired)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	wrongIssuer := signHS256(t, ledgerJWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "org-1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	_, err = verifier.Verify(wrongIssuer)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = NewHS256Verifier("short", "")
	require.Error(t, err)
}

func TestRS256Verifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	verifier, err := NewRS256Verifier(publicPEM, "")
	require.NoError(t, err)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, ledgerJWTClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(key)
	require.NoError(t, err)
	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)

	// An HS256 token must not pass an RS256 verifier.
	_, err = verifier.Verify(signHS256(t, ledgerJWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ops-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSignatureVerifier(t *testing.T) {
	verifier, err := NewSHA512Verifier("whsec")
	require.NoError(t, err)
	body := []byte(`{"transactionRef":"T1","grossAmount":1000}`)
	signature := verifier.Sign(body)

	require.NoError(t, verifier.Verify(body, signature))
	require.ErrorIs(t, verifier.Verify([]byte(`{"transactionRef":"T1","grossAmount":9000}`), signature), domain.ErrInvalidSignature)
	require.ErrorIs(t, verifier.Verify(body, ""), domain.ErrInvalidSignature)
	require.ErrorIs(t, verifier.Verify(body, "zz"), domain.ErrInvalidSignature)

	_, err = NewSHA256Verifier("")
	require.Error(t, err)
}

func TestOperatorKeyring(t *testing.T) {
	hash, err := HashOperatorSecret("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	keyring, err := NewOperatorKeyring([]string{"ops-1:" + hash})
	require.NoError(t, err)

	id, err := keyring.Authenticate("ops-1.s3cret")
	require.NoError(t, err)
	require.Equal(t, "ops-1", id)

	_, err = keyring.Authenticate("ops-1.wrong")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = keyring.Authenticate("ops-2.s3cret")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = keyring.Authenticate("no-dot")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = NewOperatorKeyring([]string{"broken"})
	require.Error(t, err)
}
