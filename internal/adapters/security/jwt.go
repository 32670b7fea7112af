package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the caller identity carried by an organizer bearer token.
type Claims struct {
	SubjectID string
	Role      string
	ExpiresAt time.Time
}

type ledgerJWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens issued by the identity service. It
// holds either an RS256 public key or an HS256 shared secret, never both.
type TokenVerifier struct {
	publicKey *rsa.PublicKey
	secret    []byte
	issuer    string
}

func NewRS256Verifier(publicKeyPEM, issuer string) (*TokenVerifier, error) {
	if strings.TrimSpace(publicKeyPEM) == "" {
		return nil, errors.New("jwt public key is required")
	}
	pub, err := parseRSAPublic(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &TokenVerifier{publicKey: pub, issuer: issuer}, nil
}

func NewHS256Verifier(secret, issuer string) (*TokenVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt hs256 secret must be at least 32 bytes")
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}, nil
}

func (v *TokenVerifier) Verify(raw string) (Claims, error) {
	method := jwt.SigningMethodHS256.Alg()
	if v.publicKey != nil {
		method = jwt.SigningMethodRS256.Alg()
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{method}), jwt.WithLeeway(30 * time.Second), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &ledgerJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != method {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*ledgerJWTClaims)
	if !ok || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	out := Claims{
		SubjectID: claims.Subject,
		Role:      strings.ToLower(strings.TrimSpace(claims.Role)),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}

func parseRSAPublic(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid pem")
	}
	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not rsa")
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}
