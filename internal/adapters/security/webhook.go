package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
)

// SignatureVerifier checks the hex HMAC a gateway attaches to its webhook
// body. The body must be verified byte-for-byte before it is decoded.
type SignatureVerifier struct {
	secret  []byte
	newHash func() hash.Hash
}

func NewSHA512Verifier(secret string) (*SignatureVerifier, error) {
	return newSignatureVerifier(secret, sha512.New)
}

func NewSHA256Verifier(secret string) (*SignatureVerifier, error) {
	return newSignatureVerifier(secret, sha256.New)
}

func newSignatureVerifier(secret string, newHash func() hash.Hash) (*SignatureVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &SignatureVerifier{secret: []byte(secret), newHash: newHash}, nil
}

func (v *SignatureVerifier) Sign(body []byte) string {
	mac := hmac.New(v.newHash, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *SignatureVerifier) Verify(body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("%w: missing signature", domain.ErrInvalidSignature)
	}
	presented, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return fmt.Errorf("%w: malformed signature", domain.ErrInvalidSignature)
	}
	mac := hmac.New(v.newHash, v.secret)
	mac.Write(body)
	if !hmac.Equal(presented, mac.Sum(nil)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
