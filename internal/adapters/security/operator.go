package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// OperatorKeyring authenticates operator API keys of the form "<id>.<secret>"
// against bcrypt hashes configured as "<id>:<hash>".
type OperatorKeyring struct {
	hashes map[string][]byte
}

func NewOperatorKeyring(entries []string) (*OperatorKeyring, error) {
	hashes := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		id, hash, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || strings.TrimSpace(id) == "" || strings.TrimSpace(hash) == "" {
			return nil, fmt.Errorf("operator key entry must be <id>:<bcrypt-hash>")
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("operator key %s: %w", id, err)
		}
		hashes[strings.TrimSpace(id)] = []byte(hash)
	}
	return &OperatorKeyring{hashes: hashes}, nil
}

// HashOperatorSecret produces the hash half of a keyring entry.
func HashOperatorSecret(secret string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Authenticate returns the operator id the key belongs to.
func (k *OperatorKeyring) Authenticate(presented string) (string, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(presented), ".")
	if !ok || id == "" || secret == "" {
		return "", fmt.Errorf("%w: malformed operator key", domain.ErrUnauthorized)
	}
	hash, known := k.hashes[id]
	if !known {
		return "", fmt.Errorf("%w: unknown operator key", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", fmt.Errorf("%w: operator key mismatch", domain.ErrUnauthorized)
		}
		return "", err
	}
	return id, nil
}

func (k *OperatorKeyring) Empty() bool {
	return len(k.hashes) == 0
}
