// Package ownership issues and checks the proofs that let a caller manage a post.
package ownership

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"huellas/internal/models"
)

// DefaultCost is the bcrypt cost used when none is configured.
const DefaultCost = 10

const (
	secretMin  = 100000
	secretSpan = 900000
)

// GenerateSecret returns a uniformly random 6-digit code in [100000, 999999].
func GenerateSecret() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(secretSpan))
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+secretMin), nil
}

// Hasher hashes secrets with a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// NewHasher clamps cost into bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// HashSecret returns the bcrypt hash of secret.
func (h *Hasher) HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", models.NewValidationError("secret is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// HashSecret hashes with DefaultCost.
func HashSecret(secret string) (string, error) {
	return NewHasher(DefaultCost).HashSecret(secret)
}

// VerifySecret reports whether candidate matches hash.
func VerifySecret(candidate, hash string) bool {
	if candidate == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
