// Package auth hashes and verifies user passwords.
package auth

import (
	"errors"

	"warbler/internal/models"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes passwords for storage and checks them at login.
type Credentials interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptCredentials implements Credentials with bcrypt. Every digest carries its own salt.
type BcryptCredentials struct {
	cost int
}

// NewBcryptCredentials returns a bcrypt-backed Credentials. Out of range costs fall back to bcrypt.DefaultCost.
func NewBcryptCredentials(cost int) *BcryptCredentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptCredentials{cost: cost}
}

// Hash returns a salted one-way digest of plaintext.
func (c *BcryptCredentials) Hash(plaintext string) (string, error) {
	if err := validation.ValidatePassword(plaintext); err != nil {
		return "", models.NewValidationError(err.Error())
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError(err.Error())
		}
		return "", models.NewInternalError(err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests never match.
func (c *BcryptCredentials) Verify(plaintext, digest string) bool {
	if plaintext == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
