// Package auth hashes passwords, manages renter accounts, and issues session tokens.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthProvider hashes and verifies passwords.
type AuthProvider interface {
	Hash(password string) (string, error)
	Verify(digest string, password string) error
}

// BcryptProvider implements AuthProvider with bcrypt.
type BcryptProvider struct {
	cost int
}

// NewBcryptProvider returns a provider using cost, or bcrypt.DefaultCost when cost is out of range.
func NewBcryptProvider(cost int) BcryptProvider {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptProvider{cost: cost}
}

func (provider BcryptProvider) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), provider.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

func (provider BcryptProvider) Verify(digest string, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
