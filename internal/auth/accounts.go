package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RenterDirectory is the persistence needed by Accounts.
type RenterDirectory interface {
	CreateRenter(ctx context.Context, renter rental.Renter) error
	GetRenterByEmail(ctx context.Context, email string) (rental.Renter, error)
}

// Registration describes a new account.
type Registration struct {
	Email       string `validate:"required,email,max=254"`
	DisplayName string `validate:"max=120"`
	Password    string `validate:"required,min=8,max=72"`
	Role        string `validate:"required,oneof=renter seller admin"`
}

// Accounts registers and authenticates renters.
type Accounts struct {
	directory RenterDirectory
	provider  AuthProvider
	validate  *validator.Validate
	newID     func() string
}

// NewAccounts wires Accounts over a renter directory.
func NewAccounts(directory RenterDirectory, provider AuthProvider) (*Accounts, error) {
	if directory == nil || provider == nil {
		return nil, fmt.Errorf("%w: accounts dependencies are nil", rental.ErrInvalidServiceConfig)
	}
	return &Accounts{
		directory: directory,
		provider:  provider,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		newID:     uuid.NewString,
	}, nil
}

// Register stores a new account. The email is normalized to lower case.
func (accounts *Accounts) Register(ctx context.Context, registration Registration) (rental.Renter, error) {
	registration.Email = normalizeEmail(registration.Email)
	registration.DisplayName = strings.TrimSpace(registration.DisplayName)
	registration.Role = strings.ToLower(strings.TrimSpace(registration.Role))
	if registration.Role == "" {
		registration.Role = rental.RoleRenter
	}
	if err := accounts.validate.Struct(registration); err != nil {
		return rental.Renter{}, fmt.Errorf("%w: %v", rental.ErrInvalidInput, err)
	}
	digest, err := accounts.provider.Hash(registration.Password)
	if err != nil {
		return rental.Renter{}, err
	}
	renterID, err := rental.NewRenterID(accounts.newID())
	if err != nil {
		return rental.Renter{}, err
	}
	renter := rental.Renter{
		ID:             renterID,
		Email:          registration.Email,
		DisplayName:    registration.DisplayName,
		PasswordDigest: digest,
		Role:           registration.Role,
	}
	if err := accounts.directory.CreateRenter(ctx, renter); err != nil {
		return rental.Renter{}, err
	}
	return renter, nil
}

// Authenticate returns the account for email when password matches.
func (accounts *Accounts) Authenticate(ctx context.Context, email string, password string) (rental.Renter, error) {
	renter, err := accounts.directory.GetRenterByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, rental.ErrRenterNotFound) {
			return rental.Renter{}, ErrInvalidCredentials
		}
		return rental.Renter{}, err
	}
	if err := accounts.provider.Verify(renter.PasswordDigest, password); err != nil {
		return rental.Renter{}, ErrInvalidCredentials
	}
	return renter, nil
}

// Lookup returns the account registered under email.
func (accounts *Accounts) Lookup(ctx context.Context, email string) (rental.Renter, error) {
	return accounts.directory.GetRenterByEmail(ctx, normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
