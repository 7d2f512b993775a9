package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"golang.org/x/crypto/bcrypt"
)

const (
	errorMismatchMessage = "expected %v, got %v"
	testSigningKey       = "test-signing-key"
	testIssuer           = "tauth"
)

type memoryDirectory struct {
	mutex   sync.Mutex
	renters map[string]rental.Renter
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{renters: map[string]rental.Renter{}}
}

func (directory *memoryDirectory) CreateRenter(_ context.Context, renter rental.Renter) error {
	directory.mutex.Lock()
	defer directory.mutex.Unlock()
	if _, exists := directory.renters[renter.Email]; exists {
		return rental.ErrDuplicateEmail
	}
	directory.renters[renter.Email] = renter
	return nil
}

func (directory *memoryDirectory) GetRenterByEmail(_ context.Context, email string) (rental.Renter, error) {
	directory.mutex.Lock()
	defer directory.mutex.Unlock()
	renter, exists := directory.renters[email]
	if !exists {
		return rental.Renter{}, rental.ErrRenterNotFound
	}
	return renter, nil
}

func newTestAccounts(test *testing.T) *Accounts {
	test.Helper()
	accounts, err := NewAccounts(newMemoryDirectory(), NewBcryptProvider(bcrypt.MinCost))
	if err != nil {
		test.Fatalf("new accounts: %v", err)
	}
	return accounts
}

func TestBcryptProviderRoundTrip(test *testing.T) {
	test.Parallel()
	provider := NewBcryptProvider(bcrypt.MinCost)
	digest, err := provider.Hash("correct horse")
	if err != nil {
		test.Fatalf("hash: %v", err)
	}
	if digest == "correct horse" {
		test.Fatalf("expected digest to differ from password")
	}
	if err := provider.Verify(digest, "correct horse"); err != nil {
		test.Fatalf("verify: %v", err)
	}
	if err := provider.Verify(digest, "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
		test.Fatalf(errorMismatchMessage, ErrInvalidCredentials, err)
	}
}

func TestRegisterValidatesAndNormalizes(test *testing.T) {
	test.Parallel()
	accounts := newTestAccounts(test)
	ctx := context.Background()

	renter, err := accounts.Register(ctx, Registration{Email: "  Ada@Example.COM ", DisplayName: " Ada ", Password: "password123"})
	if err != nil {
		test.Fatalf("register: %v", err)
	}
	if renter.Email != "ada@example.com" || renter.Role != rental.RoleRenter || renter.DisplayName != "Ada" {
		test.Fatalf(errorMismatchMessage, "normalized renter", renter)
	}
	if renter.ID.IsZero() {
		test.Fatalf("expected generated renter id")
	}

	testCases := []struct {
		name         string
		registration Registration
		expected     error
	}{
		{name: "duplicate email", registration: Registration{Email: "ada@example.com", Password: "password123"}, expected: rental.ErrDuplicateEmail},
		{name: "bad email", registration: Registration{Email: "not-an-email", Password: "password123"}, expected: rental.ErrInvalidInput},
		{name: "short password", registration: Registration{Email: "bob@example.com", Password: "short"}, expected: rental.ErrInvalidInput},
		{name: "unknown role", registration: Registration{Email: "eve@example.com", Password: "password123", Role: "root"}, expected: rental.ErrInvalidInput},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			if _, err := accounts.Register(ctx, testCase.registration); !errors.Is(err, testCase.expected) {
				test.Fatalf(errorMismatchMessage, testCase.expected, err)
			}
		})
	}
}

func TestAuthenticate(test *testing.T) {
	test.Parallel()
	accounts := newTestAccounts(test)
	ctx := context.Background()
	registered, err := accounts.Register(ctx, Registration{Email: "seller@example.com", Password: "password123", Role: rental.RoleSeller})
	if err != nil {
		test.Fatalf("register: %v", err)
	}

	authenticated, err := accounts.Authenticate(ctx, "SELLER@example.com", "password123")
	if err != nil {
		test.Fatalf("authenticate: %v", err)
	}
	if authenticated.ID != registered.ID {
		test.Fatalf(errorMismatchMessage, registered.ID, authenticated.ID)
	}
	if _, err := accounts.Authenticate(ctx, "seller@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		test.Fatalf(errorMismatchMessage, ErrInvalidCredentials, err)
	}
	if _, err := accounts.Authenticate(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		test.Fatalf(errorMismatchMessage, ErrInvalidCredentials, err)
	}
}

func TestSessionIssuerProducesValidatorCompatibleClaims(test *testing.T) {
	test.Parallel()
	issuedAt := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewSessionIssuer(testSigningKey, testIssuer, time.Hour, func() time.Time { return issuedAt })
	if err != nil {
		test.Fatalf("new issuer: %v", err)
	}
	renterID, err := rental.NewRenterID("renter-42")
	if err != nil {
		test.Fatalf("renter id: %v", err)
	}
	token, expiresAt, err := issuer.Issue(rental.Renter{ID: renterID, Email: "r@example.com", Role: rental.RoleAdmin})
	if err != nil {
		test.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(issuedAt.Add(time.Hour)) {
		test.Fatalf(errorMismatchMessage, issuedAt.Add(time.Hour), expiresAt)
	}

	claims := &sessionvalidator.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(testSigningKey), nil
	}, jwt.WithTimeFunc(func() time.Time { return issuedAt.Add(time.Minute) }), jwt.WithIssuer(testIssuer))
	if err != nil || !parsed.Valid {
		test.Fatalf("parse token: %v", err)
	}
	identity, err := IdentityFromClaims(claims)
	if err != nil {
		test.Fatalf("identity: %v", err)
	}
	if identity.RenterID != renterID || !identity.HasRole(rental.RoleAdmin) {
		test.Fatalf(errorMismatchMessage, "admin renter-42", identity)
	}
}

func TestSessionIssuerRejectsInvalidConfig(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name       string
		signingKey string
		issuer     string
		ttl        time.Duration
	}{
		{name: "missing key", issuer: testIssuer, ttl: time.Hour},
		{name: "missing issuer", signingKey: testSigningKey, ttl: time.Hour},
		{name: "zero ttl", signingKey: testSigningKey, issuer: testIssuer},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if _, err := NewSessionIssuer(testCase.signingKey, testCase.issuer, testCase.ttl, nil); !errors.Is(err, ErrInvalidSessionConfig) {
				test.Fatalf(errorMismatchMessage, ErrInvalidSessionConfig, err)
			}
		})
	}
}

func TestIdentityFromClaimsRequiresUser(test *testing.T) {
	test.Parallel()
	if _, err := IdentityFromClaims(nil); !errors.Is(err, rental.ErrUnauthorized) {
		test.Fatalf(errorMismatchMessage, rental.ErrUnauthorized, err)
	}
	if _, err := IdentityFromClaims(&sessionvalidator.Claims{}); !errors.Is(err, rental.ErrUnauthorized) {
		test.Fatalf(errorMismatchMessage, rental.ErrUnauthorized, err)
	}
}
