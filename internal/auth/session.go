package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
)

var ErrInvalidSessionConfig = errors.New("invalid session config")

// SessionIssuer signs HS256 session tokens in the claim layout the tauth validator reads.
type SessionIssuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	clock      func() time.Time
}

// NewSessionIssuer constructs an issuer. clock defaults to time.Now.
func NewSessionIssuer(signingKey string, issuer string, ttl time.Duration, clock func() time.Time) (*SessionIssuer, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("%w: signing key is required", ErrInvalidSessionConfig)
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, fmt.Errorf("%w: issuer is required", ErrInvalidSessionConfig)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidSessionConfig)
	}
	if clock == nil {
		clock = time.Now
	}
	return &SessionIssuer{signingKey: []byte(signingKey), issuer: issuer, ttl: ttl, clock: clock}, nil
}

// Issue returns a signed token for renter and its expiry.
func (issuer *SessionIssuer) Issue(renter rental.Renter) (string, time.Time, error) {
	issuedAt := issuer.clock().UTC()
	expiresAt := issuedAt.Add(issuer.ttl)
	claims := &sessionvalidator.Claims{
		UserID:          renter.ID.String(),
		UserEmail:       renter.Email,
		UserDisplayName: renter.DisplayName,
		UserRoles:       []string{renter.Role},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer.issuer,
			Subject:   renter.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// IdentityFromClaims converts validated session claims into a rental identity.
func IdentityFromClaims(claims *sessionvalidator.Claims) (rental.Identity, error) {
	if claims == nil {
		return rental.Identity{}, rental.ErrUnauthorized
	}
	renterID, err := rental.NewRenterID(claims.GetUserID())
	if err != nil {
		return rental.Identity{}, fmt.Errorf("%w: %v", rental.ErrUnauthorized, err)
	}
	roles := make([]string, 0, len(claims.GetUserRoles()))
	for _, role := range claims.GetUserRoles() {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			roles = append(roles, normalized)
		}
	}
	return rental.Identity{RenterID: renterID, Roles: roles}, nil
}
