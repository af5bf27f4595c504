package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shelfmark/shelfmark/pkg/idx"
)

// Default token TTL constants for the credential lifecycle.
// These provide sensible security defaults but can be overridden via config.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Kind identifies what a credential is for. The verifier enforces it so a
// refresh token can never be replayed against a protected endpoint.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims are the signed credential claims. Immutable once signed; the
// verifier hands them out read-only and nothing persists them.
type Claims struct {
	jwt.RegisteredClaims

	// Kind of credential ("access", "refresh", or a custom kind).
	Kind Kind `json:"knd,omitempty"`
}

// NewClaims builds minimally-correct claims for a principal. The jti is a
// fresh ULID, unique across calls, which is what revocation keys on.
func NewClaims(
	principalID string,
	kind Kind,
	ttl time.Duration,
	issuer, audience string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   principalID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		Kind: kind,
	}
}

// PrincipalID returns the subject claim.
func (c *Claims) PrincipalID() string { return c.Subject }

// TokenID returns the jti claim, the identifier revocation keys on.
func (c *Claims) TokenID() string { return c.ID }

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if the expected audience is present.
func (c *Claims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if !slices.Contains(c.Audience, expected) {
		return ErrAudience
	}

	return nil
}

// ValidateExpiryAt ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf) at the given instant.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// Age returns how long ago the token was issued. Tokens without an iat
// claim report an extremely large age so stale-credential checks reject
// them rather than trusting them forever.
func (c *Claims) Age(now time.Time) time.Duration {
	if c.IssuedAt == nil {
		return 1<<63 - 1
	}
	return now.Sub(c.IssuedAt.Time)
}
