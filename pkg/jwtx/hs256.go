package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and decodes credential claims.
type Codec interface {
	Alg() string
	Sign(Claims) (string, error)

	// Decode verifies structure and signature and returns the claims.
	// It does NOT validate expiry; callers that need temporal checks run
	// them explicitly so they control the ordering of failure reasons.
	Decode(token string) (*Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// HS256Codec is the fixed symmetric codec used for all shelfmark
// credentials: one shared secret, one issuer, one audience.
type HS256Codec struct {
	secret []byte
	issuer string
	aud    string
}

// NewHS256 creates a codec from the shared signing secret. An empty
// secret is a configuration error surfaced at startup, never at sign or
// verify time.
func NewHS256(secret []byte, issuer, audience string) (*HS256Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: signing secret is required")
	}
	if len(secret) < 32 {
		return nil, errors.New("jwtx: signing secret must be at least 32 bytes")
	}
	return &HS256Codec{secret: secret, issuer: issuer, aud: audience}, nil
}

func (c *HS256Codec) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes claims and turns them into a signed JWT string.
func (c *HS256Codec) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode validates structure, algorithm, signature, issuer, and audience.
// Temporal validation is deliberately excluded (see Codec).
func (c *HS256Codec) Decode(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Temporal checks run in the verifier after the revocation lookup
		// so each failure surfaces its own reason.
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("%w: %s", ErrAlgMismatch, t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSig, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateAudience(c.aud); err != nil {
		return nil, err
	}

	return claims, nil
}

// compile-time check
var _ Codec = (*HS256Codec)(nil)
