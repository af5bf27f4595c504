package domain

import "time"

// Principal is a local account. ExternalID links a principal created via
// the external identity provider; PasswordHash is empty for those and
// argon2-encoded for local accounts.
type Principal struct {
	ID           string
	ExternalID   string
	Email        string
	DisplayName  string
	PasswordHash string
	Session      SessionSnapshot
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the uniform result of any authenticator: who the request
// is for and, when the credential was a locally-signed token, its jti and
// expiry so the rotation advisor can act on it.
type Identity struct {
	PrincipalID string
	Email       string
	DisplayName string

	// TokenID and ExpiresAt are zero for externally-verified identities.
	TokenID   string
	ExpiresAt time.Time
}
