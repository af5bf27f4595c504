package domain

import "time"

// TokenPair is what login and refresh return: the short-lived access
// token and the longer-lived refresh token, both signed JWTs.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until access expiry
}

// RefreshRecord models a stored refresh token. One record per issued
// refresh token, keyed in the store by the token's fingerprint.
type RefreshRecord struct {
	PrincipalID string
	CreatedAt   time.Time
	LastUsed    time.Time
	Active      bool
}

// SessionSnapshot is the last-known request metadata for a principal.
// Overwritten on every authenticated request; the anomaly detector reads
// the previous value before the overwrite happens.
type SessionSnapshot struct {
	IP           string
	UserAgent    string
	LastActivity time.Time
}
