package domain

import "errors"

// Access-token verification failures. The verifier short-circuits on the
// first failing check and returns exactly one of these.
var (
	ErrMalformed       = errors.New("auth: malformed token")
	ErrExpired         = errors.New("auth: token expired")
	ErrRevoked         = errors.New("auth: token revoked")
	ErrWrongKind       = errors.New("auth: wrong token kind")
	ErrStaleCredential = errors.New("auth: credential too old")
)

// Refresh-token validation failures.
var (
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	ErrRevokedRefreshToken = errors.New("auth: refresh token revoked")
	ErrExpiredRefreshToken = errors.New("auth: refresh token expired")
)

// ErrInvalidCredentials is the uniform login failure. Unknown email and
// wrong password are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// IsTokenError reports whether err belongs to the verification taxonomy.
// Handlers use it to pick a 401 over a 500; the specific kind is only
// ever logged, never sent to the client.
func IsTokenError(err error) bool {
	for _, target := range []error{
		ErrMalformed, ErrExpired, ErrRevoked, ErrWrongKind, ErrStaleCredential,
		ErrInvalidRefreshToken, ErrRevokedRefreshToken, ErrExpiredRefreshToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
