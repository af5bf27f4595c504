package httpx

import (
	"context"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
)

type ctxKey string

const (
	CtxKeyPrincipalID ctxKey = "principal_id"
	CtxKeyIdentity    ctxKey = "identity"
)

// PrincipalIDFromContext returns the authenticated principal id, or ""
// when the request was not authenticated.
func PrincipalIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyPrincipalID).(string); ok {
		return v
	}
	return ""
}

// IdentityFromContext returns the full authenticated identity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	v, ok := ctx.Value(CtxKeyIdentity).(domain.Identity)
	return v, ok
}
