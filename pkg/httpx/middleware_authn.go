package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/pkg/slogx"
)

// Authenticator is the slice of the service layer the middleware needs:
// turn a raw bearer credential into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (domain.Identity, error)
}

// RotationAdvisor optionally replaces a near-expiry token.
type RotationAdvisor interface {
	Advise(id domain.Identity, meta domain.RequestMeta) (newToken string, rotated bool)
}

// SessionTracker records per-principal request metadata.
type SessionTracker interface {
	Track(ctx context.Context, principalID string, meta domain.RequestMeta)
}

// Rotation signal headers. One boolean flag plus the replacement token.
const (
	HeaderTokenRotated = "X-Token-Rotated"
	HeaderNewToken     = "X-New-Token"
)

// AuthnMiddleware is the authenticated-request pipeline, run as a linear
// sequence of steps: bearer extraction, authentication, rotation advice,
// session tracking. Verification failures end the request with a uniform
// 401; rotation and tracking are side effects that never fail it.
func AuthnMiddleware(auth Authenticator, advisor RotationAdvisor, tracker SessionTracker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				WriteUnauthorized(w)
				return
			}

			id, err := auth.Authenticate(ctx, raw)
			if err != nil {
				// The precise rejection reason is for the log only.
				log.Warn("authentication failed", "err", err)
				WriteUnauthorized(w)
				return
			}

			meta := RequestMeta(r)

			if advisor != nil {
				if successor, rotated := advisor.Advise(id, meta); rotated {
					w.Header().Set(HeaderTokenRotated, "true")
					w.Header().Set(HeaderNewToken, successor)
				}
			}

			if tracker != nil {
				tracker.Track(ctx, id.PrincipalID, meta)
			}

			ctx = contextWithIdentity(ctx, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	return raw, raw != ""
}

// RequestMeta collects the request metadata the session tracker and
// event sink need.
func RequestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{
		IP:        IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		Method:    r.Method,
	}
}

func contextWithIdentity(ctx context.Context, id domain.Identity) context.Context {
	ctx = context.WithValue(ctx, CtxKeyPrincipalID, id.PrincipalID)
	ctx = context.WithValue(ctx, CtxKeyIdentity, id)
	return ctx
}
