package token

import (
	"log/slog"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
)

// DefaultRotationWindow is how close to expiry a token must be before the
// advisor replaces it.
const DefaultRotationWindow = 5 * time.Minute

// accessIssuer is the slice of Issuer the advisor needs.
type accessIssuer interface {
	IssueAccess(principalID string) (string, error)
}

// Advisor decides when a near-expiry access token should be transparently
// replaced. Rotation is advisory: it never fails the request. If the
// successor cannot be issued the predecessor simply rides out its own
// expiry; if it is issued, the predecessor's jti is revoked (after an
// optional grace window for in-flight duplicates).
type Advisor struct {
	issuer  accessIssuer
	revoked *RevocationStore
	events  *Dispatcher
	logger  *slog.Logger
	window  time.Duration
	grace   time.Duration

	now func() time.Time
}

// NewAdvisor wires a rotation advisor. A zero window uses the default;
// grace may be zero (immediate predecessor revocation).
func NewAdvisor(
	issuer accessIssuer,
	revoked *RevocationStore,
	events *Dispatcher,
	logger *slog.Logger,
	window, grace time.Duration,
) *Advisor {
	if window <= 0 {
		window = DefaultRotationWindow
	}
	if grace < 0 {
		grace = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{
		issuer:  issuer,
		revoked: revoked,
		events:  events,
		logger:  logger,
		window:  window,
		grace:   grace,
		now:     time.Now,
	}
}

// Advise is invoked once per authenticated request, after successful
// verification. It returns the replacement token and true when rotation
// happened, or ("", false) otherwise. Identities without a local token
// (externally verified requests) are never rotated.
func (a *Advisor) Advise(id domain.Identity, meta domain.RequestMeta) (string, bool) {
	if id.TokenID == "" || id.ExpiresAt.IsZero() {
		return "", false
	}

	now := a.now()
	remaining := id.ExpiresAt.Sub(now)
	if remaining >= a.window {
		return "", false
	}

	successor, err := a.issuer.IssueAccess(id.PrincipalID)
	if err != nil {
		// Fail open: the original token stays valid until its own expiry.
		a.logger.Error("token rotation failed",
			"principal_id", id.PrincipalID,
			"jti", id.TokenID,
			"err", err,
		)
		return "", false
	}

	a.revoked.RevokeAfter(id.TokenID, a.grace)

	a.events.Emit(meta.Event(domain.EventTokenRotated, id.PrincipalID, now))
	a.logger.Debug("access token rotated",
		"principal_id", id.PrincipalID,
		"predecessor_jti", id.TokenID,
		"remaining", remaining,
	)

	return successor, true
}
