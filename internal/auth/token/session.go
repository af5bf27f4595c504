package token

import (
	"context"
	"log/slog"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
)

// DefaultReactivationWindow is how long a principal must be inactive
// before their next request counts as a reactivation.
const DefaultReactivationWindow = time.Hour

// SessionStore is the slice of the principal repository the tracker
// needs: read and overwrite one principal's session snapshot.
type SessionStore interface {
	SessionSnapshot(ctx context.Context, principalID string) (domain.SessionSnapshot, error)
	SaveSessionSnapshot(ctx context.Context, principalID string, snap domain.SessionSnapshot) error
}

// Tracker records last-seen request metadata per principal and runs the
// anomaly comparison against the previous snapshot before overwriting it.
// Detection only: nothing here blocks or fails a request.
type Tracker struct {
	store  SessionStore
	events *Dispatcher
	logger *slog.Logger
	window time.Duration

	now func() time.Time
}

func NewTracker(store SessionStore, events *Dispatcher, logger *slog.Logger, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultReactivationWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		events: events,
		logger: logger,
		window: window,
		now:    time.Now,
	}
}

// Track is invoked once per authenticated request. It reads the prior
// snapshot, emits one event per anomaly condition that holds, then
// unconditionally overwrites the snapshot with the current metadata.
func (t *Tracker) Track(ctx context.Context, principalID string, meta domain.RequestMeta) {
	now := t.now()

	prev, err := t.store.SessionSnapshot(ctx, principalID)
	if err != nil {
		t.logger.Warn("session snapshot read failed", "principal_id", principalID, "err", err)
		prev = domain.SessionSnapshot{}
	}

	// Comparison must happen before the overwrite below.
	t.detect(prev, principalID, meta, now)

	snap := domain.SessionSnapshot{
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		LastActivity: now,
	}
	if err := t.store.SaveSessionSnapshot(ctx, principalID, snap); err != nil {
		t.logger.Warn("session snapshot write failed", "principal_id", principalID, "err", err)
	}
}

func (t *Tracker) detect(prev domain.SessionSnapshot, principalID string, meta domain.RequestMeta, now time.Time) {
	if prev.IP != "" && prev.IP != meta.IP {
		t.events.Emit(meta.Event(domain.EventIPChanged, principalID, now))
	}
	if prev.UserAgent != "" && prev.UserAgent != meta.UserAgent {
		t.events.Emit(meta.Event(domain.EventUserAgentChanged, principalID, now))
	}
	if !prev.LastActivity.IsZero() && now.Sub(prev.LastActivity) > t.window {
		t.events.Emit(meta.Event(domain.EventReactivation, principalID, now))
	}
}
