package service

import (
	"log/slog"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/token"
)

// HousekeepingService periodically sweeps the in-memory token stores so
// revocation entries and dead refresh records never accumulate.
type HousekeepingService struct {
	Refresh  *token.RefreshTokenStore
	Revoked  *token.RevocationStore
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(
	refresh *token.RefreshTokenStore,
	revoked *token.RevocationStore,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Refresh:  refresh,
		Revoked:  revoked,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut
// the worker down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker and blocks until any in-progress
// sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs each store's cleanup independently; a failure in one never
// stops the others, and the next tick retries everything anyway.
func (s *HousekeepingService) sweep() {
	refreshRemoved := s.Refresh.CleanupExpired()
	revokedRemoved := s.Revoked.Sweep()

	s.Logger.Debug("housekeeping sweep completed",
		"refresh_removed", refreshRemoved,
		"revocations_removed", revokedRemoved,
	)
}
