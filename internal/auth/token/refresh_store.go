package token

import (
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/pkg/cryptox"
	"github.com/shelfmark/shelfmark/pkg/jwtx"
)

// RefreshTokenStore tracks issued refresh tokens in memory, keyed by
// token fingerprint. All mutation goes through these methods; the mutex
// keeps per-token operations linearizable.
type RefreshTokenStore struct {
	mu      sync.Mutex
	records map[string]*domain.RefreshRecord
	ttl     time.Duration

	now func() time.Time
}

// NewRefreshTokenStore creates a store with the given maximum record age.
// Zero or negative ttl falls back to the default refresh lifetime.
func NewRefreshTokenStore(ttl time.Duration) *RefreshTokenStore {
	if ttl <= 0 {
		ttl = jwtx.DefaultRefreshTokenTTL
	}
	return &RefreshTokenStore{
		records: make(map[string]*domain.RefreshRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create records a freshly issued refresh token for a principal.
func (s *RefreshTokenStore) Create(tokenStr, principalID string) {
	now := s.now()
	fp := cryptox.FingerprintToken(tokenStr)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[fp] = &domain.RefreshRecord{
		PrincipalID: principalID,
		CreatedAt:   now,
		LastUsed:    now,
		Active:      true,
	}
}

// Validate checks a presented refresh token against the store. On success
// it bumps LastUsed and returns a copy of the record. An expired record is
// deleted as a side effect; LastUsed never moves backwards under
// concurrent calls.
func (s *RefreshTokenStore) Validate(tokenStr string) (domain.RefreshRecord, error) {
	now := s.now()
	fp := cryptox.FingerprintToken(tokenStr)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fp]
	if !ok {
		return domain.RefreshRecord{}, domain.ErrInvalidRefreshToken
	}
	if !rec.Active {
		return domain.RefreshRecord{}, domain.ErrRevokedRefreshToken
	}
	if now.Sub(rec.CreatedAt) > s.ttl {
		delete(s.records, fp)
		return domain.RefreshRecord{}, domain.ErrExpiredRefreshToken
	}

	if now.After(rec.LastUsed) {
		rec.LastUsed = now
	}
	return *rec, nil
}

// Revoke deactivates a refresh token. Unknown tokens are a no-op, which
// makes logout idempotent.
func (s *RefreshTokenStore) Revoke(tokenStr string) {
	fp := cryptox.FingerprintToken(tokenStr)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[fp]; ok {
		rec.Active = false
	}
}

// RevokeAllForPrincipal deactivates every refresh token owned by a
// principal (password change, account lockout).
func (s *RefreshTokenStore) RevokeAllForPrincipal(principalID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.records {
		if rec.PrincipalID == principalID && rec.Active {
			rec.Active = false
			n++
		}
	}
	return n
}

// CleanupExpired removes records older than the maximum age along with
// inactive ones, and returns how many were dropped. Idempotent and safe
// to run concurrently with Create/Validate.
func (s *RefreshTokenStore) CleanupExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for fp, rec := range s.records {
		if !rec.Active || now.Sub(rec.CreatedAt) > s.ttl {
			delete(s.records, fp)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records.
func (s *RefreshTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
