package token

import (
	"container/heap"
	"sync"
	"time"
)

// DefaultRevocationRetention is the ceiling on how long a revocation entry
// is kept: the maximum conceivable credential lifetime. An entry never
// needs to outlive the longest-lived token that could reference it.
const DefaultRevocationRetention = 7 * 24 * time.Hour

type revocationEntry struct {
	// effectiveAt allows a rotation grace window: the entry exists but is
	// not honored until this instant.
	effectiveAt time.Time
	deadline    time.Time
}

// RevocationStore tracks revoked token identifiers. Entries self-expire
// via a deadline min-heap scanned by Sweep, so memory stays bounded under
// sustained revocation volume regardless of how many timers a
// one-timer-per-entry design would have spawned.
//
// Per-identifier revoke-then-check is linearizable: both paths take the
// same mutex.
type RevocationStore struct {
	mu        sync.Mutex
	entries   map[string]revocationEntry
	deadlines deadlineHeap
	retention time.Duration

	now func() time.Time
}

// NewRevocationStore creates a store with the given retention ceiling.
// Zero or negative retention falls back to the default.
func NewRevocationStore(retention time.Duration) *RevocationStore {
	if retention <= 0 {
		retention = DefaultRevocationRetention
	}
	return &RevocationStore{
		entries:   make(map[string]revocationEntry),
		retention: retention,
		now:       time.Now,
	}
}

// Revoke marks an identifier as no longer honored, effective immediately.
func (s *RevocationStore) Revoke(id string) {
	s.RevokeAfter(id, 0)
}

// RevokeAfter marks an identifier revoked effective after delay. The
// rotation advisor uses this to give in-flight duplicates of a rotated
// token a short grace window.
func (s *RevocationStore) RevokeAfter(id string, delay time.Duration) {
	if id == "" {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := revocationEntry{
		effectiveAt: now.Add(delay),
		deadline:    now.Add(s.retention),
	}
	if existing, ok := s.entries[id]; ok && existing.effectiveAt.Before(entry.effectiveAt) {
		// Re-revoking never loosens an earlier effective time.
		entry.effectiveAt = existing.effectiveAt
	}
	s.entries[id] = entry
	heap.Push(&s.deadlines, deadlineItem{id: id, deadline: entry.deadline})
}

// IsRevoked reports whether the identifier is currently revoked.
func (s *RevocationStore) IsRevoked(id string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	if now.After(entry.deadline) {
		// Past retention; any token carrying this jti has long expired.
		delete(s.entries, id)
		return false
	}
	return !now.Before(entry.effectiveAt)
}

// Sweep evicts entries whose deadline has passed and returns how many it
// removed. Safe to call concurrently with Revoke/IsRevoked.
func (s *RevocationStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for s.deadlines.Len() > 0 {
		item := s.deadlines[0]
		if item.deadline.After(now) {
			break
		}
		heap.Pop(&s.deadlines)

		// A later re-revocation of the same id pushes a fresh heap item;
		// only drop the map entry when this item is the live one.
		if entry, ok := s.entries[item.id]; ok && !entry.deadline.After(item.deadline) {
			delete(s.entries, item.id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (s *RevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type deadlineItem struct {
	id       string
	deadline time.Time
}

// deadlineHeap is a min-heap ordered by eviction deadline.
type deadlineHeap []deadlineItem

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x any)         { *h = append(*h, x.(deadlineItem)) }
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
