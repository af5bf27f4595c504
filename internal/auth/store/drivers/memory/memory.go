// Package memory provides an in-memory principal store for tests and
// single-process development runs.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/internal/auth/store"
)

type Store struct {
	mu         sync.RWMutex
	principals map[string]domain.Principal
	byEmail    map[string]string
	byExternal map[string]string
}

func NewStore() *Store {
	return &Store{
		principals: make(map[string]domain.Principal),
		byEmail:    make(map[string]string),
		byExternal: make(map[string]string),
	}
}

func (s *Store) Principals() store.Principals { return (*principalsRepo)(s) }
func (s *Store) ApplyMigrations() error       { return nil }
func (s *Store) Close() error                 { return nil }
func (s *Store) Ping(context.Context) error   { return nil }

type principalsRepo Store

func (r *principalsRepo) FindByID(_ context.Context, id string) (domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.principals[id]
	if !ok {
		return domain.Principal{}, store.ErrNotFound
	}
	return p, nil
}

func (r *principalsRepo) FindByEmail(_ context.Context, email string) (domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return domain.Principal{}, store.ErrNotFound
	}
	return r.principals[id], nil
}

func (r *principalsRepo) FindByExternalID(_ context.Context, externalID string) (domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byExternal[externalID]
	if !ok {
		return domain.Principal{}, store.ErrNotFound
	}
	return r.principals[id], nil
}

func (r *principalsRepo) Create(_ context.Context, p domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(p.Email)
	if _, exists := r.principals[p.ID]; exists {
		return store.ErrAlreadyExists
	}
	if _, exists := r.byEmail[email]; exists {
		return store.ErrAlreadyExists
	}
	if p.ExternalID != "" {
		if _, exists := r.byExternal[p.ExternalID]; exists {
			return store.ErrAlreadyExists
		}
		r.byExternal[p.ExternalID] = p.ID
	}

	now := time.Now().UTC()
	p.Email = email
	p.CreatedAt = now
	p.UpdatedAt = now
	r.principals[p.ID] = p
	r.byEmail[email] = p.ID
	return nil
}

func (r *principalsRepo) SessionSnapshot(_ context.Context, principalID string) (domain.SessionSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.principals[principalID]
	if !ok {
		return domain.SessionSnapshot{}, store.ErrNotFound
	}
	return p.Session, nil
}

func (r *principalsRepo) SaveSessionSnapshot(_ context.Context, principalID string, snap domain.SessionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.principals[principalID]
	if !ok {
		return store.ErrNotFound
	}
	p.Session = snap
	p.UpdatedAt = time.Now().UTC()
	r.principals[principalID] = p
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ store.Store = (*Store)(nil)
