package store

import (
	"context"
	"errors"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// memory) implement this; the token engine only ever sees the
// sub-repository interfaces.
type Store interface {
	Principals() Principals

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still alive.
	Ping(ctx context.Context) error
}

// Principals is the principal repository. SessionSnapshot and
// SaveSessionSnapshot also satisfy the session tracker's store
// dependency, so the tracker never sees the wider interface.
type Principals interface {
	// FindByID returns a principal by local id.
	FindByID(ctx context.Context, id string) (domain.Principal, error)

	// FindByEmail is used during local credential login.
	FindByEmail(ctx context.Context, email string) (domain.Principal, error)

	// FindByExternalID looks up a principal by identity-provider subject.
	FindByExternalID(ctx context.Context, externalID string) (domain.Principal, error)

	// Create inserts a new principal (id is provided by the app via ULID).
	Create(ctx context.Context, p domain.Principal) error

	// SessionSnapshot reads the principal's last-seen request metadata.
	SessionSnapshot(ctx context.Context, principalID string) (domain.SessionSnapshot, error)

	// SaveSessionSnapshot overwrites the snapshot and bumps updated_at.
	SaveSessionSnapshot(ctx context.Context, principalID string, snap domain.SessionSnapshot) error
}
