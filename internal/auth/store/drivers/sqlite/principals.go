package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
	"github.com/shelfmark/shelfmark/internal/auth/store"
)

type principalsRepo struct {
	db *sql.DB
}

const principalColumns = `id, external_id, email, display_name, password_hash,
	last_ip, last_user_agent, last_activity, created_at, updated_at`

func (r *principalsRepo) FindByID(ctx context.Context, id string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id)
	return scanPrincipal(row)
}

func (r *principalsRepo) FindByEmail(ctx context.Context, email string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanPrincipal(row)
}

func (r *principalsRepo) FindByExternalID(ctx context.Context, externalID string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE external_id = ?`, externalID)
	return scanPrincipal(row)
}

func (r *principalsRepo) Create(ctx context.Context, p domain.Principal) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principals
			(id, external_id, email, display_name, password_hash,
			 last_ip, last_user_agent, last_activity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		nullable(p.ExternalID),
		strings.ToLower(strings.TrimSpace(p.Email)),
		p.DisplayName,
		p.PasswordHash,
		nullable(p.Session.IP),
		nullable(p.Session.UserAgent),
		nullTime(p.Session.LastActivity),
		now,
		now,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *principalsRepo) SessionSnapshot(ctx context.Context, principalID string) (domain.SessionSnapshot, error) {
	var (
		ip, ua sql.NullString
		at     sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT last_ip, last_user_agent, last_activity FROM principals WHERE id = ?`,
		principalID).Scan(&ip, &ua, &at)
	if err != nil {
		return domain.SessionSnapshot{}, mapNotFound(err)
	}
	return domain.SessionSnapshot{
		IP:           ip.String,
		UserAgent:    ua.String,
		LastActivity: at.Time,
	}, nil
}

func (r *principalsRepo) SaveSessionSnapshot(ctx context.Context, principalID string, snap domain.SessionSnapshot) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE principals
		 SET last_ip = ?, last_user_agent = ?, last_activity = ?, updated_at = ?
		 WHERE id = ?`,
		nullable(snap.IP),
		nullable(snap.UserAgent),
		nullTime(snap.LastActivity),
		time.Now().UTC(),
		principalID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanPrincipal(row *sql.Row) (domain.Principal, error) {
	var (
		p          domain.Principal
		externalID sql.NullString
		ip, ua     sql.NullString
		activity   sql.NullTime
	)
	err := row.Scan(
		&p.ID, &externalID, &p.Email, &p.DisplayName, &p.PasswordHash,
		&ip, &ua, &activity, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	p.ExternalID = externalID.String
	p.Session = domain.SessionSnapshot{
		IP:           ip.String,
		UserAgent:    ua.String,
		LastActivity: activity.Time,
	}
	return p, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
