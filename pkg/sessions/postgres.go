// pkg/sessions/postgres.go
package sessions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgStore implements Store backed by PostgreSQL.
type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresStore constructs a PostgreSQL-backed session store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates the sessions table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sessions (
  subdomain text PRIMARY KEY,
  access_token text NOT NULL,
  refresh_token text NOT NULL,
  expires_at timestamptz NOT NULL,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
`)
	return err
}

func (p *pgStore) Find(ctx context.Context, subdomain string) (Session, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT subdomain, access_token, refresh_token, expires_at, created_at, updated_at FROM sessions WHERE subdomain=$1`, subdomain)
	var s Session
	if err := row.Scan(&s.Subdomain, &s.AccessToken, &s.RefreshToken, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

// Upsert writes the whole token pair in one statement so concurrent
// readers never observe a half-replaced pair.
func (p *pgStore) Upsert(ctx context.Context, s Session) error {
	_, err := p.dbPool.Exec(ctx, `INSERT INTO sessions(subdomain, access_token, refresh_token, expires_at)
	  VALUES ($1,$2,$3,$4)
	  ON CONFLICT (subdomain) DO UPDATE SET access_token=EXCLUDED.access_token, refresh_token=EXCLUDED.refresh_token, expires_at=EXCLUDED.expires_at, updated_at=NOW()`,
		s.Subdomain, s.AccessToken, s.RefreshToken, s.ExpiresAt)
	return err
}

func (p *pgStore) Delete(ctx context.Context, subdomain string) error {
	_, err := p.dbPool.Exec(ctx, `DELETE FROM sessions WHERE subdomain=$1`, subdomain)
	return err
}
