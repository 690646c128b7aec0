// internal/auth/manager.go
package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"learnalchemy/internal/oauth"
	"learnalchemy/pkg/sessions"
)

const (
	// refreshBuffer is how long before literal expiry a token is already
	// treated as expired, so callers never hold a token about to die
	// mid-request.
	refreshBuffer = 5 * time.Minute

	// validityBuffer is the margin used by read-only validity checks.
	validityBuffer = time.Minute
)

// Exchanger is the slice of the oauth client the manager needs.
type Exchanger interface {
	Exchange(ctx context.Context, code, subdomain string) (oauth.TokenSet, error)
	Refresh(ctx context.Context, refreshToken, subdomain string) (oauth.TokenSet, error)
}

// Manager owns the credential lifecycle for every tenant: it creates
// sessions from authorization codes, hands out access tokens, and
// refreshes them behind the scenes. The store is the sole source of
// truth; no token is cached in memory between calls.
type Manager struct {
	store   sessions.Store
	client  Exchanger
	log     *zap.SugaredLogger
	now     func() time.Time
	refresh singleflight.Group
}

// NewManager wires the manager. All collaborators are explicit; nothing
// is read from the environment here.
func NewManager(store sessions.Store, client Exchanger, log *zap.SugaredLogger) *Manager {
	return &Manager{store: store, client: client, log: log, now: time.Now}
}

// Establish exchanges an authorization code and persists the resulting
// session. This is the only path that creates a session row.
func (m *Manager) Establish(ctx context.Context, code, subdomain string) error {
	ts, err := m.client.Exchange(ctx, code, subdomain)
	if err != nil {
		return err
	}
	s := sessions.Session{
		Subdomain:    subdomain,
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(ts.ExpiresIn) * time.Second),
	}
	if err := m.store.Upsert(ctx, s); err != nil {
		return err
	}
	m.log.Infow("session established", "subdomain", subdomain, "expires_at", s.ExpiresAt)
	return nil
}

// ValidToken returns an access token guaranteed to outlive the refresh
// buffer. The fresh-token path performs no network calls. Near or past
// expiry the stored refresh token is spent on a new pair; concurrent
// callers for the same subdomain share one refresh via singleflight.
func (m *Manager) ValidToken(ctx context.Context, subdomain string) (string, error) {
	s, err := m.store.Find(ctx, subdomain)
	if err != nil {
		if err == sessions.ErrNotFound {
			return "", ErrNoSession
		}
		return "", err
	}
	if s.ExpiresAt.After(m.now().Add(refreshBuffer)) {
		return s.AccessToken, nil
	}

	m.log.Infow("token expired, refreshing", "subdomain", subdomain)
	token, err, _ := m.refresh.Do(subdomain, func() (any, error) {
		// Re-read inside the flight: another caller may have already
		// rotated the pair between our Find and here.
		cur, err := m.store.Find(ctx, subdomain)
		if err != nil {
			if err == sessions.ErrNotFound {
				return "", ErrNoSession
			}
			return "", err
		}
		if cur.ExpiresAt.After(m.now().Add(refreshBuffer)) {
			return cur.AccessToken, nil
		}
		ts, err := m.client.Refresh(ctx, cur.RefreshToken, subdomain)
		if err != nil {
			// Leave the row untouched; the stale pair stays persisted
			// until the tenant re-authorizes.
			m.log.Errorw("refresh failed", "subdomain", subdomain, "err", err)
			return "", ErrSessionExpired
		}
		cur.AccessToken = ts.AccessToken
		cur.RefreshToken = ts.RefreshToken
		cur.ExpiresAt = m.now().Add(time.Duration(ts.ExpiresIn) * time.Second)
		if err := m.store.Upsert(ctx, cur); err != nil {
			return "", err
		}
		return ts.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Revoke drops the tenant session. Revoking an unknown subdomain is a
// no-op, so uninstall webhooks can be replayed safely.
func (m *Manager) Revoke(ctx context.Context, subdomain string) error {
	if err := m.store.Delete(ctx, subdomain); err != nil {
		return err
	}
	m.log.Infow("session revoked", "subdomain", subdomain)
	return nil
}

// HasValidSession reports whether a session exists with comfortably
// unexpired tokens. It never triggers a refresh, making it safe for
// access-gating checks on every page load.
func (m *Manager) HasValidSession(ctx context.Context, subdomain string) bool {
	s, err := m.store.Find(ctx, subdomain)
	if err != nil {
		return false
	}
	return s.ExpiresAt.After(m.now().Add(validityBuffer))
}
