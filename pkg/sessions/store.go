package sessions

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Find when no session exists for a subdomain.
var ErrNotFound = errors.New("session not found")

// Store persists one session per tenant subdomain. Writes are atomic per
// key: a concurrent reader sees either the old pair or the new pair,
// never a mix.
type Store interface {
	// Find returns the session for a subdomain, or ErrNotFound.
	Find(ctx context.Context, subdomain string) (Session, error)
	// Upsert creates or fully replaces the session for s.Subdomain.
	Upsert(ctx context.Context, s Session) error
	// Delete removes the session. Deleting a missing row is not an error.
	Delete(ctx context.Context, subdomain string) error
}
