// pkg/sessions/memory.go
package sessions

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memStore struct {
	log *zap.SugaredLogger
	mu  sync.RWMutex
	bys map[string]Session
}

// NewMemoryStore returns a process-local Store for dev mode and tests.
func NewMemoryStore(log *zap.SugaredLogger) Store {
	return &memStore{log: log, bys: map[string]Session{}}
}

func (m *memStore) Find(ctx context.Context, subdomain string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.bys[subdomain]; ok {
		return s, nil
	}
	return Session{}, ErrNotFound
}

func (m *memStore) Upsert(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.bys[s.Subdomain]; ok {
		s.CreatedAt = prev.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.bys[s.Subdomain] = s
	return nil
}

func (m *memStore) Delete(ctx context.Context, subdomain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bys, subdomain)
	return nil
}
