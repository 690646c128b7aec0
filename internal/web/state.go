// internal/web/state.go
package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const statePrefix = "authstate:"

// StateStore persists the CSRF state values minted for authorize
// redirects. States are one-shot: Consume reports validity and burns
// the value in the same step.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) bool
}

type redisStates struct {
	cli *redis.Client
	ttl time.Duration
}

// NewRedisStateStore keeps states in redis so callbacks can land on any
// instance behind a load balancer.
func NewRedisStateStore(cli *redis.Client, ttl time.Duration) StateStore {
	return &redisStates{cli: cli, ttl: ttl}
}

func (r *redisStates) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := r.cli.Set(ctx, statePrefix+state, "1", r.ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

func (r *redisStates) Consume(ctx context.Context, state string) bool {
	n, err := r.cli.Del(ctx, statePrefix+state).Result()
	return err == nil && n > 0
}

type memStates struct {
	mu  sync.Mutex
	exp map[string]time.Time
	ttl time.Duration
}

// NewMemoryStateStore is the single-instance fallback used when no
// REDIS_URL is configured.
func NewMemoryStateStore(ttl time.Duration) StateStore {
	return &memStates{exp: map[string]time.Time{}, ttl: ttl}
}

func (m *memStates) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for s, e := range m.exp {
		if e.Before(now) {
			delete(m.exp, s)
		}
	}
	m.exp[state] = now.Add(m.ttl)
	return state, nil
}

func (m *memStates) Consume(ctx context.Context, state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exp[state]
	if !ok {
		return false
	}
	delete(m.exp, state)
	return e.After(time.Now())
}
