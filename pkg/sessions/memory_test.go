package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := store.Find(ctx, "school1")
	require.ErrorIs(t, err, ErrNotFound)

	expires := time.Now().Add(3600 * time.Second)
	require.NoError(t, store.Upsert(ctx, Session{
		Subdomain:    "school1",
		AccessToken:  "a1",
		RefreshToken: "r1",
		ExpiresAt:    expires,
	}))

	s, err := store.Find(ctx, "school1")
	require.NoError(t, err)
	assert.Equal(t, "a1", s.AccessToken)
	assert.Equal(t, "r1", s.RefreshToken)
	assert.WithinDuration(t, expires, s.ExpiresAt, time.Second)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestMemoryStoreUpsertReplacesPairWhole(t *testing.T) {
	store := NewMemoryStore(zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, Session{Subdomain: "school1", AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.Now()}))
	first, err := store.Find(ctx, "school1")
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, Session{Subdomain: "school1", AccessToken: "a2", RefreshToken: "r2", ExpiresAt: time.Now().Add(time.Hour)}))
	s, err := store.Find(ctx, "school1")
	require.NoError(t, err)
	assert.Equal(t, "a2", s.AccessToken)
	assert.Equal(t, "r2", s.RefreshToken)
	assert.Equal(t, first.CreatedAt, s.CreatedAt, "creation time survives upserts")
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	store := NewMemoryStore(zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "ghost"))

	require.NoError(t, store.Upsert(ctx, Session{Subdomain: "school1", AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.Now()}))
	require.NoError(t, store.Delete(ctx, "school1"))
	require.NoError(t, store.Delete(ctx, "school1"))

	_, err := store.Find(ctx, "school1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreConcurrentReadersSeeWholePairs(t *testing.T) {
	store := NewMemoryStore(zap.NewNop().Sugar())
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, Session{Subdomain: "school1", AccessToken: "a0", RefreshToken: "r0", ExpiresAt: time.Now()}))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			n := string(rune('0' + i%10))
			_ = store.Upsert(ctx, Session{Subdomain: "school1", AccessToken: "a" + n, RefreshToken: "r" + n, ExpiresAt: time.Now()})
		}
	}()

	for i := 0; i < 1000; i++ {
		s, err := store.Find(ctx, "school1")
		require.NoError(t, err)
		// The pair is written as a unit: suffixes always match.
		assert.Equal(t, s.AccessToken[1:], s.RefreshToken[1:])
	}
	close(stop)
	wg.Wait()
}
