package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otp-auth-service/internal/identity"
)

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewChallengeStore()
	id := identity.NewEmail("user@example.com")
	now := time.Now()

	require.NoError(t, store.Put(ctx, id, "digest-1", now))
	_, err := store.IncrementAttempts(ctx, id)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, id, "digest-2", now))

	ch, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "digest-2", ch.Digest)
	assert.Equal(t, 0, ch.Attempts)
	assert.Equal(t, ch.CreatedAt+300, ch.ExpiresAt)
}

func TestConcurrentAttemptIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewChallengeStore()
	id := identity.NewPhone("+15551234567")
	require.NoError(t, store.Put(ctx, id, "d", time.Now()))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.IncrementAttempts(ctx, id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ch, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, n, ch.Attempts)
}

func TestConcurrentDailyCounter(t *testing.T) {
	ctx := context.Background()
	store := NewChallengeStore()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.IncrementDailyCounter(ctx, "2026-08-31", time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := store.IncrementDailyCounter(ctx, "2026-08-31", time.Now())
	require.NoError(t, err)
	assert.Equal(t, n+1, final)

	// A different day starts from scratch.
	count, err := store.IncrementDailyCounter(ctx, "2026-09-01", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := NewChallengeStore()
	id := identity.NewEmail("gone@example.com")
	require.NoError(t, store.Put(ctx, id, "d", time.Now()))
	require.NoError(t, store.Delete(ctx, id))

	_, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
