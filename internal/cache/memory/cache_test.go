package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/squidcoin/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_GetSetExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newCache(clock.Now)
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ttl, err := c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	clock.Advance(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	ttl, _ = c.TTL(ctx, "k")
	assert.Equal(t, time.Duration(-2), ttl)
}

func TestCache_SetNX(t *testing.T) {
	c := newCache(time.Now)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", []byte("a"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", []byte("b"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, _ := c.TTL(ctx, "k")
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestCache_IncrementKeepsWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newCache(clock.Now)
	ctx := context.Background()

	n, err := c.Increment(ctx, "attempts", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, c.Expire(ctx, "attempts", time.Minute))

	n, err = c.Increment(ctx, "attempts", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	clock.Advance(61 * time.Second)
	n, err = c.Increment(ctx, "attempts", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCache_ConcurrentIncrement(t *testing.T) {
	c := newCache(time.Now)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Increment(ctx, "n", 1)
		}()
	}
	wg.Wait()

	got, err := c.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "50", string(got))
}
