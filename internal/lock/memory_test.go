package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx := context.Background()
	key := Keys.Transaction("tx-1")

	ok, err := m.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	held, err := m.IsHeld(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)

	released, err := m.Release(ctx, key)
	require.NoError(t, err)
	assert.True(t, released)

	ok, err = m.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_ExpiredLockCanBeTaken(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx := context.Background()

	ok, err := m.Acquire(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	ok, err = m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_AcquireWithRetry(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx := context.Background()

	_, err := m.Acquire(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)

	ok, err := m.AcquireWithRetry(ctx, "k", time.Minute, 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Wrapper(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx := context.Background()

	l := NewLock(m, Keys.PendingExpiry())
	ok, err := l.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, l.IsHeld())

	require.NoError(t, l.Release(ctx))
	assert.False(t, l.IsHeld())

	held, err := m.IsHeld(ctx, Keys.PendingExpiry())
	require.NoError(t, err)
	assert.False(t, held)
}

func TestMemoryLocker_ReleaseWakesWaiter(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx := context.Background()
	key := Keys.Transaction("tx-wait")

	ok, err := m.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = m.Release(ctx, key)
	}()

	// One long retry slot; the release must cut the wait short
	start := time.Now()
	ok, err = m.AcquireWithRetry(ctx, key, time.Minute, 1, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMemoryLocker_AcquireWithRetryGivesUp(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx := context.Background()

	_, err := m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	ok, err := m.AcquireWithRetry(ctx, "k", time.Minute, 3, 5*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLocker_CanceledContext(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLocker_Sweep(t *testing.T) {
	m := NewMemoryLocker()
	t.Cleanup(m.Stop)
	ctx := context.Background()

	_, err := m.Acquire(ctx, "k", time.Millisecond)
	require.NoError(t, err)

	m.sweep(time.Now().Add(time.Second))

	m.mu.Lock()
	n := len(m.locks)
	m.mu.Unlock()
	assert.Zero(t, n)
}
