package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLock is a DistributedLock that remembers the keys it saw.
type recordingLock struct {
	keys []string
}

func (r *recordingLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	r.keys = append(r.keys, key)
	return true, nil
}

func (r *recordingLock) AcquireWithRetry(_ context.Context, key string, _ time.Duration, _ int, _ time.Duration) (bool, error) {
	r.keys = append(r.keys, key)
	return true, nil
}

func (r *recordingLock) Release(_ context.Context, key string) (bool, error) {
	r.keys = append(r.keys, key)
	return true, nil
}

func (r *recordingLock) Extend(_ context.Context, key string, _ time.Duration) (bool, error) {
	r.keys = append(r.keys, key)
	return true, nil
}

func (r *recordingLock) IsHeld(_ context.Context, key string) (bool, error) {
	r.keys = append(r.keys, key)
	return true, nil
}

func TestRedisLocker_Namespace(t *testing.T) {
	rec := &recordingLock{}
	l := NewRedisLocker(rec)
	ctx := context.Background()

	key := Keys.Transaction("tx-1")
	_, err := l.AcquireWithRetry(ctx, key, time.Second, 1, time.Millisecond)
	require.NoError(t, err)
	_, err = l.Release(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"squid:lock:transaction:tx-1",
		"squid:lock:transaction:tx-1",
	}, rec.keys)
}

func TestRedisLocker_EmptyNamespace(t *testing.T) {
	rec := &recordingLock{}
	l := NewRedisLockerWithNamespace(rec, "")

	_, err := l.IsHeld(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, rec.keys)
}
