package lock

import (
	"context"
	"time"

	"github.com/prn-tf/squidcoin/internal/repository"
)

// DefaultRedisNamespace prefixes every key written by a RedisLocker.
const DefaultRedisNamespace = "squid:"

// RedisLocker adapts a repository.DistributedLock to Locker.
// Keys are namespaced so several deployments can share one Redis.
type RedisLocker struct {
	dl        repository.DistributedLock
	namespace string
}

// NewRedisLocker wraps dl using DefaultRedisNamespace.
func NewRedisLocker(dl repository.DistributedLock) *RedisLocker {
	return NewRedisLockerWithNamespace(dl, DefaultRedisNamespace)
}

// NewRedisLockerWithNamespace wraps dl with a custom key prefix. An empty
// namespace leaves keys untouched.
func NewRedisLockerWithNamespace(dl repository.DistributedLock, namespace string) *RedisLocker {
	return &RedisLocker{dl: dl, namespace: namespace}
}

func (l *RedisLocker) key(k string) string {
	return l.namespace + k
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.dl.Acquire(ctx, l.key(key), ttl)
}

func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return l.dl.AcquireWithRetry(ctx, l.key(key), ttl, maxRetries, retryDelay)
}

func (l *RedisLocker) Release(ctx context.Context, key string) (bool, error) {
	return l.dl.Release(ctx, l.key(key))
}

func (l *RedisLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.dl.Extend(ctx, l.key(key), ttl)
}

func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return l.dl.IsHeld(ctx, l.key(key))
}

var _ Locker = (*RedisLocker)(nil)
