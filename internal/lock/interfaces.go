// Package lock serializes work on shared records.
// Transaction status changes take a per-transaction lock, and the expiry
// worker takes a global one so only one instance sweeps at a time.
// MemoryLocker serves a single node; RedisLocker spans instances.
package lock

import (
	"context"
	"time"
)

// Locker grants exclusive, expiring, named locks.
type Locker interface {
	// Acquire takes the lock without waiting. False means someone else holds it.
	// The lock expires after ttl even if never released.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry keeps trying for about maxRetries*retryDelay.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release drops the lock. False means it was not held.
	Release(ctx context.Context, key string) (bool, error)

	// Extend resets the TTL of a held lock. False means it was lost.
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsHeld reports whether anyone holds the lock.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Lock tracks one named lock so callers can release it without repeating the key.
type Lock struct {
	locker Locker
	key    string
	held   bool
}

// NewLock creates a new Lock instance.
func NewLock(locker Locker, key string) *Lock {
	return &Lock{
		locker: locker,
		key:    key,
		held:   false,
	}
}

// Acquire attempts to acquire the lock.
func (l *Lock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	acquired, err := l.locker.Acquire(ctx, l.key, ttl)
	if err != nil {
		return false, err
	}
	l.held = acquired
	return acquired, nil
}

// AcquireWithRetry attempts to acquire the lock, retrying while it is held elsewhere.
func (l *Lock) AcquireWithRetry(ctx context.Context, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	acquired, err := l.locker.AcquireWithRetry(ctx, l.key, ttl, maxRetries, retryDelay)
	if err != nil {
		return false, err
	}
	l.held = acquired
	return acquired, nil
}

// Release releases the lock.
func (l *Lock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	_, err := l.locker.Release(ctx, l.key)
	l.held = false
	return err
}

// Extend extends the lock TTL.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	if !l.held {
		return nil
	}
	extended, err := l.locker.Extend(ctx, l.key, ttl)
	if err != nil {
		return err
	}
	if !extended {
		l.held = false
	}
	return nil
}

// IsHeld returns whether the lock is held.
func (l *Lock) IsHeld() bool {
	return l.held
}

// Keys builds the lock names used across services.
var Keys = lockKeys{}

type lockKeys struct{}

// Transaction returns a lock key serializing status changes of one transaction.
func (lockKeys) Transaction(transactionID string) string {
	return "lock:transaction:" + transactionID
}

// PendingExpiry returns the lock key for the pending-transaction expiry worker.
func (lockKeys) PendingExpiry() string {
	return "lock:expiry:pending"
}
