package lock

import (
	"context"
	"time"
)

// NoOpLocker grants every lock immediately.
// Used by the admin CLI and by tests where no other writer runs.
type NoOpLocker struct{}

// NewNoOpLocker creates a new no-op locker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

func (NoOpLocker) Acquire(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (NoOpLocker) AcquireWithRetry(ctx context.Context, _ string, _ time.Duration, _ int, _ time.Duration) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (NoOpLocker) Release(ctx context.Context, _ string) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (NoOpLocker) Extend(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

// IsHeld is always false; nothing is tracked.
func (NoOpLocker) IsHeld(ctx context.Context, _ string) (bool, error) {
	return false, ctx.Err()
}

var _ Locker = (*NoOpLocker)(nil)
