package lock

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often expired entries are dropped.
const sweepInterval = 30 * time.Second

// MemoryLocker implements Locker with process-local locks.
// Locks are not shared across instances, so it only suits single-node deployments.
// Waiters in AcquireWithRetry are woken when the holder releases, instead of
// sleeping a full retry delay.
type MemoryLocker struct {
	mu     sync.Mutex
	locks  map[string]*lockEntry
	stopCh chan struct{}
	once   sync.Once
}

type lockEntry struct {
	expiresAt time.Time

	// released is closed when the entry is released or replaced.
	released chan struct{}
}

func (e *lockEntry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// NewMemoryLocker creates a new in-memory locker with a background sweeper.
func NewMemoryLocker() *MemoryLocker {
	ml := &MemoryLocker{
		locks:  make(map[string]*lockEntry),
		stopCh: make(chan struct{}),
	}
	go ml.sweepLoop()
	return ml
}

func (m *MemoryLocker) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// Stop stops the sweeper. Held locks stay valid until they expire.
func (m *MemoryLocker) Stop() {
	m.once.Do(func() { close(m.stopCh) })
}

func (m *MemoryLocker) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.locks {
		if !entry.live(now) {
			m.dropLocked(key, entry)
		}
	}
}

// dropLocked removes the entry and wakes its waiters. m.mu must be held.
func (m *MemoryLocker) dropLocked(key string, entry *lockEntry) {
	delete(m.locks, key)
	close(entry.released)
}

// tryAcquire takes the lock, or returns the live entry blocking it.
func (m *MemoryLocker) tryAcquire(key string, ttl time.Duration) (bool, *lockEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if entry, ok := m.locks[key]; ok {
		if entry.live(now) {
			return false, entry
		}
		m.dropLocked(key, entry)
	}

	m.locks[key] = &lockEntry{
		expiresAt: now.Add(ttl),
		released:  make(chan struct{}),
	}
	return true, nil
}

// Acquire attempts to acquire a lock without waiting.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	acquired, _ := m.tryAcquire(key, ttl)
	return acquired, nil
}

// AcquireWithRetry waits up to maxRetries*retryDelay for the lock.
// A release or expiry of the current holder triggers an immediate retry.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	deadline := time.Now().Add(time.Duration(maxRetries) * retryDelay)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		acquired, holder := m.tryAcquire(key, ttl)
		if acquired {
			return true, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return false, nil
		}
		if untilExpiry := time.Until(holder.expiresAt); untilExpiry < wait {
			wait = untilExpiry
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-holder.released:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Release releases a lock. Returns false if it was not held.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	m.dropLocked(key, entry)
	return entry.live(time.Now()), nil
}

// Extend pushes the expiry of a live lock.
func (m *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	now := time.Now()
	if !entry.live(now) {
		m.dropLocked(key, entry)
		return false, nil
	}
	entry.expiresAt = now.Add(ttl)
	return true, nil
}

// IsHeld reports whether a live lock exists for key.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	if !entry.live(time.Now()) {
		m.dropLocked(key, entry)
		return false, nil
	}
	return true, nil
}

var _ Locker = (*MemoryLocker)(nil)
