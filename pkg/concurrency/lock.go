package concurrency

import (
	"context"
	"time"
)

// Lock is a channel-based mutual exclusion lock that supports bounded and
// non-blocking acquisition attempts in addition to context-aware locking.
// The zero value is not usable; construct with NewLock.
type Lock struct {
	ch chan struct{}
}

func NewLock() *Lock {
	return &Lock{
		ch: make(chan struct{}, 1),
	}
}

// Lock acquires the lock, giving up when the context is done.
func (l *Lock) Lock(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.ch <- struct{}{}:
	}

	// guard against the context expiring and the lock being acquired at the same time
	if ctx.Err() != nil {
		l.Unlock()
		return ctx.Err()
	}

	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *Lock) TryLock() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// LockFor attempts to acquire the lock, waiting at most d. It reports
// whether the lock was acquired; it never blocks past the bound.
func (l *Lock) LockFor(d time.Duration) bool {
	if l.TryLock() {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case l.ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Unlock releases the lock. Unlocking an unlocked Lock is a no-op.
func (l *Lock) Unlock() {
	// Non-blocking for caller
	select {
	case <-l.ch:
	default:
	}
}
