package concurrency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_TryLock(t *testing.T) {
	t.Parallel()

	l := NewLock()
	assert.True(t, l.TryLock(), "uncontended TryLock should succeed")
	assert.False(t, l.TryLock(), "TryLock on a held lock should fail")

	l.Unlock()
	assert.True(t, l.TryLock(), "TryLock after Unlock should succeed")
}

func TestLock_LockForTimesOut(t *testing.T) {
	t.Parallel()

	l := NewLock()
	require.True(t, l.TryLock())

	start := time.Now()
	acquired := l.LockFor(100 * time.Millisecond)
	assert.False(t, acquired)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestLock_LockForAcquiresWhenReleased(t *testing.T) {
	t.Parallel()

	l := NewLock()
	require.True(t, l.TryLock())

	go func() {
		time.Sleep(50 * time.Millisecond)
		l.Unlock()
	}()

	assert.True(t, l.LockFor(5*time.Second))
}

func TestLock_ContextCancellation(t *testing.T) {
	t.Parallel()

	l := NewLock()
	require.NoError(t, l.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Lock(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLock_UnlockIsNonBlocking(t *testing.T) {
	t.Parallel()

	l := NewLock()
	// Unlocking an unlocked lock must not panic or block.
	l.Unlock()
	l.Unlock()
	assert.True(t, l.TryLock())
}
