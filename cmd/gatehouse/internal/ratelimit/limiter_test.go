package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLimiter_WindowAndReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lim := NewInMemory(time.Minute)
	lim.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		d, err := lim.Allow(ctx, "api:user-1", 2)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := lim.Allow(ctx, "api:user-1", 2)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, now.Add(time.Minute), d.ResetAt)

	other, err := lim.Allow(ctx, "api:user-2", 2)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(time.Minute)
	d, err = lim.Allow(ctx, "api:user-1", 2)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestInMemoryLimiter_SweepsOncePerWindow(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	lim := NewInMemory(time.Minute)
	lim.now = func() time.Time { return now }
	ctx := context.Background()

	allow := func(key string, at time.Duration) {
		now = t0.Add(at)
		_, err := lim.Allow(ctx, key, 10)
		require.NoError(t, err)
	}

	allow("a", 0)
	allow("b", 0)
	allow("c", 30*time.Second)
	assert.Len(t, lim.items, 3)

	// First sweep after a full window drops a and b.
	allow("d", 61*time.Second)
	assert.Len(t, lim.items, 2)

	// c has expired, but the next sweep is not due yet.
	allow("e", 91*time.Second)
	assert.Len(t, lim.items, 3)
	assert.Contains(t, lim.items, "c")

	allow("f", 121*time.Second)
	assert.NotContains(t, lim.items, "c")
	assert.NotContains(t, lim.items, "d")
	assert.Len(t, lim.items, 2)
}

func TestInMemoryLimiter_Defaults(t *testing.T) {
	lim := NewInMemory(0)
	assert.Equal(t, time.Minute, lim.window)

	d, err := lim.Allow(context.Background(), "k", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Limit)
	assert.True(t, d.Allowed)
	assert.NoError(t, lim.Ping(context.Background()))
}

func TestInMemoryLimiter_Concurrent(t *testing.T) {
	lim := NewInMemory(time.Minute)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := lim.Allow(context.Background(), "shared", 10)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 31*time.Second, Decision{ResetAt: now.Add(30500 * time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, time.Second, Decision{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}
