package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewRedisDefaults(t *testing.T) {
	lim := NewRedis(nil, 0)
	assert.Equal(t, time.Minute, lim.Window)
	assert.Equal(t, "gatehouse:rl:", lim.Prefix)
}

func TestRedisLimiter_Counts(t *testing.T) {
	mr, client := newMiniredisClient(t)
	lim := NewRedis(client, time.Minute)
	ctx := context.Background()

	first, err := lim.Allow(ctx, "auth:10.0.0.1", 2)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Count)
	assert.True(t, first.ResetAt.After(time.Now()))

	_, err = lim.Allow(ctx, "auth:10.0.0.1", 2)
	require.NoError(t, err)

	third, err := lim.Allow(ctx, "auth:10.0.0.1", 2)
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, 3, third.Count)

	assert.True(t, mr.Exists("gatehouse:rl:auth:10.0.0.1"))

	mr.FastForward(time.Minute + time.Second)
	again, err := lim.Allow(ctx, "auth:10.0.0.1", 2)
	require.NoError(t, err)
	assert.True(t, again.Allowed)
	assert.Equal(t, 1, again.Count)
}

func TestRedisLimiter_NegativeTTLUsesWindow(t *testing.T) {
	_, client := newMiniredisClient(t)
	lim := NewRedis(client, 500*time.Millisecond)
	require.NoError(t, client.Set(context.Background(), lim.Prefix+"actor:u3", "1", 0).Err())

	d, err := lim.Allow(context.Background(), "actor:u3", 10)
	require.NoError(t, err)
	assert.True(t, d.ResetAt.After(time.Now().UTC()))
}

func TestRedisLimiter_StoreFailureFailsClosed(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer client.Close()
	lim := NewRedis(client, time.Second)

	d, err := lim.Allow(context.Background(), "k", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, d.Allowed)

	assert.ErrorIs(t, lim.Ping(context.Background()), ErrStoreUnavailable)
}

func TestRedisLimiter_UnexpectedScriptResult(t *testing.T) {
	_, client := newMiniredisClient(t)
	lim := NewRedis(client, time.Second)

	originalScript := rateLimitScript
	rateLimitScript = redis.NewScript(`return "bad-value"`)
	defer func() { rateLimitScript = originalScript }()

	_, err := lim.Allow(context.Background(), "actor:u1", 5)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRedisLimiter_NilClient(t *testing.T) {
	lim := NewRedis(nil, time.Second)

	_, err := lim.Allow(context.Background(), "k", 1)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, lim.Ping(context.Background()), ErrStoreUnavailable)
}

func TestRedisLimiter_Ping(t *testing.T) {
	_, client := newMiniredisClient(t)
	assert.NoError(t, NewRedis(client, time.Second).Ping(context.Background()))
}
