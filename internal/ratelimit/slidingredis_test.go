package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, window time.Duration, max int) RedisLimiter {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return RedisLimiter{Client: client, Prefix: "test:rl:", Window: window, Max: max}
}

func TestRedisLimiterEnforcesWindow(t *testing.T) {
	l := newRedisLimiter(t, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	result, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Zero(t, result.Remaining)
}

func TestRedisLimiterKeysAreIndependent(t *testing.T) {
	l := newRedisLimiter(t, time.Minute, 1)
	ctx := context.Background()

	result, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, result.Allowed)
}

func TestRedisLimiterAllowsWhenUnconfigured(t *testing.T) {
	result, err := RedisLimiter{}.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.True(t, result.Allowed)
}
