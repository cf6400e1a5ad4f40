package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a sliding window rate limiter backed by Redis
// sorted sets, so the limit holds across instances.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
}

// Allow registers an event for the given key and returns whether it is within the limit.
func (l RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return Result{Allowed: true, Limit: l.Max, Remaining: l.Max, Reset: time.Now().Add(l.Window)}, nil
	}

	now := time.Now()
	until := now.Add(l.Window)
	cutoff := float64(now.Add(-l.Window).UnixNano())

	redisKey := l.Prefix + key
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	current := int(countCmd.Val())
	remaining := l.Max - current
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   current <= l.Max,
		Limit:     l.Max,
		Remaining: remaining,
		Reset:     until,
	}, nil
}
