package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is an in-process limiter suitable for single-instance
// deployments.
type MemoryLimiter struct {
	inner *limiter.Limiter
	max   int
}

// NewMemoryLimiter constructs a limiter allowing max events per window.
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return &MemoryLimiter{inner: limiter.New(memory.NewStore(), rate), max: max}
}

// Allow implements the Limiter interface.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	lctx, err := l.inner.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     l.max,
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
