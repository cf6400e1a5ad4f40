package user

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// quotaScript atomically applies the check-and-increment for one quota key.
// Day rollover is implicit: the key embeds the UTC calendar date, so a new day
// starts from a fresh key.
const quotaScript = `local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
  return -1
end
current = redis.call("INCR", KEYS[1])
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
return current`

// RedisQuotaLedger keeps the per-user daily send counters in Redis so multiple
// instances share one quota window. It does not know about directory
// membership; deployments that need the missing-user signal keep the
// MemoryStore ledger in front.
type RedisQuotaLedger struct {
	Client *redis.Client
	Prefix string

	// Now is the wall clock for the quota window; tests pin it.
	Now func() time.Time
}

// ChargeDailyQuota consumes one unit of the user's quota for the current UTC
// calendar date or returns ErrQuotaExceeded.
func (l RedisQuotaLedger) ChargeDailyQuota(ctx context.Context, id int64, limit int) error {
	if l.Client == nil {
		return fmt.Errorf("redis quota: client not configured")
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = "mailer:quota:"
	}
	key := fmt.Sprintf("%s%d:%s", prefix, id, DateKey(now()))

	// Keys expire two days out so stale windows clean themselves up.
	const keyTTLSeconds = 2 * 24 * 60 * 60
	n, err := l.Client.Eval(ctx, quotaScript, []string{key}, limit, keyTTLSeconds).Int64()
	if err != nil {
		return fmt.Errorf("redis quota: %w", err)
	}
	if n < 0 {
		return ErrQuotaExceeded
	}
	return nil
}
