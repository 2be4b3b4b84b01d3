package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// INCR and start the window on the first hit, atomically.
var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter shares counters between server instances through redis.
type RedisLimiter struct {
	client            redis.Scripter
	prefix            string
	requestsPerMinute int
}

func NewRedisLimiter(client redis.Scripter, prefix string, requestsPerMinute int) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:ai"
	}
	return &RedisLimiter{
		client:            client,
		prefix:            prefix,
		requestsPerMinute: requestsPerMinute,
	}
}

func (l *RedisLimiter) key(userID int64) string {
	return fmt.Sprintf("%s:%d", l.prefix, userID)
}

func (l *RedisLimiter) Allow(ctx context.Context, userID int64) error {
	count, err := incrWindowScript.Run(ctx, l.client, []string{l.key(userID)}, Window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to update rate limit counter: %w", err)
	}
	if count > int64(l.requestsPerMinute) {
		logger.Warningf("🚫 rate limit exceeded for user %d (%d/%d)", userID, count-1, l.requestsPerMinute)
		return ErrRateLimitExceeded
	}
	return nil
}
