package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/fleetops/busbooking/internal/adapters/redis"
	"github.com/fleetops/busbooking/internal/observability"
)

// RateLimiter is a fixed-window counter in redis.
type RateLimiter struct {
	redis *redisadapter.SeatLock
}

func NewRateLimiter(redis *redisadapter.SeatLock) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a redis outage must not stop ticket sales.
		return true
	}

	allowed := incr.Val() <= int64(rate)
	if !allowed {
		observability.RateLimitExceeded.Inc()
	}
	return allowed
}
