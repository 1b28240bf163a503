package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares counters between instances through Redis INCR with a
// key expiry equal to the window.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	period time.Duration
}

func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.period).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		// A key left without expiry by a crash between INCR and EXPIRE
		// would otherwise block forever.
		_ = l.client.Expire(ctx, k, l.period).Err()
		ttl = l.period
	}

	return decide(count, l.limit, ttl), nil
}
