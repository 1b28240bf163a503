// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one counted request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts a request against key. Implementations backed by a remote
// store return an error when the store is unreachable; callers decide
// whether to let the request through.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count int64, limit int, ttl time.Duration) Decision {
	d := Decision{Limit: limit, Remaining: limit - int(count)}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if count > int64(limit) {
		d.RetryAfter = ttl
		return d
	}
	d.Allowed = true
	return d
}
