// Package ratelimit bounds how often a requester may submit VINs.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter backed by Redis. A nil client or a
// non-positive limit disables limiting.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLimiter creates a per-minute submission limiter.
func NewLimiter(client *redis.Client, perMinute int) *Limiter {
	return &Limiter{
		client: client,
		limit:  perMinute,
		window: time.Minute,
	}
}

// Allow reports whether the requester may submit now. Counting and expiry
// are a single INCR/EXPIRE pair, so concurrent submissions share one
// window. If Redis is unreachable the limiter fails open: a lookup outage
// should not stop ticket intake.
func (l *Limiter) Allow(ctx context.Context, requesterID string) (bool, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:submit:%s:%d", requesterID, time.Now().Unix()/int64(l.window.Seconds()))

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}
