package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "billing:payment_failures:"

// RedisAttempts is an AttemptTracker backed by Redis, surviving process
// restarts and shared across replicas. Counts expire after TTL so an
// abandoned membership does not hold a key forever.
type RedisAttempts struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAttempts creates a Redis-backed tracker. Panics if client is
// nil. A non-positive ttl defaults to 30 days.
func NewRedisAttempts(client *redis.Client, ttl time.Duration) *RedisAttempts {
	if client == nil {
		panic("webhook: redis client is required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisAttempts{client: client, ttl: ttl}
}

func (a *RedisAttempts) Incr(ctx context.Context, membershipID string) (int, error) {
	key := attemptKeyPrefix + membershipID

	count, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment payment failure count: %w", err)
	}
	// Refresh the window on every failure so an active dunning sequence
	// never expires mid-flight.
	if err := a.client.Expire(ctx, key, a.ttl).Err(); err != nil {
		return int(count), fmt.Errorf("failed to set payment failure count expiry: %w", err)
	}
	return int(count), nil
}

func (a *RedisAttempts) Reset(ctx context.Context, membershipID string) error {
	if err := a.client.Del(ctx, attemptKeyPrefix+membershipID).Err(); err != nil {
		return fmt.Errorf("failed to reset payment failure count: %w", err)
	}
	return nil
}
