package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyRepository remembers the tracking number produced for an
// Idempotency-Key so a repeated submission does not place a second order.
type IdempotencyRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyRepository(client *redis.Client, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{client: client, ttl: ttl}
}

func (r *IdempotencyRepository) key(k string) string {
	return "idem:storefront:order:" + k
}

// Get returns "" when the key has not been used.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get idempotency key: %w", err)
	}
	return val, nil
}

func (r *IdempotencyRepository) Set(ctx context.Context, key, trackingNumber string) error {
	if err := r.client.Set(ctx, r.key(key), trackingNumber, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency key: %w", err)
	}
	return nil
}
