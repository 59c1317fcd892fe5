package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/models"

	"github.com/redis/go-redis/v9"
)

// CartSnapshot is the persisted form of a session's cart.
type CartSnapshot struct {
	SessionID string            `json:"session_id"`
	Items     []models.CartLine `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CartRepository keeps cart snapshots so a session's cart survives a restart of
// the storefront or a hop to another instance.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

func (r *CartRepository) key(sessionID string) string {
	return fmt.Sprintf("storefront:cart:%s", sessionID)
}

// Load returns nil, nil when no snapshot exists.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*CartSnapshot, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var snap CartSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &snap, nil
}

// Save stores the lines, or deletes the snapshot when the cart is empty.
func (r *CartRepository) Save(ctx context.Context, sessionID string, lines []models.CartLine) error {
	if len(lines) == 0 {
		return r.Delete(ctx, sessionID)
	}

	data, err := json.Marshal(CartSnapshot{
		SessionID: sessionID,
		Items:     lines,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}
