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

const (
	countriesCacheKey  = "storefront:ref:countries"
	regionsCachePrefix = "storefront:ref:regions:"
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// ReferenceCache caches country and region lists, which change rarely.
type ReferenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReferenceCache(client *redis.Client, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{client: client, ttl: ttl}
}

func (c *ReferenceCache) Countries(ctx context.Context) ([]models.Country, error) {
	var out []models.Country
	if err := c.get(ctx, countriesCacheKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReferenceCache) SetCountries(ctx context.Context, countries []models.Country) error {
	return c.set(ctx, countriesCacheKey, countries)
}

func (c *ReferenceCache) Regions(ctx context.Context, countryCode string) ([]models.Region, error) {
	var out []models.Region
	if err := c.get(ctx, regionsCachePrefix+countryCode, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReferenceCache) SetRegions(ctx context.Context, countryCode string, regions []models.Region) error {
	return c.set(ctx, regionsCachePrefix+countryCode, regions)
}

func (c *ReferenceCache) get(ctx context.Context, key string, out interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *ReferenceCache) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
