package database

import (
	"context"
	"testing"
	"time"

	"storefront-service/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestCartRepository_SaveLoadDelete(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)
	ctx := context.Background()

	snap, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	lines := []models.CartLine{
		{ID: 1, Name: "Mug", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		{ID: 2, Name: "Pen", UnitPrice: decimal.RequireFromString("1.25"), Quantity: 1},
	}
	require.NoError(t, repo.Save(ctx, "s1", lines))
	assert.True(t, mr.Exists("storefront:cart:s1"))
	assert.Equal(t, time.Hour, mr.TTL("storefront:cart:s1"))

	snap, err = repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("1.25").Equal(snap.Items[1].UnitPrice))

	require.NoError(t, repo.Save(ctx, "s1", nil))
	assert.False(t, mr.Exists("storefront:cart:s1"))
}

func TestCartRepository_LoadCorrupt(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)
	require.NoError(t, mr.Set("storefront:cart:bad", "{not json"))

	_, err := repo.Load(context.Background(), "bad")
	assert.Error(t, err)
}

func TestIdempotencyRepository(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewIdempotencyRepository(client, 24*time.Hour)
	ctx := context.Background()

	v, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, repo.Set(ctx, "key-1", "TRACK-1"))
	v, err = repo.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "TRACK-1", v)

	mr.FastForward(25 * time.Hour)
	v, err = repo.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestReferenceCache(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewReferenceCache(client, time.Hour)
	ctx := context.Background()

	_, err := cache.Countries(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	countries := []models.Country{{ID: 1, Code: "CA", Name: "Canada"}}
	require.NoError(t, cache.SetCountries(ctx, countries))
	got, err := cache.Countries(ctx)
	require.NoError(t, err)
	assert.Equal(t, countries, got)

	_, err = cache.Regions(ctx, "CA")
	assert.ErrorIs(t, err, ErrCacheMiss)

	regions := []models.Region{{ID: 10, Name: "Alberta"}, {ID: 11, Name: "Ontario"}}
	require.NoError(t, cache.SetRegions(ctx, "CA", regions))
	gotRegions, err := cache.Regions(ctx, "CA")
	require.NoError(t, err)
	assert.Equal(t, regions, gotRegions)
}
