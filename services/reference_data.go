package services

import (
	"context"
	"errors"
	"time"

	"storefront-service/clients"
	"storefront-service/database"
	"storefront-service/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// sharedLookupTimeout bounds a coalesced gateway call, which no longer
// follows any single caller's context.
const sharedLookupTimeout = 15 * time.Second

// ReferenceData serves countries and regions to checkout forms. Lookups are
// coalesced across sessions and cached in redis when a cache is configured.
type ReferenceData struct {
	gateway clients.ReferenceGateway
	cache   *database.ReferenceCache
	group   singleflight.Group
	logger  *zap.Logger
}

// NewReferenceData creates the service. cache may be nil.
func NewReferenceData(gateway clients.ReferenceGateway, cache *database.ReferenceCache, logger *zap.Logger) *ReferenceData {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceData{gateway: gateway, cache: cache, logger: logger}
}

func (r *ReferenceData) Countries(ctx context.Context) ([]models.Country, error) {
	if r.cache != nil {
		countries, err := r.cache.Countries(ctx)
		if err == nil {
			return countries, nil
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			r.logger.Warn("reference cache read failed", zap.String("key", "countries"), zap.Error(err))
		}
	}

	return coalesce(ctx, &r.group, "countries", func(ctx context.Context) ([]models.Country, error) {
		countries, err := r.gateway.Countries(ctx)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.SetCountries(ctx, countries); err != nil {
				r.logger.Warn("reference cache write failed", zap.String("key", "countries"), zap.Error(err))
			}
		}
		return countries, nil
	})
}

// Regions returns the regions of a country, in backend order.
func (r *ReferenceData) Regions(ctx context.Context, countryCode string) ([]models.Region, error) {
	if r.cache != nil {
		regions, err := r.cache.Regions(ctx, countryCode)
		if err == nil {
			return regions, nil
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			r.logger.Warn("reference cache read failed", zap.String("country", countryCode), zap.Error(err))
		}
	}

	return coalesce(ctx, &r.group, "regions:"+countryCode, func(ctx context.Context) ([]models.Region, error) {
		regions, err := r.gateway.Regions(ctx, countryCode)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.SetRegions(ctx, countryCode, regions); err != nil {
				r.logger.Warn("reference cache write failed", zap.String("country", countryCode), zap.Error(err))
			}
		}
		return regions, nil
	})
}

// coalesce runs fn once per key for all concurrent callers. The shared call
// is detached from ctx so one caller giving up does not fail the others;
// each caller still stops waiting when its own ctx is done.
func coalesce[T any](ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := g.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return fn(shared)
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
