package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/redis/go-redis/v9"
)

// CachedEstimator fronts another estimator with a Redis cache. Distances
// between fixed installation sites rarely change, so cache hits cut most
// routing traffic during repeated detection runs. Redis failures degrade to
// the inner estimator, never to an error.
type CachedEstimator struct {
	client *redis.Client
	next   domain.DistanceEstimator
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedEstimator creates a caching estimator with the given TTL.
func NewCachedEstimator(client *redis.Client, next domain.DistanceEstimator, ttl time.Duration, logger *slog.Logger) *CachedEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEstimator{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

// Estimate returns the cached estimate when present, otherwise delegates and
// stores the result.
func (e *CachedEstimator) Estimate(ctx context.Context, from, to domain.Coordinates) (domain.TravelEstimate, error) {
	key := cacheKey(from, to)

	cached, err := e.client.Get(ctx, key).Bytes()
	if err == nil {
		var estimate domain.TravelEstimate
		if err := json.Unmarshal(cached, &estimate); err == nil {
			return estimate, nil
		}
		// Corrupt entry, fall through and overwrite it.
	} else if err != redis.Nil {
		e.logger.Debug("travel cache read failed", "key", key, "error", err)
	}

	estimate, err := e.next.Estimate(ctx, from, to)
	if err != nil {
		return domain.TravelEstimate{}, err
	}

	if payload, err := json.Marshal(estimate); err == nil {
		if err := e.client.Set(ctx, key, payload, e.ttl).Err(); err != nil {
			e.logger.Debug("travel cache write failed", "key", key, "error", err)
		}
	}
	return estimate, nil
}

// cacheKey is symmetric-free on purpose: routing services can return
// direction-dependent results.
func cacheKey(from, to domain.Coordinates) string {
	return fmt.Sprintf("travel:%.5f,%.5f:%.5f,%.5f",
		from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}
