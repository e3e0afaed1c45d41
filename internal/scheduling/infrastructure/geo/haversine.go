// Package geo provides travel distance/time estimators: straight-line
// haversine math as the always-available baseline, an HTTP routing service
// client behind a circuit breaker, and a Redis cache that fronts either.
package geo

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
)

// ErrInvalidCoordinates is returned when an estimate is requested for an
// unset coordinate pair.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

const earthRadiusKm = 6371.0

// HaversineEstimator estimates travel with great-circle distance and a flat
// average speed. It needs no network and is the fallback for every other
// estimator in this package.
type HaversineEstimator struct {
	// SpeedKmh converts distance into travel time.
	SpeedKmh float64

	// RoadFactor inflates the straight-line distance to approximate road
	// distance. 1.0 uses the great-circle distance as-is.
	RoadFactor float64
}

// NewHaversineEstimator creates an estimator with a 40 km/h average field
// speed and a 1.3 road factor.
func NewHaversineEstimator() *HaversineEstimator {
	return &HaversineEstimator{SpeedKmh: 40, RoadFactor: 1.3}
}

// Estimate computes distance and travel time between two points.
func (e *HaversineEstimator) Estimate(ctx context.Context, from, to domain.Coordinates) (domain.TravelEstimate, error) {
	if from.IsZero() || to.IsZero() {
		return domain.TravelEstimate{}, ErrInvalidCoordinates
	}

	distance := haversineKm(from, to)
	if e.RoadFactor > 0 {
		distance *= e.RoadFactor
	}

	speed := e.SpeedKmh
	if speed <= 0 {
		speed = 40
	}
	duration := time.Duration(distance / speed * float64(time.Hour))

	return domain.TravelEstimate{DistanceKm: distance, Duration: duration}, nil
}

func haversineKm(from, to domain.Coordinates) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLng := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
