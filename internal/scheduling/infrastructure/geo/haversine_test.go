package geo

import (
	"context"
	"testing"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineEstimator_Estimate(t *testing.T) {
	estimator := &HaversineEstimator{SpeedKmh: 40, RoadFactor: 1.0}

	tests := []struct {
		name   string
		from   domain.Coordinates
		to     domain.Coordinates
		wantKm float64
	}{
		{
			name:   "one degree of longitude at the equator",
			from:   domain.Coordinates{Latitude: 0.001, Longitude: 0},
			to:     domain.Coordinates{Latitude: 0.001, Longitude: 1},
			wantKm: 111.19,
		},
		{
			name:   "berlin to potsdam",
			from:   domain.Coordinates{Latitude: 52.5200, Longitude: 13.4050},
			to:     domain.Coordinates{Latitude: 52.3906, Longitude: 13.0645},
			wantKm: 27.3,
		},
		{
			name:   "same point",
			from:   domain.Coordinates{Latitude: 52.52, Longitude: 13.40},
			to:     domain.Coordinates{Latitude: 52.52, Longitude: 13.40},
			wantKm: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimate, err := estimator.Estimate(context.Background(), tt.from, tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantKm, estimate.DistanceKm, 0.5)
		})
	}
}

func TestHaversineEstimator_RoadFactorInflatesDistance(t *testing.T) {
	from := domain.Coordinates{Latitude: 52.5200, Longitude: 13.4050}
	to := domain.Coordinates{Latitude: 52.3906, Longitude: 13.0645}

	straight, err := (&HaversineEstimator{SpeedKmh: 40, RoadFactor: 1.0}).Estimate(context.Background(), from, to)
	require.NoError(t, err)
	road, err := NewHaversineEstimator().Estimate(context.Background(), from, to)
	require.NoError(t, err)

	assert.InDelta(t, straight.DistanceKm*1.3, road.DistanceKm, 0.01)
}

func TestHaversineEstimator_DurationFollowsSpeed(t *testing.T) {
	estimator := &HaversineEstimator{SpeedKmh: 40, RoadFactor: 1.0}
	from := domain.Coordinates{Latitude: 0.001, Longitude: 0}
	to := domain.Coordinates{Latitude: 0.001, Longitude: 1}

	estimate, err := estimator.Estimate(context.Background(), from, to)
	require.NoError(t, err)

	wantHours := estimate.DistanceKm / 40
	assert.InDelta(t, wantHours, estimate.Duration.Hours(), 0.01)
}

func TestHaversineEstimator_RejectsUnsetCoordinates(t *testing.T) {
	estimator := NewHaversineEstimator()

	_, err := estimator.Estimate(context.Background(), domain.Coordinates{}, domain.Coordinates{Latitude: 52.52, Longitude: 13.40})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = estimator.Estimate(context.Background(), domain.Coordinates{Latitude: 52.52, Longitude: 13.40}, domain.Coordinates{})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestHaversineEstimator_ZeroSpeedFallsBackToDefault(t *testing.T) {
	estimator := &HaversineEstimator{SpeedKmh: 0, RoadFactor: 1.0}
	from := domain.Coordinates{Latitude: 0.001, Longitude: 0}
	to := domain.Coordinates{Latitude: 0.001, Longitude: 1}

	estimate, err := estimator.Estimate(context.Background(), from, to)
	require.NoError(t, err)
	assert.Greater(t, estimate.Duration, time.Duration(0))
}
