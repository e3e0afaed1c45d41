package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/sony/gobreaker/v2"
)

// RoutingClientConfig configures the routing service client.
type RoutingClientConfig struct {
	// BaseURL of the routing service, e.g. "https://routing.internal".
	BaseURL string

	// RequestTimeout bounds each routing call.
	RequestTimeout time.Duration

	// BreakerMaxRequests is the half-open request allowance.
	BreakerMaxRequests uint32

	// BreakerInterval is the cyclic period of the closed state.
	BreakerInterval time.Duration

	// BreakerTimeout is the open-state period before a retry.
	BreakerTimeout time.Duration
}

// DefaultRoutingClientConfig returns the default client configuration.
func DefaultRoutingClientConfig(baseURL string) RoutingClientConfig {
	return RoutingClientConfig{
		BaseURL:            baseURL,
		RequestTimeout:     5 * time.Second,
		BreakerMaxRequests: 3,
		BreakerInterval:    time.Minute,
		BreakerTimeout:     30 * time.Second,
	}
}

// RoutingClient asks an external routing service for road distance and
// drive time. Calls run through a circuit breaker; when the service is
// down or the breaker is open, estimates fall back to haversine math so
// detection keeps working.
type RoutingClient struct {
	baseURL  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[domain.TravelEstimate]
	fallback *HaversineEstimator
	logger   *slog.Logger
}

// NewRoutingClient creates a routing service client.
func NewRoutingClient(config RoutingClientConfig, fallback *HaversineEstimator, logger *slog.Logger) *RoutingClient {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == nil {
		fallback = NewHaversineEstimator()
	}

	settings := gobreaker.Settings{
		Name:        "routing-service",
		MaxRequests: config.BreakerMaxRequests,
		Interval:    config.BreakerInterval,
		Timeout:     config.BreakerTimeout,
	}

	return &RoutingClient{
		baseURL:  config.BaseURL,
		client:   &http.Client{Timeout: config.RequestTimeout},
		breaker:  gobreaker.NewCircuitBreaker[domain.TravelEstimate](settings),
		fallback: fallback,
		logger:   logger,
	}
}

// routeResponse is the routing service's wire format.
type routeResponse struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Estimate queries the routing service, degrading to haversine on failure.
func (c *RoutingClient) Estimate(ctx context.Context, from, to domain.Coordinates) (domain.TravelEstimate, error) {
	if from.IsZero() || to.IsZero() {
		return domain.TravelEstimate{}, ErrInvalidCoordinates
	}

	estimate, err := c.breaker.Execute(func() (domain.TravelEstimate, error) {
		return c.fetch(ctx, from, to)
	})
	if err != nil {
		c.logger.Warn("routing service unavailable, using haversine fallback",
			"error", err,
		)
		return c.fallback.Estimate(ctx, from, to)
	}
	return estimate, nil
}

func (c *RoutingClient) fetch(ctx context.Context, from, to domain.Coordinates) (domain.TravelEstimate, error) {
	query := url.Values{}
	query.Set("from", fmt.Sprintf("%f,%f", from.Latitude, from.Longitude))
	query.Set("to", fmt.Sprintf("%f,%f", to.Latitude, to.Longitude))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/route?"+query.Encode(), nil)
	if err != nil {
		return domain.TravelEstimate{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.TravelEstimate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.TravelEstimate{}, fmt.Errorf("routing service returned %d", resp.StatusCode)
	}

	var route routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		return domain.TravelEstimate{}, fmt.Errorf("decoding route response: %w", err)
	}

	return domain.TravelEstimate{
		DistanceKm: route.DistanceKm,
		Duration:   time.Duration(route.DurationSeconds * float64(time.Second)),
	}, nil
}
