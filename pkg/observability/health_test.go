package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func failing(err error) func(ctx context.Context) error {
	return func(ctx context.Context) error { return err }
}

func passing(ctx context.Context) error { return nil }

func TestGetOverallHealth_RollsUpWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		database func(ctx context.Context) error
		rabbitmq func(ctx context.Context) error
		want     HealthStatus
	}{
		{"all dependencies up", passing, passing, HealthStatusHealthy},
		{"broker down degrades", passing, failing(errors.New("connection refused")), HealthStatusDegraded},
		{"database down is unhealthy", failing(errors.New("no route to host")), passing, HealthStatusUnhealthy},
		{"database outranks broker", failing(errors.New("down")), failing(errors.New("down")), HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry()
			registry.Register("database", DatabaseHealthChecker(tt.database))
			registry.Register("rabbitmq", RabbitMQHealthChecker(tt.rabbitmq))

			overall := registry.GetOverallHealth(context.Background())
			assert.Equal(t, tt.want, overall.Status)
			assert.Len(t, overall.Checks, 2)
		})
	}
}

func TestGetOverallHealth_EmptyRegistryIsHealthy(t *testing.T) {
	overall := NewHealthRegistry().GetOverallHealth(context.Background())
	assert.Equal(t, HealthStatusHealthy, overall.Status)
	assert.Empty(t, overall.Checks)
}

func TestRedisHealthChecker_FailureIsOnlyDegraded(t *testing.T) {
	result := RedisHealthChecker(failing(errors.New("timeout")))(context.Background())
	assert.Equal(t, HealthStatusDegraded, result.Status)
	assert.Contains(t, result.Message, "timeout")
}
