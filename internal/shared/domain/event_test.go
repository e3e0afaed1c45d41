package domain_test

import (
	"testing"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEvent(t *testing.T) {
	aggregateID := uuid.New()
	event := domain.NewBaseEvent(aggregateID, "Assignment", "scheduling.assignment.reassigned")

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.Equal(t, aggregateID, event.AggregateID())
	assert.Equal(t, "Assignment", event.AggregateType())
	assert.Equal(t, "scheduling.assignment.reassigned", event.RoutingKey())
	assert.WithinDuration(t, time.Now().UTC(), event.OccurredAt(), time.Second)
}

func TestBaseEvent_SetMetadata(t *testing.T) {
	event := domain.NewBaseEvent(uuid.New(), "Assignment", "scheduling.assignment.rescheduled")

	metadata := domain.EventMetadata{
		CorrelationID: uuid.New(),
		CausationID:   uuid.New(),
		UserID:        uuid.New(),
	}
	event.SetMetadata(metadata)

	assert.Equal(t, metadata, event.Metadata())
}
