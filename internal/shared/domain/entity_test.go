package domain_test

import (
	"testing"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEntity(t *testing.T) {
	entity := domain.NewBaseEntity()

	assert.NotEqual(t, uuid.Nil, entity.ID())
	assert.False(t, entity.CreatedAt().IsZero())
	assert.Equal(t, entity.CreatedAt(), entity.UpdatedAt())
}

func TestNewBaseEntityWithID(t *testing.T) {
	id := uuid.New()
	entity := domain.NewBaseEntityWithID(id)

	assert.Equal(t, id, entity.ID())
}

func TestRehydrateBaseEntity(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC)

	entity := domain.RehydrateBaseEntity(id, created, updated)

	assert.Equal(t, id, entity.ID())
	assert.Equal(t, created, entity.CreatedAt())
	assert.Equal(t, updated, entity.UpdatedAt())
}

func TestBaseEntity_Touch(t *testing.T) {
	entity := domain.NewBaseEntity()
	before := entity.UpdatedAt()

	time.Sleep(time.Millisecond)
	entity.Touch()

	assert.True(t, entity.UpdatedAt().After(before))
}

func TestBaseEntity_Equals(t *testing.T) {
	t.Run("same identity", func(t *testing.T) {
		id := uuid.New()
		a := domain.NewBaseEntityWithID(id)
		b := domain.NewBaseEntityWithID(id)

		assert.True(t, a.Equals(b))
	})

	t.Run("different identity", func(t *testing.T) {
		a := domain.NewBaseEntity()
		b := domain.NewBaseEntity()

		assert.False(t, a.Equals(b))
	})

	t.Run("nil other", func(t *testing.T) {
		a := domain.NewBaseEntity()

		assert.False(t, a.Equals(nil))
	})
}
