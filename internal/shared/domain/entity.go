package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything with a stable identity: installations, team members,
// assignments, history records. Two entities are the same when their IDs
// match, whatever their field values.
type Entity interface {
	ID() uuid.UUID
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Equals(other Entity) bool
}

// BaseEntity carries the identity and audit timestamps every scheduling
// entity embeds.
type BaseEntity struct {
	id        uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

// NewBaseEntity generates a fresh identity stamped with the current time.
func NewBaseEntity() BaseEntity {
	return NewBaseEntityWithID(uuid.New())
}

// NewBaseEntityWithID builds an entity around a caller-chosen ID. Used when
// the identity originates outside the domain, such as imported schedule files.
func NewBaseEntityWithID(id uuid.UUID) BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		id:        id,
		createdAt: now,
		updatedAt: now,
	}
}

// RehydrateBaseEntity restores an entity's identity from storage without
// touching the audit timestamps.
func RehydrateBaseEntity(id uuid.UUID, createdAt, updatedAt time.Time) BaseEntity {
	return BaseEntity{
		id:        id,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (e BaseEntity) ID() uuid.UUID        { return e.id }
func (e BaseEntity) CreatedAt() time.Time { return e.createdAt }
func (e BaseEntity) UpdatedAt() time.Time { return e.updatedAt }

// Touch marks the entity as modified now.
func (e *BaseEntity) Touch() {
	e.updatedAt = time.Now().UTC()
}

// Equals compares identities, not state.
func (e BaseEntity) Equals(other Entity) bool {
	if other == nil {
		return false
	}
	return e.id == other.ID()
}
