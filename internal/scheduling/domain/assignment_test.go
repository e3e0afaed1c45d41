package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignment_Reassign(t *testing.T) {
	projectID := uuid.New()
	from := uuid.New()
	to := uuid.New()
	a := NewAssignment(projectID, uuid.New(), []uuid.UUID{from}, window(t, "2026-03-02 09:00", "2026-03-02 11:00"))

	err := a.Reassign(from, to)
	require.NoError(t, err)

	assert.False(t, a.AssignedTo(from))
	assert.True(t, a.AssignedTo(to))

	events := a.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, RoutingKeyAssignmentReassigned, events[0].RoutingKey())
}

func TestAssignment_Reassign_Errors(t *testing.T) {
	projectID := uuid.New()
	holder := uuid.New()
	other := uuid.New()
	a := NewAssignment(projectID, uuid.New(), []uuid.UUID{holder}, window(t, "2026-03-02 09:00", "2026-03-02 11:00"))

	err := a.Reassign(other, uuid.New())
	assert.ErrorIs(t, err, ErrMemberNotAssigned)

	err = a.Reassign(holder, holder)
	assert.ErrorIs(t, err, ErrMemberAlreadyAssigned)

	require.NoError(t, a.Cancel())
	err = a.Reassign(holder, other)
	assert.ErrorIs(t, err, ErrAssignmentNotMutable)
}

func TestAssignment_Reschedule(t *testing.T) {
	a := NewAssignment(uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}, window(t, "2026-03-02 09:00", "2026-03-02 11:00"))

	newWindow := window(t, "2026-03-02 13:00", "2026-03-02 15:00")
	require.NoError(t, a.Reschedule(newWindow))
	assert.Equal(t, newWindow, a.Window())

	require.NoError(t, a.Cancel())
	err := a.Reschedule(window(t, "2026-03-03 09:00", "2026-03-03 11:00"))
	assert.ErrorIs(t, err, ErrAssignmentNotMutable)
}

func TestAssignment_IsActive(t *testing.T) {
	a := NewAssignment(uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}, window(t, "2026-03-02 09:00", "2026-03-02 11:00"))
	assert.True(t, a.IsActive())

	require.NoError(t, a.Cancel())
	assert.False(t, a.IsActive())
	assert.Equal(t, AssignmentStatusCancelled, a.Status())
}

func TestAssignment_Clone(t *testing.T) {
	holder := uuid.New()
	a := NewAssignment(uuid.New(), uuid.New(), []uuid.UUID{holder}, window(t, "2026-03-02 09:00", "2026-03-02 11:00"))

	clone := a.Clone()
	assert.Equal(t, a.ID(), clone.ID())

	// Mutating the clone leaves the original alone.
	require.NoError(t, clone.Reassign(holder, uuid.New()))
	assert.True(t, a.AssignedTo(holder))
	assert.False(t, clone.AssignedTo(holder))
}
