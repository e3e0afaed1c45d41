package domain

import (
	"time"

	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
)

// Routing keys for scheduling domain events.
const (
	RoutingKeyConflictDetected      = "scheduling.conflict.detected"
	RoutingKeyConflictResolved      = "scheduling.conflict.resolved"
	RoutingKeyAssignmentReassigned  = "scheduling.assignment.reassigned"
	RoutingKeyAssignmentRescheduled = "scheduling.assignment.rescheduled"
)

// AssignmentReassignedEvent is raised when an assignment moves between members.
type AssignmentReassignedEvent struct {
	shared.BaseEvent
	ProjectID      uuid.UUID
	FromTeamMember uuid.UUID
	ToTeamMember   uuid.UUID
}

// NewAssignmentReassignedEvent creates a new reassignment event.
func NewAssignmentReassignedEvent(assignmentID, projectID, from, to uuid.UUID) *AssignmentReassignedEvent {
	return &AssignmentReassignedEvent{
		BaseEvent:      shared.NewBaseEvent(assignmentID, "Assignment", RoutingKeyAssignmentReassigned),
		ProjectID:      projectID,
		FromTeamMember: from,
		ToTeamMember:   to,
	}
}

// AssignmentRescheduledEvent is raised when an assignment's window moves.
type AssignmentRescheduledEvent struct {
	shared.BaseEvent
	ProjectID uuid.UUID
	OldWindow TimeRange
	NewWindow TimeRange
}

// NewAssignmentRescheduledEvent creates a new reschedule event.
func NewAssignmentRescheduledEvent(assignmentID, projectID uuid.UUID, oldWindow, newWindow TimeRange) *AssignmentRescheduledEvent {
	return &AssignmentRescheduledEvent{
		BaseEvent: shared.NewBaseEvent(assignmentID, "Assignment", RoutingKeyAssignmentRescheduled),
		ProjectID: projectID,
		OldWindow: oldWindow,
		NewWindow: newWindow,
	}
}

// ConflictDetectedEvent is published after a detection run finds a conflict.
// Subscribers (notification delivery, dashboards) receive pushes instead of
// polling the engine.
type ConflictDetectedEvent struct {
	shared.BaseEvent
	ProjectID uuid.UUID
	Conflict  SchedulingConflict
}

// NewConflictDetectedEvent creates a new conflict-detected event.
func NewConflictDetectedEvent(projectID uuid.UUID, conflict SchedulingConflict) *ConflictDetectedEvent {
	return &ConflictDetectedEvent{
		BaseEvent: shared.NewBaseEvent(conflict.ID, "SchedulingConflict", RoutingKeyConflictDetected),
		ProjectID: projectID,
		Conflict:  conflict,
	}
}

// ConflictResolvedEvent is published after a resolution is executed.
type ConflictResolvedEvent struct {
	shared.BaseEvent
	ProjectID     uuid.UUID
	ConflictType  ConflictType
	Action        ResolutionAction
	ResolvedBy    string
	TimeToResolve time.Duration
}

// NewConflictResolvedEvent creates a new conflict-resolved event.
func NewConflictResolvedEvent(projectID uuid.UUID, record *ConflictResolutionHistory) *ConflictResolvedEvent {
	return &ConflictResolvedEvent{
		BaseEvent:     shared.NewBaseEvent(record.ConflictID(), "SchedulingConflict", RoutingKeyConflictResolved),
		ProjectID:     projectID,
		ConflictType:  record.ConflictType(),
		Action:        record.Action(),
		ResolvedBy:    record.ResolvedBy(),
		TimeToResolve: record.TimeToResolve(),
	}
}
