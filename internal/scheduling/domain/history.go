package domain

import (
	"time"

	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
)

// ResolutionOutcome records how a resolution ended.
type ResolutionOutcome string

const (
	OutcomeSuccessful ResolutionOutcome = "successful"
	OutcomeFailed     ResolutionOutcome = "failed"
	OutcomeReverted   ResolutionOutcome = "reverted"
)

// ConflictResolutionHistory is the immutable record created when a conflict
// is resolved, manually or automatically. It is the only engine output that
// persists across detection runs.
type ConflictResolutionHistory struct {
	shared.BaseEntity
	projectID     uuid.UUID
	conflictID    uuid.UUID
	conflictType  ConflictType
	severity      Severity
	description   string
	action        ResolutionAction
	resolution    string
	outcome       ResolutionOutcome
	timeToResolve time.Duration
	resolvedBy    string
	resolvedAt    time.Time
}

// NewConflictResolutionHistory records a resolved conflict.
func NewConflictResolutionHistory(projectID uuid.UUID, conflict SchedulingConflict, resolution ConflictResolution, outcome ResolutionOutcome, timeToResolve time.Duration, resolvedBy string, resolvedAt time.Time) *ConflictResolutionHistory {
	return &ConflictResolutionHistory{
		BaseEntity:    shared.NewBaseEntity(),
		projectID:     projectID,
		conflictID:    conflict.ID,
		conflictType:  conflict.Type,
		severity:      conflict.Severity,
		description:   conflict.Description,
		action:        resolution.Action,
		resolution:    resolution.Description,
		outcome:       outcome,
		timeToResolve: timeToResolve,
		resolvedBy:    resolvedBy,
		resolvedAt:    resolvedAt,
	}
}

// RehydrateConflictResolutionHistory recreates a record from persisted state.
func RehydrateConflictResolutionHistory(entity shared.BaseEntity, projectID, conflictID uuid.UUID, conflictType ConflictType, severity Severity, description string, action ResolutionAction, resolution string, outcome ResolutionOutcome, timeToResolve time.Duration, resolvedBy string, resolvedAt time.Time) *ConflictResolutionHistory {
	return &ConflictResolutionHistory{
		BaseEntity:    entity,
		projectID:     projectID,
		conflictID:    conflictID,
		conflictType:  conflictType,
		severity:      severity,
		description:   description,
		action:        action,
		resolution:    resolution,
		outcome:       outcome,
		timeToResolve: timeToResolve,
		resolvedBy:    resolvedBy,
		resolvedAt:    resolvedAt,
	}
}

func (h *ConflictResolutionHistory) ProjectID() uuid.UUID         { return h.projectID }
func (h *ConflictResolutionHistory) ConflictID() uuid.UUID        { return h.conflictID }
func (h *ConflictResolutionHistory) ConflictType() ConflictType   { return h.conflictType }
func (h *ConflictResolutionHistory) Severity() Severity           { return h.severity }
func (h *ConflictResolutionHistory) Description() string          { return h.description }
func (h *ConflictResolutionHistory) Action() ResolutionAction     { return h.action }
func (h *ConflictResolutionHistory) Resolution() string           { return h.resolution }
func (h *ConflictResolutionHistory) Outcome() ResolutionOutcome   { return h.outcome }
func (h *ConflictResolutionHistory) TimeToResolve() time.Duration { return h.timeToResolve }
func (h *ConflictResolutionHistory) ResolvedBy() string           { return h.resolvedBy }
func (h *ConflictResolutionHistory) ResolvedAt() time.Time        { return h.resolvedAt }

// Succeeded reports whether the resolution stuck.
func (h *ConflictResolutionHistory) Succeeded() bool {
	return h.outcome == OutcomeSuccessful
}
