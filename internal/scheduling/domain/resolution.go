package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResolutionAction is the kind of fix a resolution applies.
type ResolutionAction string

const (
	// ActionReassign moves an assignment to another team member.
	ActionReassign ResolutionAction = "reassign"
	// ActionShiftWindow moves an assignment's time window within its slack.
	ActionShiftWindow ResolutionAction = "shift_window"
	// ActionSplit splits an installation across two visits.
	ActionSplit ResolutionAction = "split"
	// ActionReduceScope cancels part of the contended work.
	ActionReduceScope ResolutionAction = "reduce_scope"
)

// ConflictResolution is a concrete candidate fix for one conflict.
// Exactly one parameter group is populated depending on Action:
// reassign uses From/To, shift_window uses NewWindow.
type ConflictResolution struct {
	ID              uuid.UUID
	ConflictID      uuid.UUID
	Action          ResolutionAction
	AssignmentID    uuid.UUID
	FromTeamMember  uuid.UUID
	ToTeamMember    uuid.UUID
	NewWindow       *TimeRange
	Description     string
	DisruptionScore float64
	SnapshotVersion int64
	Impact          ResolutionImpact
}

// ResolutionImpact is the projected side effect of applying a candidate,
// computed by re-running detection on the hypothetical post-resolution state.
type ResolutionImpact struct {
	AssignmentsTouched    int
	TeamMembersAffected   int
	TravelDeltaKm         float64
	TravelDeltaTime       time.Duration
	IntroducesNewConflict bool
}

// TravelEstimate is the output of a distance estimator.
type TravelEstimate struct {
	DistanceKm float64
	Duration   time.Duration
}

// Add returns the field-wise sum of two estimates.
func (t TravelEstimate) Add(other TravelEstimate) TravelEstimate {
	return TravelEstimate{
		DistanceKm: t.DistanceKm + other.DistanceKm,
		Duration:   t.Duration + other.Duration,
	}
}
