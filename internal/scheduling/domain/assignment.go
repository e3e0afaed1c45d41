package domain

import (
	"errors"
	"fmt"

	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	// ErrMemberNotAssigned is returned when reassigning away a member that
	// does not hold the assignment.
	ErrMemberNotAssigned = errors.New("team member is not assigned")
	// ErrMemberAlreadyAssigned is returned when reassigning onto a member
	// that already holds the assignment.
	ErrMemberAlreadyAssigned = errors.New("team member is already assigned")
	// ErrAssignmentNotMutable is returned when mutating a completed or
	// cancelled assignment.
	ErrAssignmentNotMutable = errors.New("assignment is not mutable")
)

// AssignmentStatus represents the lifecycle state of an assignment.
type AssignmentStatus string

const (
	AssignmentStatusScheduled  AssignmentStatus = "scheduled"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

// Assignment links an installation to one or more team members for a time
// window. It is the unit the engine mutates when applying a resolution.
type Assignment struct {
	shared.BaseAggregateRoot
	projectID      uuid.UUID
	installationID uuid.UUID
	teamMemberIDs  []uuid.UUID
	window         TimeRange
	status         AssignmentStatus
}

// NewAssignment creates a new scheduled assignment.
func NewAssignment(projectID, installationID uuid.UUID, teamMemberIDs []uuid.UUID, window TimeRange) *Assignment {
	return &Assignment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		projectID:         projectID,
		installationID:    installationID,
		teamMemberIDs:     append([]uuid.UUID(nil), teamMemberIDs...),
		window:            window,
		status:            AssignmentStatusScheduled,
	}
}

// RehydrateAssignment recreates an assignment from persisted state.
func RehydrateAssignment(root shared.BaseAggregateRoot, projectID, installationID uuid.UUID, teamMemberIDs []uuid.UUID, window TimeRange, status AssignmentStatus) *Assignment {
	return &Assignment{
		BaseAggregateRoot: root,
		projectID:         projectID,
		installationID:    installationID,
		teamMemberIDs:     append([]uuid.UUID(nil), teamMemberIDs...),
		window:            window,
		status:            status,
	}
}

func (a *Assignment) ProjectID() uuid.UUID      { return a.projectID }
func (a *Assignment) InstallationID() uuid.UUID { return a.installationID }
func (a *Assignment) Window() TimeRange         { return a.window }
func (a *Assignment) Status() AssignmentStatus  { return a.status }

// TeamMemberIDs returns the assigned members. The slice is a copy.
func (a *Assignment) TeamMemberIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), a.teamMemberIDs...)
}

// AssignedTo reports whether the given member holds this assignment.
func (a *Assignment) AssignedTo(memberID uuid.UUID) bool {
	for _, id := range a.teamMemberIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

// IsActive reports whether the assignment still occupies schedule time.
func (a *Assignment) IsActive() bool {
	return a.status == AssignmentStatusScheduled || a.status == AssignmentStatusInProgress
}

// Overlaps reports whether two assignments occupy overlapping windows.
func (a *Assignment) Overlaps(other *Assignment) bool {
	return a.window.Overlaps(other.window)
}

// Reassign moves the assignment from one team member to another.
func (a *Assignment) Reassign(from, to uuid.UUID) error {
	if !a.IsActive() {
		return fmt.Errorf("%w: status %s", ErrAssignmentNotMutable, a.status)
	}
	if a.AssignedTo(to) {
		return fmt.Errorf("%w: %s", ErrMemberAlreadyAssigned, to)
	}
	replaced := false
	for i, id := range a.teamMemberIDs {
		if id == from {
			a.teamMemberIDs[i] = to
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("%w: %s", ErrMemberNotAssigned, from)
	}
	a.Touch()
	a.AddDomainEvent(NewAssignmentReassignedEvent(a.ID(), a.projectID, from, to))
	return nil
}

// Reschedule moves the assignment to a new time window.
func (a *Assignment) Reschedule(window TimeRange) error {
	if !a.IsActive() {
		return fmt.Errorf("%w: status %s", ErrAssignmentNotMutable, a.status)
	}
	old := a.window
	a.window = window
	a.Touch()
	a.AddDomainEvent(NewAssignmentRescheduledEvent(a.ID(), a.projectID, old, window))
	return nil
}

// Cancel marks the assignment cancelled. Used by reduce-scope resolutions.
func (a *Assignment) Cancel() error {
	if !a.IsActive() {
		return fmt.Errorf("%w: status %s", ErrAssignmentNotMutable, a.status)
	}
	a.status = AssignmentStatusCancelled
	a.Touch()
	return nil
}

// Clone returns a deep copy with the same identity and version. Hypothetical
// states built during impact checks mutate clones, never the live set.
func (a *Assignment) Clone() *Assignment {
	return &Assignment{
		BaseAggregateRoot: shared.RehydrateBaseAggregateRoot(
			shared.RehydrateBaseEntity(a.ID(), a.CreatedAt(), a.UpdatedAt()),
			a.Version(),
		),
		projectID:      a.projectID,
		installationID: a.installationID,
		teamMemberIDs:  append([]uuid.UUID(nil), a.teamMemberIDs...),
		window:         a.window,
		status:         a.status,
	}
}
