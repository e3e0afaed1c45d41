package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/google/uuid"
)

// ResolutionEngineConfig tunes candidate generation and scoring.
type ResolutionEngineConfig struct {
	// RoleMismatchPenalty is added to a reassignment candidate's disruption
	// score when the target lacks the original member's role or skill.
	// Distance deltas are measured in kilometers, so the penalty trades
	// against travel.
	RoleMismatchPenalty float64

	// ShiftBuffer is slack added when shifting a window to make travel fit.
	ShiftBuffer time.Duration
}

// DefaultResolutionEngineConfig returns the default scoring configuration.
func DefaultResolutionEngineConfig() ResolutionEngineConfig {
	return ResolutionEngineConfig{
		RoleMismatchPenalty: 10,
		ShiftBuffer:         5 * time.Minute,
	}
}

// ResolutionEngine generates candidate resolutions for a conflict, scores
// them by disruption, validates their impact by re-running detection on the
// hypothetical post-resolution state, and orders survivors best-first.
type ResolutionEngine struct {
	detector  *ConflictDetector
	estimator domain.DistanceEstimator
	config    ResolutionEngineConfig
	logger    *slog.Logger
}

// NewResolutionEngine creates a new resolution engine.
func NewResolutionEngine(detector *ConflictDetector, estimator domain.DistanceEstimator, config ResolutionEngineConfig, logger *slog.Logger) *ResolutionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolutionEngine{
		detector:  detector,
		estimator: estimator,
		config:    config,
		logger:    logger,
	}
}

// ProposeResolutions returns surviving candidates for the conflict, ordered
// by disruption score ascending. Ties prefer the candidate touching fewer
// assignments, then the lexicographically smallest target member id. A
// manual-only conflict yields an empty list.
func (e *ResolutionEngine) ProposeResolutions(ctx context.Context, conflict domain.SchedulingConflict, snapshot *domain.Snapshot) ([]domain.ConflictResolution, error) {
	idx := BuildAvailabilityIndex(snapshot)

	candidates := e.generateCandidates(ctx, conflict, snapshot, idx)

	var survivors []domain.ConflictResolution
	for _, candidate := range candidates {
		impact, ok := e.assessImpact(ctx, conflict, candidate, snapshot)
		if !ok {
			continue
		}
		candidate.Impact = impact
		survivors = append(survivors, candidate)
	}

	sort.Slice(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.DisruptionScore != b.DisruptionScore {
			return a.DisruptionScore < b.DisruptionScore
		}
		if a.Impact.AssignmentsTouched != b.Impact.AssignmentsTouched {
			return a.Impact.AssignmentsTouched < b.Impact.AssignmentsTouched
		}
		return a.ToTeamMember.String() < b.ToTeamMember.String()
	})

	e.logger.Debug("resolutions proposed",
		"conflict_id", conflict.ID,
		"conflict_type", conflict.Type,
		"candidates", len(candidates),
		"survivors", len(survivors),
	)
	return survivors, nil
}

// generateCandidates builds the raw candidate set per conflict type.
func (e *ResolutionEngine) generateCandidates(ctx context.Context, conflict domain.SchedulingConflict, snapshot *domain.Snapshot, idx *AvailabilityIndex) []domain.ConflictResolution {
	var candidates []domain.ConflictResolution

	switch conflict.Type {
	case domain.ConflictTypeTimeOverlap, domain.ConflictTypeCapacityExceeded:
		for _, a := range e.contendedAssignments(conflict, snapshot, idx) {
			candidates = append(candidates, e.reassignCandidates(ctx, conflict, snapshot, idx, a, false)...)
		}

	case domain.ConflictTypeTravelDistance:
		for _, a := range e.contendedAssignments(conflict, snapshot, idx) {
			candidates = append(candidates, e.reassignCandidates(ctx, conflict, snapshot, idx, a, false)...)
		}
		if shift, ok := e.shiftCandidate(ctx, conflict, snapshot, idx); ok {
			candidates = append(candidates, shift)
		}

	case domain.ConflictTypeUnavailableTeam:
		// Reassignment must be skill-matched; with no qualified target the
		// conflict is manual-only and the candidate list stays empty.
		for _, a := range e.contendedAssignments(conflict, snapshot, idx) {
			candidates = append(candidates, e.reassignCandidates(ctx, conflict, snapshot, idx, a, true)...)
		}
	}

	return candidates
}

// contendedAssignments maps the conflict's affected jobs back to the active
// assignments held by the affected members.
func (e *ResolutionEngine) contendedAssignments(conflict domain.SchedulingConflict, snapshot *domain.Snapshot, idx *AvailabilityIndex) []*domain.Assignment {
	affected := make(map[uuid.UUID]bool, len(conflict.AffectedJobs))
	for _, jobID := range conflict.AffectedJobs {
		affected[jobID] = true
	}

	var assignments []*domain.Assignment
	seen := make(map[uuid.UUID]bool)
	for _, memberID := range conflict.AffectedTeamMembers {
		for _, a := range idx.AssignmentsFor(memberID) {
			if affected[a.InstallationID()] && !seen[a.ID()] {
				seen[a.ID()] = true
				assignments = append(assignments, a)
			}
		}
	}
	return assignments
}

// reassignCandidates builds one reassignment candidate per viable target.
// Disruption score is the route-distance delta plus a penalty when the
// target's role or skills do not match the current holder's.
func (e *ResolutionEngine) reassignCandidates(ctx context.Context, conflict domain.SchedulingConflict, snapshot *domain.Snapshot, idx *AvailabilityIndex, assignment *domain.Assignment, strictRole bool) []domain.ConflictResolution {
	var candidates []domain.ConflictResolution
	for _, fromID := range conflict.AffectedTeamMembers {
		if !assignment.AssignedTo(fromID) {
			continue
		}
		from := snapshot.TeamMember(fromID)
		if from == nil {
			continue
		}
		for _, target := range idx.ReassignmentTargets(assignment, from.Role(), strictRole) {
			deltaKm, deltaTime := e.travelDelta(ctx, snapshot, assignment, fromID, target.ID())
			score := deltaKm
			if !target.HasSkills(from.Skills()) && target.Role() != from.Role() {
				score += e.config.RoleMismatchPenalty
			}

			candidates = append(candidates, domain.ConflictResolution{
				ID:             uuid.New(),
				ConflictID:     conflict.ID,
				Action:         domain.ActionReassign,
				AssignmentID:   assignment.ID(),
				FromTeamMember: fromID,
				ToTeamMember:   target.ID(),
				Description: fmt.Sprintf("Reassign %s from %s to %s",
					e.jobName(snapshot, assignment.InstallationID()), from.Name(), target.Name()),
				DisruptionScore: score,
				SnapshotVersion: snapshot.Version(),
				Impact: domain.ResolutionImpact{
					AssignmentsTouched:  1,
					TeamMembersAffected: 2,
					TravelDeltaKm:       deltaKm,
					TravelDeltaTime:     deltaTime,
				},
			})
		}
	}
	return candidates
}

// shiftCandidate proposes moving the later leg of a travel conflict just far
// enough for the travel time to fit in the gap, when the member's working
// hours leave that much slack.
func (e *ResolutionEngine) shiftCandidate(ctx context.Context, conflict domain.SchedulingConflict, snapshot *domain.Snapshot, idx *AvailabilityIndex) (domain.ConflictResolution, bool) {
	if len(conflict.AffectedJobs) != 2 || len(conflict.AffectedTeamMembers) == 0 {
		return domain.ConflictResolution{}, false
	}
	memberID := conflict.AffectedTeamMembers[0]
	member := snapshot.TeamMember(memberID)
	if member == nil {
		return domain.ConflictResolution{}, false
	}

	var prev, next *domain.Assignment
	for _, a := range idx.AssignmentsFor(memberID) {
		switch a.InstallationID() {
		case conflict.AffectedJobs[0]:
			prev = a
		case conflict.AffectedJobs[1]:
			next = a
		}
	}
	if prev == nil || next == nil {
		return domain.ConflictResolution{}, false
	}

	estimate, ok := e.estimateBetween(ctx, snapshot, prev.InstallationID(), next.InstallationID())
	if !ok {
		return domain.ConflictResolution{}, false
	}

	gap := next.Window().Start.Sub(prev.Window().End)
	shift := estimate.Duration - gap + e.config.ShiftBuffer
	if shift <= 0 {
		return domain.ConflictResolution{}, false
	}

	newWindow := next.Window().Shift(shift)
	if !member.IsAvailable(newWindow) {
		return domain.ConflictResolution{}, false
	}

	return domain.ConflictResolution{
		ID:             uuid.New(),
		ConflictID:     conflict.ID,
		Action:         domain.ActionShiftWindow,
		AssignmentID:   next.ID(),
		FromTeamMember: memberID,
		NewWindow:      &newWindow,
		Description: fmt.Sprintf("Shift %s by %s so travel fits the gap",
			e.jobName(snapshot, next.InstallationID()), shift),
		DisruptionScore: shift.Hours(),
		SnapshotVersion: snapshot.Version(),
		Impact: domain.ResolutionImpact{
			AssignmentsTouched:  1,
			TeamMembersAffected: 1,
		},
	}, true
}

// assessImpact applies the candidate to a hypothetical copy of the snapshot
// and re-runs detection restricted to the affected members. Candidates whose
// hypothetical state carries a new conflict at or above the original severity
// are discarded; a failing impact check discards the candidate quietly.
func (e *ResolutionEngine) assessImpact(ctx context.Context, conflict domain.SchedulingConflict, candidate domain.ConflictResolution, snapshot *domain.Snapshot) (domain.ResolutionImpact, bool) {
	impact := candidate.Impact

	scope := append([]uuid.UUID(nil), conflict.AffectedTeamMembers...)
	if candidate.ToTeamMember != uuid.Nil {
		scope = append(scope, candidate.ToTeamMember)
	}

	baseline, err := e.detector.DetectForMembers(ctx, snapshot, scope)
	if err != nil {
		e.logger.Debug("impact baseline failed, discarding candidate",
			"conflict_id", conflict.ID, "error", err)
		return impact, false
	}
	baselineKeys := domain.ConflictKeySet(baseline)

	hypothetical := snapshot.Clone()
	if err := applyToSnapshot(hypothetical, candidate); err != nil {
		e.logger.Debug("candidate not applicable, discarding",
			"conflict_id", conflict.ID, "error", err)
		return impact, false
	}

	after, err := e.detector.DetectForMembers(ctx, hypothetical, scope)
	if err != nil {
		e.logger.Debug("impact detection failed, discarding candidate",
			"conflict_id", conflict.ID, "error", err)
		return impact, false
	}

	for _, c := range after {
		prior, existed := baselineKeys[c.Key()]
		if existed && c.Severity.Rank() <= prior.Rank() {
			continue
		}
		impact.IntroducesNewConflict = true
		if c.Severity.AtLeast(conflict.Severity) {
			return impact, false
		}
	}
	return impact, true
}

// travelDelta estimates the net route-distance change of moving the
// assignment from one member's day route to another's. Estimator failures
// degrade to a zero delta rather than dropping the candidate.
func (e *ResolutionEngine) travelDelta(ctx context.Context, snapshot *domain.Snapshot, assignment *domain.Assignment, fromID, toID uuid.UUID) (float64, time.Duration) {
	before := e.dayRoute(ctx, snapshot, fromID, assignment).Add(e.dayRoute(ctx, snapshot, toID, assignment))

	hypothetical := snapshot.Clone()
	moved, err := hypothetical.Assignment(assignment.ID())
	if err != nil {
		return 0, 0
	}
	if err := moved.Reassign(fromID, toID); err != nil {
		return 0, 0
	}
	after := e.dayRoute(ctx, hypothetical, fromID, assignment).Add(e.dayRoute(ctx, hypothetical, toID, assignment))

	deltaKm := after.DistanceKm - before.DistanceKm
	deltaTime := after.Duration - before.Duration
	return deltaKm, deltaTime
}

// dayRoute sums travel across a member's consecutive assignments on the day
// of the reference assignment.
func (e *ResolutionEngine) dayRoute(ctx context.Context, snapshot *domain.Snapshot, memberID uuid.UUID, reference *domain.Assignment) domain.TravelEstimate {
	idx := BuildAvailabilityIndex(snapshot)
	day := domain.DayKey(reference.Window().Start)

	var route []*domain.Assignment
	for _, a := range idx.AssignmentsFor(memberID) {
		if domain.DayKey(a.Window().Start) == day {
			route = append(route, a)
		}
	}

	var total domain.TravelEstimate
	for i := 0; i+1 < len(route); i++ {
		estimate, ok := e.estimateBetween(ctx, snapshot, route[i].InstallationID(), route[i+1].InstallationID())
		if !ok {
			continue
		}
		total = total.Add(estimate)
	}
	return total
}

func (e *ResolutionEngine) estimateBetween(ctx context.Context, snapshot *domain.Snapshot, fromID, toID uuid.UUID) (domain.TravelEstimate, bool) {
	from := snapshot.Installation(fromID)
	to := snapshot.Installation(toID)
	if from == nil || to == nil || !from.Location().HasCoordinates() || !to.Location().HasCoordinates() {
		return domain.TravelEstimate{}, false
	}
	estimate, err := e.estimator.Estimate(ctx, *from.Location().Coordinates, *to.Location().Coordinates)
	if err != nil {
		e.logger.Debug("travel estimate failed", "error", err)
		return domain.TravelEstimate{}, false
	}
	return estimate, true
}

func (e *ResolutionEngine) jobName(snapshot *domain.Snapshot, installationID uuid.UUID) string {
	if inst := snapshot.Installation(installationID); inst != nil {
		return inst.Name()
	}
	return installationID.String()
}

// applyToSnapshot mutates the snapshot's assignment set per the resolution.
// Shared by impact checks (on clones) and the executor (on working copies).
func applyToSnapshot(snapshot *domain.Snapshot, resolution domain.ConflictResolution) error {
	assignment, err := snapshot.Assignment(resolution.AssignmentID)
	if err != nil {
		return err
	}

	switch resolution.Action {
	case domain.ActionReassign:
		return assignment.Reassign(resolution.FromTeamMember, resolution.ToTeamMember)
	case domain.ActionShiftWindow:
		if resolution.NewWindow == nil {
			return fmt.Errorf("shift_window resolution missing new window")
		}
		return assignment.Reschedule(*resolution.NewWindow)
	case domain.ActionSplit:
		if resolution.NewWindow == nil {
			return fmt.Errorf("split resolution missing window for second visit")
		}
		half := assignment.Window().Duration() / 2
		if half <= 0 {
			return fmt.Errorf("assignment window too short to split")
		}
		first := domain.TimeRange{Start: assignment.Window().Start, End: assignment.Window().Start.Add(half)}
		if err := assignment.Reschedule(first); err != nil {
			return err
		}
		holder := resolution.FromTeamMember
		if resolution.ToTeamMember != uuid.Nil {
			holder = resolution.ToTeamMember
		}
		second := domain.NewAssignment(assignment.ProjectID(), assignment.InstallationID(), []uuid.UUID{holder}, *resolution.NewWindow)
		snapshot.AddAssignment(second)
		return nil
	case domain.ActionReduceScope:
		return assignment.Cancel()
	default:
		return fmt.Errorf("unsupported resolution action: %s", resolution.Action)
	}
}
