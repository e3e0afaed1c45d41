package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/google/uuid"
)

// DetectorConfig holds the thresholds the conflict checks evaluate against.
type DetectorConfig struct {
	// MaxTravelDistanceKm is the organization's threshold for travel
	// between consecutive same-day jobs.
	MaxTravelDistanceKm float64

	// CriticalOverlapRatio is the fraction of the shorter window at which
	// a time overlap escalates from high to critical.
	CriticalOverlapRatio float64
}

// DefaultDetectorConfig returns the default thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MaxTravelDistanceKm:  50,
		CriticalOverlapRatio: 0.5,
	}
}

// ConflictDetector runs a fixed battery of conflict checks over a snapshot:
// time overlap, daily capacity, travel distance, and member availability.
// Detection is read-only and deterministic for a given snapshot, which the
// resolution engine relies on when re-running it against hypothetical states.
type ConflictDetector struct {
	estimator domain.DistanceEstimator
	config    DetectorConfig
	logger    *slog.Logger
}

// NewConflictDetector creates a new conflict detector.
func NewConflictDetector(estimator domain.DistanceEstimator, config DetectorConfig, logger *slog.Logger) *ConflictDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConflictDetector{
		estimator: estimator,
		config:    config,
		logger:    logger,
	}
}

// Detect runs all checks over the snapshot and unions their output. A single
// pair of assignments can produce one conflict per violated rule.
func (d *ConflictDetector) Detect(ctx context.Context, snapshot *domain.Snapshot) ([]domain.SchedulingConflict, error) {
	return d.detectScoped(ctx, snapshot, nil)
}

// DetectForMembers runs detection and keeps only conflicts touching the given
// members. Used for impact checks on hypothetical post-resolution states.
func (d *ConflictDetector) DetectForMembers(ctx context.Context, snapshot *domain.Snapshot, memberIDs []uuid.UUID) ([]domain.SchedulingConflict, error) {
	scope := make(map[uuid.UUID]bool, len(memberIDs))
	for _, id := range memberIDs {
		scope[id] = true
	}
	return d.detectScoped(ctx, snapshot, scope)
}

func (d *ConflictDetector) detectScoped(ctx context.Context, snapshot *domain.Snapshot, scope map[uuid.UUID]bool) ([]domain.SchedulingConflict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := BuildAvailabilityIndex(snapshot)
	now := time.Now().UTC()

	var conflicts []domain.SchedulingConflict
	for _, member := range snapshot.TeamMembers() {
		if scope != nil && !scope[member.ID()] {
			continue
		}
		conflicts = append(conflicts, d.checkTimeOverlaps(snapshot, idx, member, now)...)
		conflicts = append(conflicts, d.checkCapacity(snapshot, idx, member, now)...)
		conflicts = append(conflicts, d.checkTravel(ctx, snapshot, idx, member, now)...)
		conflicts = append(conflicts, d.checkAvailability(snapshot, idx, member, now)...)
	}

	domain.SortConflicts(conflicts)
	return conflicts, nil
}

// checkTimeOverlaps flags pairs of a member's assignments whose half-open
// windows intersect. Overlap covering at least CriticalOverlapRatio of the
// shorter window is critical, anything else high.
func (d *ConflictDetector) checkTimeOverlaps(snapshot *domain.Snapshot, idx *AvailabilityIndex, member *domain.TeamMember, now time.Time) []domain.SchedulingConflict {
	assignments := idx.AssignmentsFor(member.ID())
	var conflicts []domain.SchedulingConflict

	for i := 0; i < len(assignments); i++ {
		for j := i + 1; j < len(assignments); j++ {
			a, b := assignments[i], assignments[j]
			if !a.Overlaps(b) {
				// Sorted by start, so nothing later overlaps either.
				break
			}

			overlap := a.Window().OverlapDuration(b.Window())
			shorter := a.Window().Duration()
			if b.Window().Duration() < shorter {
				shorter = b.Window().Duration()
			}
			severity := domain.SeverityHigh
			if shorter > 0 && float64(overlap) >= d.config.CriticalOverlapRatio*float64(shorter) {
				severity = domain.SeverityCritical
			}

			autoResolvable, suggestion := d.strictReassignmentSuggestion(snapshot, idx, member, a, b)
			conflicts = append(conflicts, domain.SchedulingConflict{
				ID:                  uuid.New(),
				Type:                domain.ConflictTypeTimeOverlap,
				Severity:            severity,
				AffectedJobs:        []uuid.UUID{a.InstallationID(), b.InstallationID()},
				AffectedTeamMembers: []uuid.UUID{member.ID()},
				Description: fmt.Sprintf("%s is double-booked: %s overlaps %s by %s",
					member.Name(),
					d.jobName(snapshot, a.InstallationID()),
					d.jobName(snapshot, b.InstallationID()),
					overlap),
				AutoResolvable:      autoResolvable,
				SuggestedResolution: suggestion,
				DetectedAt:          now,
			})
		}
	}
	return conflicts
}

// checkCapacity emits one conflict per member/day whose job count exceeds the
// member's configured maximum, listing every assignment of that day.
func (d *ConflictDetector) checkCapacity(snapshot *domain.Snapshot, idx *AvailabilityIndex, member *domain.TeamMember, now time.Time) []domain.SchedulingConflict {
	max := member.MaxJobsPerDay()
	if max <= 0 {
		return nil
	}

	var conflicts []domain.SchedulingConflict
	for _, day := range snapshot.DateRange().Days() {
		key := domain.DayKey(day)
		count := idx.JobCount(member.ID(), key)
		if count <= max {
			continue
		}

		var jobs []uuid.UUID
		var dayAssignments []*domain.Assignment
		for _, a := range idx.AssignmentsFor(member.ID()) {
			if domain.DayKey(a.Window().Start) == key {
				jobs = append(jobs, a.InstallationID())
				dayAssignments = append(dayAssignments, a)
			}
		}

		autoResolvable := false
		suggestion := ""
		for _, a := range dayAssignments {
			targets := idx.ReassignmentTargets(a, member.Role(), false)
			if len(targets) > 0 {
				autoResolvable = true
				suggestion = fmt.Sprintf("Reassign %s to %s",
					d.jobName(snapshot, a.InstallationID()), targets[0].Name())
				break
			}
		}

		conflicts = append(conflicts, domain.SchedulingConflict{
			ID:                  uuid.New(),
			Type:                domain.ConflictTypeCapacityExceeded,
			Severity:            domain.SeverityMedium,
			AffectedJobs:        jobs,
			AffectedTeamMembers: []uuid.UUID{member.ID()},
			Description: fmt.Sprintf("%s has %d jobs on %s, exceeding the limit of %d",
				member.Name(), count, key, max),
			AutoResolvable:      autoResolvable,
			SuggestedResolution: suggestion,
			DetectedAt:          now,
		})
	}
	return conflicts
}

// checkTravel inspects consecutive same-day pairs of a member's assignments.
// Travel over the configured distance threshold is medium; travel that takes
// longer than the gap between the jobs makes the schedule physically
// infeasible and is high. Missing location data skips the pair.
func (d *ConflictDetector) checkTravel(ctx context.Context, snapshot *domain.Snapshot, idx *AvailabilityIndex, member *domain.TeamMember, now time.Time) []domain.SchedulingConflict {
	assignments := idx.AssignmentsFor(member.ID())
	var conflicts []domain.SchedulingConflict

	for i := 0; i+1 < len(assignments); i++ {
		prev, next := assignments[i], assignments[i+1]
		if domain.DayKey(prev.Window().Start) != domain.DayKey(next.Window().Start) {
			continue
		}
		gap := next.Window().Start.Sub(prev.Window().End)
		if gap < 0 {
			// Overlapping pair, already reported by the overlap check.
			continue
		}

		estimate, ok := d.estimateBetween(ctx, snapshot, prev.InstallationID(), next.InstallationID())
		if !ok {
			continue
		}

		infeasible := estimate.Duration > gap
		if !infeasible && estimate.DistanceKm <= d.config.MaxTravelDistanceKm {
			continue
		}

		severity := domain.SeverityMedium
		if infeasible {
			severity = domain.SeverityHigh
		}

		autoResolvable := false
		suggestion := ""
		if !infeasible {
			for _, a := range []*domain.Assignment{prev, next} {
				targets := idx.ReassignmentTargets(a, member.Role(), false)
				if len(targets) > 0 {
					autoResolvable = true
					suggestion = fmt.Sprintf("Reassign %s to %s",
						d.jobName(snapshot, a.InstallationID()), targets[0].Name())
					break
				}
			}
		}

		conflicts = append(conflicts, domain.SchedulingConflict{
			ID:                  uuid.New(),
			Type:                domain.ConflictTypeTravelDistance,
			Severity:            severity,
			AffectedJobs:        []uuid.UUID{prev.InstallationID(), next.InstallationID()},
			AffectedTeamMembers: []uuid.UUID{member.ID()},
			Description: fmt.Sprintf("%s must travel %.1f km (%s) between %s and %s with a %s gap",
				member.Name(), estimate.DistanceKm, estimate.Duration,
				d.jobName(snapshot, prev.InstallationID()),
				d.jobName(snapshot, next.InstallationID()),
				gap),
			AutoResolvable:      autoResolvable,
			SuggestedResolution: suggestion,
			DetectedAt:          now,
		})
	}
	return conflicts
}

// checkAvailability flags assignments outside a member's working hours or
// during declared unavailability.
func (d *ConflictDetector) checkAvailability(snapshot *domain.Snapshot, idx *AvailabilityIndex, member *domain.TeamMember, now time.Time) []domain.SchedulingConflict {
	var conflicts []domain.SchedulingConflict
	for _, a := range idx.AssignmentsFor(member.ID()) {
		if member.IsAvailable(a.Window()) {
			continue
		}

		autoResolvable, suggestion := d.strictReassignmentSuggestion(snapshot, idx, member, a, nil)
		conflicts = append(conflicts, domain.SchedulingConflict{
			ID:                  uuid.New(),
			Type:                domain.ConflictTypeUnavailableTeam,
			Severity:            domain.SeverityHigh,
			AffectedJobs:        []uuid.UUID{a.InstallationID()},
			AffectedTeamMembers: []uuid.UUID{member.ID()},
			Description: fmt.Sprintf("%s is not available for %s (%s - %s)",
				member.Name(),
				d.jobName(snapshot, a.InstallationID()),
				a.Window().Start.Format("2006-01-02 15:04"),
				a.Window().End.Format("15:04")),
			AutoResolvable:      autoResolvable,
			SuggestedResolution: suggestion,
			DetectedAt:          now,
		})
	}
	return conflicts
}

// strictReassignmentSuggestion looks for a zero-side-effect target: role and
// skill matched, free for the window, with daily capacity to spare. Overlap
// and unavailability conflicts default to manual judgment unless one exists.
func (d *ConflictDetector) strictReassignmentSuggestion(snapshot *domain.Snapshot, idx *AvailabilityIndex, member *domain.TeamMember, a, b *domain.Assignment) (bool, string) {
	for _, candidate := range []*domain.Assignment{a, b} {
		if candidate == nil {
			continue
		}
		targets := idx.ReassignmentTargets(candidate, member.Role(), true)
		if len(targets) > 0 {
			return true, fmt.Sprintf("Reassign %s to %s",
				d.jobName(snapshot, candidate.InstallationID()), targets[0].Name())
		}
	}
	return false, ""
}

// estimateBetween resolves both installation locations and asks the distance
// estimator. Missing coordinates or estimator failures skip the check for the
// pair rather than failing the whole detection run.
func (d *ConflictDetector) estimateBetween(ctx context.Context, snapshot *domain.Snapshot, fromID, toID uuid.UUID) (domain.TravelEstimate, bool) {
	from := snapshot.Installation(fromID)
	to := snapshot.Installation(toID)
	if from == nil || to == nil || !from.Location().HasCoordinates() || !to.Location().HasCoordinates() {
		d.logger.Debug("skipping travel check, missing location data",
			"from_installation", fromID,
			"to_installation", toID,
		)
		return domain.TravelEstimate{}, false
	}

	estimate, err := d.estimator.Estimate(ctx, *from.Location().Coordinates, *to.Location().Coordinates)
	if err != nil {
		d.logger.Warn("travel estimate failed, skipping pair",
			"from_installation", fromID,
			"to_installation", toID,
			"error", err,
		)
		return domain.TravelEstimate{}, false
	}
	return estimate, true
}

func (d *ConflictDetector) jobName(snapshot *domain.Snapshot, installationID uuid.UUID) string {
	if inst := snapshot.Installation(installationID); inst != nil {
		return inst.Name()
	}
	return installationID.String()
}
