package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/google/uuid"
)

// ErrBatchRejected is returned when applying a batch would introduce a new or
// worsened conflict. The input snapshot is left untouched.
var ErrBatchRejected = errors.New("batch rejected")

// ResolutionConflictError is returned when a resolution was proposed against
// a snapshot version that no longer matches the one being mutated. Callers
// recover by re-detecting and re-proposing.
type ResolutionConflictError struct {
	ProposedVersion int64
	CurrentVersion  int64
}

func (e *ResolutionConflictError) Error() string {
	return fmt.Sprintf("resolution proposed against version %d but assignment set is at version %d",
		e.ProposedVersion, e.CurrentVersion)
}

// ResolutionSelection pairs a conflict with the resolution chosen for it.
type ResolutionSelection struct {
	Conflict   domain.SchedulingConflict
	Resolution domain.ConflictResolution
}

// AutoResolveReport partitions an auto-resolve run into applied resolutions
// and conflicts that could not be safely resolved.
type AutoResolveReport struct {
	Snapshot *domain.Snapshot
	Resolved []*domain.ConflictResolutionHistory
	Skipped  []SkippedConflict
}

// SkippedConflict names a conflict auto-resolve left alone, with the reason.
type SkippedConflict struct {
	Conflict domain.SchedulingConflict
	Reason   string
}

// ResolutionExecutor applies accepted resolutions to the assignment set.
// Single applications are atomic; bulk applications are all-or-nothing. The
// executor never mutates the snapshot it is handed — it returns an updated
// copy, leaving the caller's view intact on failure.
type ResolutionExecutor struct {
	detector    *ConflictDetector
	engine      *ResolutionEngine
	historyRepo domain.HistoryRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewResolutionExecutor creates a new executor. historyRepo may be nil when
// the caller persists history itself.
func NewResolutionExecutor(detector *ConflictDetector, engine *ResolutionEngine, historyRepo domain.HistoryRepository, logger *slog.Logger) *ResolutionExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolutionExecutor{
		detector:    detector,
		engine:      engine,
		historyRepo: historyRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the executor's clock. Intended for tests.
func (x *ResolutionExecutor) WithClock(now func() time.Time) *ResolutionExecutor {
	x.now = now
	return x
}

// ApplyResolution applies one accepted resolution and records history. Fails
// closed with *ResolutionConflictError when the assignment set has moved on
// since the resolution was proposed.
func (x *ResolutionExecutor) ApplyResolution(ctx context.Context, conflict domain.SchedulingConflict, resolution domain.ConflictResolution, snapshot *domain.Snapshot, resolvedBy string) (*domain.Snapshot, *domain.ConflictResolutionHistory, error) {
	updated, records, err := x.ApplyBulk(ctx, []ResolutionSelection{{Conflict: conflict, Resolution: resolution}}, snapshot, resolvedBy)
	if err != nil {
		return nil, nil, err
	}
	return updated, records[0], nil
}

// ApplyBulk applies a list of resolutions as a single atomic batch. If any
// application fails validation — including a dependency between two selected
// resolutions creating a new conflict — the whole batch is rejected and the
// input snapshot is returned untouched.
func (x *ResolutionExecutor) ApplyBulk(ctx context.Context, selections []ResolutionSelection, snapshot *domain.Snapshot, resolvedBy string) (*domain.Snapshot, []*domain.ConflictResolutionHistory, error) {
	if len(selections) == 0 {
		return snapshot, nil, nil
	}

	for _, sel := range selections {
		if sel.Resolution.SnapshotVersion != snapshot.Version() {
			return snapshot, nil, &ResolutionConflictError{
				ProposedVersion: sel.Resolution.SnapshotVersion,
				CurrentVersion:  snapshot.Version(),
			}
		}
	}

	scope := batchScope(selections)
	baseline, err := x.detector.DetectForMembers(ctx, snapshot, scope)
	if err != nil {
		return snapshot, nil, fmt.Errorf("validating batch: %w", err)
	}
	baselineKeys := domain.ConflictKeySet(baseline)

	working := snapshot.Clone()
	for _, sel := range selections {
		if err := applyToSnapshot(working, sel.Resolution); err != nil {
			return snapshot, nil, fmt.Errorf("applying resolution for conflict %s: %w", sel.Conflict.ID, err)
		}
	}

	// Re-validate the combined result: resolutions that are individually
	// safe can still collide with each other.
	after, err := x.detector.DetectForMembers(ctx, working, scope)
	if err != nil {
		return snapshot, nil, fmt.Errorf("validating batch result: %w", err)
	}
	for _, c := range after {
		prior, existed := baselineKeys[c.Key()]
		if existed && c.Severity.Rank() <= prior.Rank() {
			continue
		}
		return snapshot, nil, fmt.Errorf("%w: would introduce %s conflict: %s", ErrBatchRejected, c.Severity, c.Description)
	}

	working.BumpVersion()
	resolvedAt := x.now()

	// Records are built for the whole batch and persisted as one unit, so a
	// rejected batch never leaves partial history behind.
	records := make([]*domain.ConflictResolutionHistory, 0, len(selections))
	for _, sel := range selections {
		records = append(records, domain.NewConflictResolutionHistory(
			snapshot.ProjectID(),
			sel.Conflict,
			sel.Resolution,
			domain.OutcomeSuccessful,
			resolvedAt.Sub(sel.Conflict.DetectedAt),
			resolvedBy,
			resolvedAt,
		))
	}
	if x.historyRepo != nil {
		if err := x.historyRepo.SaveAll(ctx, records); err != nil {
			return snapshot, nil, fmt.Errorf("persisting resolution history: %w", err)
		}
	}

	for _, sel := range selections {
		x.logger.Info("conflict resolved",
			"conflict_id", sel.Conflict.ID,
			"conflict_type", sel.Conflict.Type,
			"action", sel.Resolution.Action,
			"resolved_by", resolvedBy,
		)
	}

	return working, records, nil
}

// AutoResolveAll picks each auto-resolvable conflict's best surviving
// candidate and applies it against the evolving snapshot, so later proposals
// already see earlier fixes. Conflicts without a safe candidate — including
// ones whose candidate collides with an earlier resolution in the run — are
// skipped with a reason, never raised as errors.
func (x *ResolutionExecutor) AutoResolveAll(ctx context.Context, conflicts []domain.SchedulingConflict, snapshot *domain.Snapshot) (*AutoResolveReport, error) {
	report := &AutoResolveReport{Snapshot: snapshot}

	working := snapshot
	for _, conflict := range conflicts {
		if !conflict.AutoResolvable {
			report.Skipped = append(report.Skipped, SkippedConflict{
				Conflict: conflict,
				Reason:   "requires manual resolution",
			})
			continue
		}

		candidates, err := x.engine.ProposeResolutions(ctx, conflict, working)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			report.Skipped = append(report.Skipped, SkippedConflict{
				Conflict: conflict,
				Reason:   "no safe candidate survived impact checks",
			})
			continue
		}

		updated, records, err := x.ApplyBulk(ctx, []ResolutionSelection{{
			Conflict:   conflict,
			Resolution: candidates[0],
		}}, working, "auto-resolver")
		if err != nil {
			if errors.Is(err, ErrBatchRejected) {
				report.Skipped = append(report.Skipped, SkippedConflict{
					Conflict: conflict,
					Reason:   "best candidate would introduce a new conflict",
				})
				continue
			}
			return nil, err
		}
		working = updated
		report.Resolved = append(report.Resolved, records...)
	}

	report.Snapshot = working
	return report, nil
}

func batchScope(selections []ResolutionSelection) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var scope []uuid.UUID
	for _, sel := range selections {
		for _, id := range sel.Conflict.AffectedTeamMembers {
			if !seen[id] {
				seen[id] = true
				scope = append(scope, id)
			}
		}
		if sel.Resolution.ToTeamMember != uuid.Nil && !seen[sel.Resolution.ToTeamMember] {
			seen[sel.Resolution.ToTeamMember] = true
			scope = append(scope, sel.Resolution.ToTeamMember)
		}
	}
	return scope
}
