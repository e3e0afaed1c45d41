package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHistoryRepo captures saved records in memory.
type mockHistoryRepo struct {
	saved        []*domain.ConflictResolutionHistory
	saveErr      error
	saveAllCalls int
}

func (m *mockHistoryRepo) Save(ctx context.Context, record *domain.ConflictResolutionHistory) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, record)
	return nil
}

func (m *mockHistoryRepo) SaveAll(ctx context.Context, records []*domain.ConflictResolutionHistory) error {
	m.saveAllCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, records...)
	return nil
}

func (m *mockHistoryRepo) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.ConflictResolutionHistory, error) {
	return m.saved, nil
}

func newTestExecutor(estimator domain.DistanceEstimator, historyRepo domain.HistoryRepository) *ResolutionExecutor {
	detector := newTestDetector(estimator)
	engine := NewResolutionEngine(detector, estimator, DefaultResolutionEngineConfig(), nil)
	return NewResolutionExecutor(detector, engine, historyRepo, nil)
}

// overlapScenario builds the standard double-booking with a free second member
// and returns the snapshot, the detected conflict, and the best proposal.
func overlapScenario(t *testing.T, estimator domain.DistanceEstimator) (*fixture, *domain.Snapshot, domain.SchedulingConflict, domain.ConflictResolution) {
	t.Helper()
	f := newFixture(t)
	mara := f.member("Mara", 0)
	f.member("Jonas", 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("Rooftop B", nil)
	f.assign(mara, jobA, "09:00", "11:00")
	f.assign(mara, jobB, "10:00", "12:00")
	snapshot := f.snapshot(5)

	detector := newTestDetector(estimator)
	engine := NewResolutionEngine(detector, estimator, DefaultResolutionEngineConfig(), nil)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	proposals, err := engine.ProposeResolutions(context.Background(), conflicts[0], snapshot)
	require.NoError(t, err)
	require.NotEmpty(t, proposals)
	return f, snapshot, conflicts[0], proposals[0]
}

func TestApplyResolution_Succeeds(t *testing.T) {
	estimator := &stubEstimator{}
	history := &mockHistoryRepo{}
	_, snapshot, conflict, resolution := overlapScenario(t, estimator)

	resolvedAt := snapshot.DateRange().From.Add(30 * time.Hour)
	executor := newTestExecutor(estimator, history).WithClock(func() time.Time { return resolvedAt })

	updated, record, err := executor.ApplyResolution(context.Background(), conflict, resolution, snapshot, "dispatcher@example.com")
	require.NoError(t, err)

	assert.Equal(t, snapshot.Version()+1, updated.Version())
	// The caller's snapshot is never mutated.
	assert.Equal(t, int64(5), snapshot.Version())
	original, err := snapshot.Assignment(resolution.AssignmentID)
	require.NoError(t, err)
	assert.True(t, original.AssignedTo(resolution.FromTeamMember))

	moved, err := updated.Assignment(resolution.AssignmentID)
	require.NoError(t, err)
	assert.True(t, moved.AssignedTo(resolution.ToTeamMember))
	assert.False(t, moved.AssignedTo(resolution.FromTeamMember))

	require.NotNil(t, record)
	assert.Equal(t, domain.OutcomeSuccessful, record.Outcome())
	assert.Equal(t, "dispatcher@example.com", record.ResolvedBy())
	assert.Equal(t, conflict.ID, record.ConflictID())
	assert.Equal(t, resolvedAt.Sub(conflict.DetectedAt), record.TimeToResolve())
	require.Len(t, history.saved, 1)
	assert.Same(t, record, history.saved[0])

	// The resolved schedule is clean.
	detector := newTestDetector(estimator)
	remaining, err := detector.Detect(context.Background(), updated)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestApplyResolution_StaleVersionFailsClosed(t *testing.T) {
	estimator := &stubEstimator{}
	_, snapshot, conflict, resolution := overlapScenario(t, estimator)
	executor := newTestExecutor(estimator, &mockHistoryRepo{})

	snapshot.BumpVersion() // someone else edited the schedule meanwhile

	_, _, err := executor.ApplyResolution(context.Background(), conflict, resolution, snapshot, "dispatcher@example.com")
	var conflictErr *ResolutionConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, int64(5), conflictErr.ProposedVersion)
	assert.Equal(t, int64(6), conflictErr.CurrentVersion)
}

func TestApplyResolution_NilHistoryRepoStillReturnsRecord(t *testing.T) {
	estimator := &stubEstimator{}
	_, snapshot, conflict, resolution := overlapScenario(t, estimator)
	executor := newTestExecutor(estimator, nil)

	_, record, err := executor.ApplyResolution(context.Background(), conflict, resolution, snapshot, "cli")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "cli", record.ResolvedBy())
}

func TestApplyBulk_RejectsWholeBatchOnInvalidSelection(t *testing.T) {
	estimator := &stubEstimator{}
	history := &mockHistoryRepo{}
	_, snapshot, conflict, resolution := overlapScenario(t, estimator)
	executor := newTestExecutor(estimator, history)

	broken := resolution
	broken.ID = uuid.New()
	broken.Action = domain.ResolutionAction("teleport")

	returned, records, err := executor.ApplyBulk(context.Background(), []ResolutionSelection{
		{Conflict: conflict, Resolution: resolution},
		{Conflict: conflict, Resolution: broken},
	}, snapshot, "dispatcher@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported resolution action")
	assert.Empty(t, records)
	assert.Empty(t, history.saved)
	// All-or-nothing: the input snapshot comes back untouched.
	assert.Same(t, snapshot, returned)
	assert.Equal(t, int64(5), returned.Version())
}

func TestApplyBulk_RejectsMutuallyConflictingResolutions(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	jonas := f.member("Jonas", 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("Rooftop B", nil)
	a1 := f.assign(mara, jobA, "09:00", "11:00")
	a2 := f.assign(mara, jobB, "10:00", "12:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{}
	executor := newTestExecutor(estimator, &mockHistoryRepo{})
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	// Individually each move is safe; together they recreate the overlap on
	// Jonas's schedule.
	move := func(assignmentID uuid.UUID) domain.ConflictResolution {
		return domain.ConflictResolution{
			ID:              uuid.New(),
			ConflictID:      conflicts[0].ID,
			Action:          domain.ActionReassign,
			AssignmentID:    assignmentID,
			FromTeamMember:  mara.ID(),
			ToTeamMember:    jonas.ID(),
			SnapshotVersion: snapshot.Version(),
		}
	}

	returned, records, err := executor.ApplyBulk(context.Background(), []ResolutionSelection{
		{Conflict: conflicts[0], Resolution: move(a1.ID())},
		{Conflict: conflicts[0], Resolution: move(a2.ID())},
	}, snapshot, "dispatcher@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch rejected")
	assert.Empty(t, records)
	assert.Same(t, snapshot, returned)
}

func TestApplyBulk_EmptyBatchIsANoop(t *testing.T) {
	f := newFixture(t)
	f.member("Mara", 0)
	snapshot := f.snapshot(1)
	executor := newTestExecutor(&stubEstimator{}, &mockHistoryRepo{})

	returned, records, err := executor.ApplyBulk(context.Background(), nil, snapshot, "dispatcher@example.com")
	require.NoError(t, err)
	assert.Same(t, snapshot, returned)
	assert.Empty(t, records)
}

func TestApplyBulk_HistorySaveFailureAbortsBatch(t *testing.T) {
	estimator := &stubEstimator{}
	history := &mockHistoryRepo{saveErr: errors.New("connection reset")}
	_, snapshot, conflict, resolution := overlapScenario(t, estimator)
	executor := newTestExecutor(estimator, history)

	returned, _, err := executor.ApplyBulk(context.Background(), []ResolutionSelection{
		{Conflict: conflict, Resolution: resolution},
	}, snapshot, "dispatcher@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting resolution history")
	assert.Same(t, snapshot, returned)
}

func TestApplyBulk_HistoryFailureLeavesNoPartialHistory(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	jonas := f.member("Jonas", 0)
	petra := f.member("Petra", 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("Rooftop B", nil)
	a1 := f.assign(mara, jobA, "09:00", "11:00")
	a2 := f.assign(mara, jobB, "10:00", "12:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{}
	history := &mockHistoryRepo{saveErr: errors.New("connection reset")}
	executor := newTestExecutor(estimator, history)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	move := func(assignmentID, target uuid.UUID) domain.ConflictResolution {
		return domain.ConflictResolution{
			ID:              uuid.New(),
			ConflictID:      conflicts[0].ID,
			Action:          domain.ActionReassign,
			AssignmentID:    assignmentID,
			FromTeamMember:  mara.ID(),
			ToTeamMember:    target,
			SnapshotVersion: snapshot.Version(),
		}
	}

	// Both moves are valid together; only persistence fails.
	returned, records, err := executor.ApplyBulk(context.Background(), []ResolutionSelection{
		{Conflict: conflicts[0], Resolution: move(a1.ID(), jonas.ID())},
		{Conflict: conflicts[0], Resolution: move(a2.ID(), petra.ID())},
	}, snapshot, "dispatcher@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting resolution history")
	assert.Empty(t, records)
	assert.Same(t, snapshot, returned)
	// History is written once for the whole batch, so a failure persists
	// nothing rather than the leading selections.
	assert.Equal(t, 1, history.saveAllCalls)
	assert.Empty(t, history.saved)
}

func TestAutoResolveAll_ResolvesAndSkips(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	f.member("Jonas", 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("Rooftop B", nil)
	f.assign(mara, jobA, "09:00", "11:00")
	f.assign(mara, jobB, "10:00", "12:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{}
	history := &mockHistoryRepo{}
	executor := newTestExecutor(estimator, history)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.True(t, conflicts[0].AutoResolvable)

	manual := domain.SchedulingConflict{
		ID:                  uuid.New(),
		Type:                domain.ConflictTypeTravelDistance,
		Severity:            domain.SeverityHigh,
		AffectedJobs:        []uuid.UUID{jobA.ID(), jobB.ID()},
		AffectedTeamMembers: []uuid.UUID{mara.ID()},
		AutoResolvable:      false,
		DetectedAt:          time.Now().UTC(),
	}

	report, err := executor.AutoResolveAll(context.Background(), append(conflicts, manual), snapshot)
	require.NoError(t, err)

	require.Len(t, report.Resolved, 1)
	assert.Equal(t, "auto-resolver", report.Resolved[0].ResolvedBy())
	assert.Equal(t, conflicts[0].ID, report.Resolved[0].ConflictID())

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, manual.ID, report.Skipped[0].Conflict.ID)
	assert.Equal(t, "requires manual resolution", report.Skipped[0].Reason)

	assert.Equal(t, snapshot.Version()+1, report.Snapshot.Version())
	remaining, err := detector.Detect(context.Background(), report.Snapshot)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Len(t, history.saved, 1)
}

func TestAutoResolveAll_SkipsWhenNoCandidateSurvives(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	jobA := f.installation("Rooftop A", nil)
	f.assign(mara, jobA, "09:00", "10:00")
	snapshot := f.snapshot(1)

	// Marked auto-resolvable, but with no second member the engine cannot
	// produce a surviving candidate.
	conflict := domain.SchedulingConflict{
		ID:                  uuid.New(),
		Type:                domain.ConflictTypeCapacityExceeded,
		Severity:            domain.SeverityMedium,
		AffectedJobs:        []uuid.UUID{jobA.ID()},
		AffectedTeamMembers: []uuid.UUID{mara.ID()},
		AutoResolvable:      true,
		DetectedAt:          time.Now().UTC(),
	}

	executor := newTestExecutor(&stubEstimator{}, &mockHistoryRepo{})
	report, err := executor.AutoResolveAll(context.Background(), []domain.SchedulingConflict{conflict}, snapshot)
	require.NoError(t, err)

	assert.Empty(t, report.Resolved)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "no safe candidate survived impact checks", report.Skipped[0].Reason)
	assert.Same(t, snapshot, report.Snapshot)
}

func TestAutoResolveAll_CollidingCandidatesResolvePartially(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	petra := f.member("Petra", 0)
	f.member("Jonas", 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("Rooftop B", nil)
	jobC := f.installation("Rooftop C", nil)
	jobD := f.installation("Rooftop D", nil)
	f.assign(mara, jobA, "09:00", "11:00")
	f.assign(mara, jobB, "10:00", "12:00")
	f.assign(petra, jobC, "09:00", "11:00")
	f.assign(petra, jobD, "10:00", "12:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{}
	history := &mockHistoryRepo{}
	executor := newTestExecutor(estimator, history)
	detector := newTestDetector(estimator)

	// Two double-bookings whose only relief is the same free member. Resolving
	// both onto Jonas would double-book him instead.
	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)

	report, err := executor.AutoResolveAll(context.Background(), conflicts, snapshot)
	require.NoError(t, err, "a collision between candidates must not fail the run")

	require.Len(t, report.Resolved, 1)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "no safe candidate survived impact checks", report.Skipped[0].Reason)
	assert.Equal(t, snapshot.Version()+1, report.Snapshot.Version())
	assert.Len(t, history.saved, 1)

	remaining, err := detector.Detect(context.Background(), report.Snapshot)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestAutoResolveAll_NoConflictsReturnsInputSnapshot(t *testing.T) {
	f := newFixture(t)
	f.member("Mara", 0)
	snapshot := f.snapshot(1)

	executor := newTestExecutor(&stubEstimator{}, &mockHistoryRepo{})
	report, err := executor.AutoResolveAll(context.Background(), nil, snapshot)
	require.NoError(t, err)
	assert.Same(t, snapshot, report.Snapshot)
	assert.Empty(t, report.Resolved)
	assert.Empty(t, report.Skipped)
}
