package services

import (
	"context"
	"testing"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) memberWithRole(name, role string, skills []string, maxJobsPerDay int) *domain.TeamMember {
	m := domain.NewTeamMember(f.projectID, name, role, skills,
		domain.Location{Address: name + " home"}, domain.DefaultWorkingHours(), maxJobsPerDay)
	f.members = append(f.members, m)
	return m
}

func newTestEngine(estimator domain.DistanceEstimator) *ResolutionEngine {
	detector := newTestDetector(estimator)
	return NewResolutionEngine(detector, estimator, DefaultResolutionEngineConfig(), nil)
}

func TestProposeResolutions_OverlapReassignsToFreeMember(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	jonas := f.member("Jonas", 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("Rooftop B", nil)
	f.assign(mara, jobA, "09:00", "11:00")
	f.assign(mara, jobB, "10:00", "12:00")
	snapshot := f.snapshot(3)

	estimator := &stubEstimator{}
	engine := newTestEngine(estimator)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	proposals, err := engine.ProposeResolutions(context.Background(), conflicts[0], snapshot)
	require.NoError(t, err)

	// Either overlapping job can move to Jonas.
	require.Len(t, proposals, 2)
	for _, p := range proposals {
		assert.Equal(t, domain.ActionReassign, p.Action)
		assert.Equal(t, mara.ID(), p.FromTeamMember)
		assert.Equal(t, jonas.ID(), p.ToTeamMember)
		assert.Equal(t, conflicts[0].ID, p.ConflictID)
		assert.Equal(t, int64(3), p.SnapshotVersion)
		// No coordinates anywhere, so moving a job costs nothing.
		assert.Zero(t, p.DisruptionScore)
		assert.Equal(t, 1, p.Impact.AssignmentsTouched)
		assert.False(t, p.Impact.IntroducesNewConflict)
		assert.NotEmpty(t, p.Description)
	}
}

func TestProposeResolutions_UnavailableRequiresSkillMatch(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	f.memberWithRole("Petra", "plumber", []string{"pipes"}, 0)
	mara.AddUnavailability(f.window("09:00", "12:00"))
	job := f.installation("Rooftop A", nil)
	f.assign(mara, job, "10:00", "11:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{}
	engine := newTestEngine(estimator)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, domain.ConflictTypeUnavailableTeam, conflicts[0].Type)

	proposals, err := engine.ProposeResolutions(context.Background(), conflicts[0], snapshot)
	require.NoError(t, err)
	assert.Empty(t, proposals, "role-mismatched target must not be offered for unavailability")
}

func TestProposeResolutions_CapacityPrefersMatchingRole(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 1)
	jonas := f.member("Jonas", 0)
	petra := f.memberWithRole("Petra", "electrician", []string{"wiring"}, 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("Rooftop B", nil)
	f.assign(mara, jobA, "08:00", "09:00")
	f.assign(mara, jobB, "10:00", "11:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{}
	engine := newTestEngine(estimator)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, domain.ConflictTypeCapacityExceeded, conflicts[0].Type)

	proposals, err := engine.ProposeResolutions(context.Background(), conflicts[0], snapshot)
	require.NoError(t, err)

	// Two jobs times two targets; role-matched targets sort first.
	require.Len(t, proposals, 4)
	assert.Equal(t, jonas.ID(), proposals[0].ToTeamMember)
	assert.Zero(t, proposals[0].DisruptionScore)
	assert.Equal(t, jonas.ID(), proposals[1].ToTeamMember)
	last := proposals[len(proposals)-1]
	assert.Equal(t, petra.ID(), last.ToTeamMember)
	assert.Equal(t, DefaultResolutionEngineConfig().RoleMismatchPenalty, last.DisruptionScore)
}

func TestProposeResolutions_TravelShiftsLaterJob(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	jobA := f.installation("North Site", &domain.Coordinates{Latitude: 52.52, Longitude: 13.40})
	jobB := f.installation("South Site", &domain.Coordinates{Latitude: 51.80, Longitude: 13.40})
	f.assign(mara, jobA, "09:00", "10:00")
	later := f.assign(mara, jobB, "10:10", "11:10")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{estimate: domain.TravelEstimate{DistanceKm: 80, Duration: 2 * time.Hour}}
	engine := newTestEngine(estimator)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, domain.ConflictTypeTravelDistance, conflicts[0].Type)

	proposals, err := engine.ProposeResolutions(context.Background(), conflicts[0], snapshot)
	require.NoError(t, err)

	// No second member, so the only survivor shifts the later job until the
	// two hour drive fits the gap, plus the buffer.
	require.Len(t, proposals, 1)
	p := proposals[0]
	assert.Equal(t, domain.ActionShiftWindow, p.Action)
	assert.Equal(t, later.ID(), p.AssignmentID)
	require.NotNil(t, p.NewWindow)
	wantShift := 2*time.Hour - 10*time.Minute + 5*time.Minute
	assert.Equal(t, later.Window().Start.Add(wantShift), p.NewWindow.Start)
	assert.Equal(t, later.Window().Duration(), p.NewWindow.Duration())
}

func TestProposeResolutions_ReassignScoreUsesDayRouteDelta(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	jonas := f.member("Jonas", 0)
	jobA := f.installation("North Site", &domain.Coordinates{Latitude: 52.52, Longitude: 13.40})
	jobB := f.installation("South Site", &domain.Coordinates{Latitude: 52.40, Longitude: 13.05})
	f.assign(mara, jobA, "09:00", "11:00")
	f.assign(mara, jobB, "10:00", "12:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{estimate: domain.TravelEstimate{DistanceKm: 12, Duration: 30 * time.Minute}}
	engine := newTestEngine(estimator)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, domain.ConflictTypeTimeOverlap, conflicts[0].Type)

	proposals, err := engine.ProposeResolutions(context.Background(), conflicts[0], snapshot)
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	// Moving either job to Jonas removes Mara's only driving leg, so both
	// candidates carry the full leg as a negative route delta.
	for _, p := range proposals {
		assert.Equal(t, jonas.ID(), p.ToTeamMember)
		assert.InDelta(t, -12.0, p.DisruptionScore, 0.001)
		assert.InDelta(t, -12.0, p.Impact.TravelDeltaKm, 0.001)
		assert.Equal(t, -30*time.Minute, p.Impact.TravelDeltaTime)
	}
}

func TestProposeResolutions_ManualConflictYieldsNothing(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	job := f.installation("Rooftop A", nil)
	assignment := f.assign(mara, job, "09:00", "10:00")
	snapshot := f.snapshot(1)

	conflict := domain.SchedulingConflict{
		ID:                  uuid.New(),
		Type:                domain.ConflictTypeUnavailableTeam,
		Severity:            domain.SeverityHigh,
		AffectedJobs:        []uuid.UUID{assignment.InstallationID()},
		AffectedTeamMembers: []uuid.UUID{mara.ID()},
		DetectedAt:          time.Now().UTC(),
	}

	engine := newTestEngine(&stubEstimator{})
	proposals, err := engine.ProposeResolutions(context.Background(), conflict, snapshot)
	require.NoError(t, err)
	assert.Empty(t, proposals)
}

func TestProposeResolutions_RejectsCandidateThatCreatesEquallySevereConflict(t *testing.T) {
	f := newFixture(t)
	mara := f.member("Mara", 0)
	jonas := f.member("Jonas", 0)
	jobA := f.installation("Rooftop A", nil)
	jobB := f.installation("South Site", &domain.Coordinates{Latitude: 51.80, Longitude: 13.40})
	jobC := f.installation("North Site", &domain.Coordinates{Latitude: 52.52, Longitude: 13.40})
	assignA := f.assign(mara, jobA, "09:00", "11:00")
	f.assign(mara, jobB, "10:45", "12:45") // 15 min overlap, high severity
	// Jonas's afternoon job is two driving hours from South Site. Moving the
	// South Site job onto his schedule would leave him a 15 minute gap for it.
	f.assign(jonas, jobC, "13:00", "14:00")
	snapshot := f.snapshot(1)

	estimator := &stubEstimator{estimate: domain.TravelEstimate{DistanceKm: 80, Duration: 2 * time.Hour}}
	engine := newTestEngine(estimator)
	detector := newTestDetector(estimator)

	conflicts, err := detector.Detect(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, domain.SeverityHigh, conflicts[0].Severity)

	proposals, err := engine.ProposeResolutions(context.Background(), conflicts[0], snapshot)
	require.NoError(t, err)

	// Only moving Rooftop A survives; moving South Site to Jonas would
	// introduce an infeasible-travel conflict at the original's severity.
	require.Len(t, proposals, 1)
	assert.Equal(t, assignA.ID(), proposals[0].AssignmentID)
	assert.Equal(t, jonas.ID(), proposals[0].ToTeamMember)
}
