package services

import (
	"testing"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func historyRecord(conflictType domain.ConflictType, outcome domain.ResolutionOutcome, timeToResolve time.Duration) *domain.ConflictResolutionHistory {
	return domain.RehydrateConflictResolutionHistory(
		shared.NewBaseEntity(),
		uuid.New(), uuid.New(),
		conflictType, domain.SeverityMedium, "test conflict",
		domain.ActionReassign, "test resolution",
		outcome, timeToResolve, "dispatcher@example.com", time.Now().UTC(),
	)
}

func liveConflict(conflictType domain.ConflictType) domain.SchedulingConflict {
	return domain.SchedulingConflict{
		ID:                  uuid.New(),
		Type:                conflictType,
		Severity:            domain.SeverityMedium,
		AffectedJobs:        []uuid.UUID{uuid.New()},
		AffectedTeamMembers: []uuid.UUID{uuid.New()},
		DetectedAt:          time.Now().UTC(),
	}
}

func TestSummarize_EmptyInputs(t *testing.T) {
	analytics := NewAnalyticsAggregator().Summarize(nil, nil)

	assert.Equal(t, 0, analytics.TotalConflicts)
	assert.Equal(t, 0, analytics.ResolvedCount)
	// Nothing happened, so nothing failed.
	assert.Equal(t, 100.0, analytics.ResolutionSuccessRate)
	assert.Equal(t, time.Duration(0), analytics.AverageResolutionTime)
	assert.Empty(t, analytics.ConflictsByType)
	assert.Empty(t, analytics.PreventionRecommendations)
}

func TestSummarize_CountsLiveAndHistory(t *testing.T) {
	conflicts := []domain.SchedulingConflict{
		liveConflict(domain.ConflictTypeTimeOverlap),
		liveConflict(domain.ConflictTypeTimeOverlap),
	}
	history := []*domain.ConflictResolutionHistory{
		historyRecord(domain.ConflictTypeTimeOverlap, domain.OutcomeSuccessful, 10*time.Minute),
		historyRecord(domain.ConflictTypeCapacityExceeded, domain.OutcomeSuccessful, 30*time.Minute),
		historyRecord(domain.ConflictTypeUnavailableTeam, domain.OutcomeFailed, 20*time.Minute),
	}

	analytics := NewAnalyticsAggregator().Summarize(conflicts, history)

	assert.Equal(t, 5, analytics.TotalConflicts)
	assert.Equal(t, 2, analytics.ResolvedCount)
	assert.InDelta(t, 40.0, analytics.ResolutionSuccessRate, 0.001)
	assert.Equal(t, 20*time.Minute, analytics.AverageResolutionTime)
	assert.Equal(t, 3, analytics.ConflictsByType[domain.ConflictTypeTimeOverlap])
	assert.Equal(t, 1, analytics.ConflictsByType[domain.ConflictTypeCapacityExceeded])
	assert.Equal(t, 1, analytics.ConflictsByType[domain.ConflictTypeUnavailableTeam])
}

func TestSummarize_LiveOnlyHasZeroAverageTime(t *testing.T) {
	conflicts := []domain.SchedulingConflict{liveConflict(domain.ConflictTypeTravelDistance)}

	analytics := NewAnalyticsAggregator().Summarize(conflicts, nil)

	assert.Equal(t, 1, analytics.TotalConflicts)
	assert.Equal(t, time.Duration(0), analytics.AverageResolutionTime)
	assert.Equal(t, 0.0, analytics.ResolutionSuccessRate)
}

func TestSummarize_Recommendations(t *testing.T) {
	tests := []struct {
		name      string
		conflicts []domain.SchedulingConflict
		wantKinds []domain.RecommendationKind
	}{
		{
			name: "overlap at threshold stays quiet",
			conflicts: []domain.SchedulingConflict{
				liveConflict(domain.ConflictTypeTimeOverlap),
				liveConflict(domain.ConflictTypeTimeOverlap),
			},
			wantKinds: nil,
		},
		{
			name: "overlap above threshold recommends buffers",
			conflicts: []domain.SchedulingConflict{
				liveConflict(domain.ConflictTypeTimeOverlap),
				liveConflict(domain.ConflictTypeTimeOverlap),
				liveConflict(domain.ConflictTypeTimeOverlap),
			},
			wantKinds: []domain.RecommendationKind{domain.RecommendationBufferTime},
		},
		{
			name: "unavailability trips at a lower threshold",
			conflicts: []domain.SchedulingConflict{
				liveConflict(domain.ConflictTypeUnavailableTeam),
				liveConflict(domain.ConflictTypeUnavailableTeam),
			},
			wantKinds: []domain.RecommendationKind{domain.RecommendationSyncAvailability},
		},
		{
			name: "multiple types trigger independently",
			conflicts: []domain.SchedulingConflict{
				liveConflict(domain.ConflictTypeCapacityExceeded),
				liveConflict(domain.ConflictTypeCapacityExceeded),
				liveConflict(domain.ConflictTypeCapacityExceeded),
				liveConflict(domain.ConflictTypeTravelDistance),
				liveConflict(domain.ConflictTypeTravelDistance),
				liveConflict(domain.ConflictTypeTravelDistance),
			},
			wantKinds: []domain.RecommendationKind{
				domain.RecommendationRebalanceLoad,
				domain.RecommendationClusterByRegion,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analytics := NewAnalyticsAggregator().Summarize(tt.conflicts, nil)
			var kinds []domain.RecommendationKind
			for _, rec := range analytics.PreventionRecommendations {
				assert.NotEmpty(t, rec.Message)
				kinds = append(kinds, rec.Kind)
			}
			assert.Equal(t, tt.wantKinds, kinds)
		})
	}
}

func TestSummarize_HistoryCountsTowardRecommendations(t *testing.T) {
	// Two live overlaps plus one already-resolved overlap cross the line.
	conflicts := []domain.SchedulingConflict{
		liveConflict(domain.ConflictTypeTimeOverlap),
		liveConflict(domain.ConflictTypeTimeOverlap),
	}
	history := []*domain.ConflictResolutionHistory{
		historyRecord(domain.ConflictTypeTimeOverlap, domain.OutcomeSuccessful, 5*time.Minute),
	}

	analytics := NewAnalyticsAggregator().Summarize(conflicts, history)

	recs := analytics.PreventionRecommendations
	assert.Len(t, recs, 1)
	assert.Equal(t, domain.RecommendationBufferTime, recs[0].Kind)
}
