package services

import (
	"fmt"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
)

// Recommendation trigger thresholds: a conflict type appearing more often
// than its threshold produces a prevention hint.
const (
	overlapRecommendationThreshold     = 2
	capacityRecommendationThreshold    = 2
	travelRecommendationThreshold      = 2
	unavailableRecommendationThreshold = 1
)

// AnalyticsAggregator derives conflict analytics from live conflicts and
// accumulated resolution history. It is stateless; Summarize is a pure
// function over its inputs.
type AnalyticsAggregator struct{}

// NewAnalyticsAggregator creates a new aggregator.
func NewAnalyticsAggregator() *AnalyticsAggregator {
	return &AnalyticsAggregator{}
}

// Summarize computes totals, the success rate, the per-type histogram, and
// threshold-triggered prevention recommendations. Live conflicts and history
// records both count toward totals: a history record is a conflict that no
// longer appears in the live set.
func (g *AnalyticsAggregator) Summarize(conflicts []domain.SchedulingConflict, history []*domain.ConflictResolutionHistory) domain.ConflictAnalytics {
	byType := make(map[domain.ConflictType]int)
	for _, c := range conflicts {
		byType[c.Type]++
	}

	resolved := 0
	var totalTime time.Duration
	for _, h := range history {
		byType[h.ConflictType()]++
		totalTime += h.TimeToResolve()
		if h.Succeeded() {
			resolved++
		}
	}

	total := len(conflicts) + len(history)

	// No conflicts means nothing failed.
	successRate := 100.0
	if total > 0 {
		successRate = float64(resolved) / float64(total) * 100
	}

	var averageTime time.Duration
	if len(history) > 0 {
		averageTime = totalTime / time.Duration(len(history))
	}

	return domain.ConflictAnalytics{
		TotalConflicts:            total,
		ResolvedCount:             resolved,
		AverageResolutionTime:     averageTime,
		ConflictsByType:           byType,
		ResolutionSuccessRate:     successRate,
		PreventionRecommendations: recommendations(byType),
	}
}

// recommendations turns histogram counts into prevention hints.
func recommendations(byType map[domain.ConflictType]int) []domain.Recommendation {
	var recs []domain.Recommendation
	if n := byType[domain.ConflictTypeTimeOverlap]; n > overlapRecommendationThreshold {
		recs = append(recs, domain.Recommendation{
			Kind:    domain.RecommendationBufferTime,
			Message: fmt.Sprintf("%d overlapping bookings detected; add buffer time between installations", n),
		})
	}
	if n := byType[domain.ConflictTypeCapacityExceeded]; n > capacityRecommendationThreshold {
		recs = append(recs, domain.Recommendation{
			Kind:    domain.RecommendationRebalanceLoad,
			Message: fmt.Sprintf("%d capacity overruns detected; rebalance daily job load across the team", n),
		})
	}
	if n := byType[domain.ConflictTypeTravelDistance]; n > travelRecommendationThreshold {
		recs = append(recs, domain.Recommendation{
			Kind:    domain.RecommendationClusterByRegion,
			Message: fmt.Sprintf("%d long-travel pairs detected; cluster same-day jobs by region", n),
		})
	}
	if n := byType[domain.ConflictTypeUnavailableTeam]; n > unavailableRecommendationThreshold {
		recs = append(recs, domain.Recommendation{
			Kind:    domain.RecommendationSyncAvailability,
			Message: fmt.Sprintf("%d assignments hit unavailable members; sync availability before scheduling", n),
		})
	}
	return recs
}
