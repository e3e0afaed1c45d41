package domain

import "time"

// RecommendationKind tags a prevention recommendation. The closed set keeps
// analytics payloads fully typed for downstream consumers.
type RecommendationKind string

const (
	RecommendationBufferTime       RecommendationKind = "buffer_time"
	RecommendationRebalanceLoad    RecommendationKind = "rebalance_load"
	RecommendationClusterByRegion  RecommendationKind = "cluster_by_region"
	RecommendationSyncAvailability RecommendationKind = "sync_availability"
)

// Recommendation is a threshold-triggered prevention hint.
type Recommendation struct {
	Kind    RecommendationKind
	Message string
}

// ConflictAnalytics is derived on demand from live conflicts and accumulated
// resolution history; it is never stored.
type ConflictAnalytics struct {
	TotalConflicts            int
	ResolvedCount             int
	AverageResolutionTime     time.Duration
	ConflictsByType           map[ConflictType]int
	ResolutionSuccessRate     float64
	PreventionRecommendations []Recommendation
}
