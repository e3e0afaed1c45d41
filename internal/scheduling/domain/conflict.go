package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConflictType classifies a detected scheduling violation.
type ConflictType string

const (
	// ConflictTypeTimeOverlap indicates a member double-booked on
	// overlapping windows.
	ConflictTypeTimeOverlap ConflictType = "time_overlap"
	// ConflictTypeCapacityExceeded indicates a member over their daily
	// job limit.
	ConflictTypeCapacityExceeded ConflictType = "capacity_exceeded"
	// ConflictTypeTravelDistance indicates consecutive jobs too far apart
	// for the gap between them.
	ConflictTypeTravelDistance ConflictType = "travel_distance"
	// ConflictTypeUnavailableTeam indicates an assignment outside a
	// member's working hours or during declared unavailability.
	ConflictTypeUnavailableTeam ConflictType = "unavailable_team"
)

// Severity ranks how disruptive a conflict is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a numeric ordering for severities; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the severity is equal to or worse than other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// SchedulingConflict is a detected violation of a scheduling constraint.
// Conflicts are produced fresh on every detection run and never persisted
// as mutable entities; only their resolution history outlives a run.
type SchedulingConflict struct {
	ID                  uuid.UUID
	Type                ConflictType
	Severity            Severity
	AffectedJobs        []uuid.UUID // installation ids, non-empty
	AffectedTeamMembers []uuid.UUID // non-empty
	Description         string
	AutoResolvable      bool
	SuggestedResolution string
	DetectedAt          time.Time
}

// Key returns a stable identity for the conflict that ignores the generated
// id and detection timestamp. Two detection runs over the same snapshot
// produce conflicts with identical keys, which is what determinism and
// impact checks compare.
func (c SchedulingConflict) Key() string {
	jobs := idStrings(c.AffectedJobs)
	members := idStrings(c.AffectedTeamMembers)
	sort.Strings(jobs)
	sort.Strings(members)
	return string(c.Type) + "|" + strings.Join(members, ",") + "|" + strings.Join(jobs, ",")
}

// ConflictKeySet builds a lookup of conflict keys to worst severity seen.
func ConflictKeySet(conflicts []SchedulingConflict) map[string]Severity {
	keys := make(map[string]Severity, len(conflicts))
	for _, c := range conflicts {
		if existing, ok := keys[c.Key()]; !ok || c.Severity.Rank() > existing.Rank() {
			keys[c.Key()] = c.Severity
		}
	}
	return keys
}

// SortConflicts orders conflicts by severity (worst first), then by key for
// a deterministic presentation order.
func SortConflicts(conflicts []SchedulingConflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Severity.Rank() != conflicts[j].Severity.Rank() {
			return conflicts[i].Severity.Rank() > conflicts[j].Severity.Rank()
		}
		return conflicts[i].Key() < conflicts[j].Key()
	})
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
