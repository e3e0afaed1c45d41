package services

import (
	"sort"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/google/uuid"
)

// AvailabilityIndex is a per-team-member lookup of commitments and daily job
// counts, precomputed once per detection run. Only active assignments count:
// completed and cancelled work no longer occupies schedule time.
type AvailabilityIndex struct {
	snapshot   *domain.Snapshot
	byMember   map[uuid.UUID][]*domain.Assignment
	dailyCount map[uuid.UUID]map[string]int
}

// BuildAvailabilityIndex indexes the snapshot's active assignments.
func BuildAvailabilityIndex(snapshot *domain.Snapshot) *AvailabilityIndex {
	idx := &AvailabilityIndex{
		snapshot:   snapshot,
		byMember:   make(map[uuid.UUID][]*domain.Assignment),
		dailyCount: make(map[uuid.UUID]map[string]int),
	}
	for _, a := range snapshot.Assignments() {
		if !a.IsActive() {
			continue
		}
		for _, memberID := range a.TeamMemberIDs() {
			idx.byMember[memberID] = append(idx.byMember[memberID], a)
			day := domain.DayKey(a.Window().Start)
			if idx.dailyCount[memberID] == nil {
				idx.dailyCount[memberID] = make(map[string]int)
			}
			idx.dailyCount[memberID][day]++
		}
	}
	for _, assignments := range idx.byMember {
		sort.Slice(assignments, func(i, j int) bool {
			if !assignments[i].Window().Start.Equal(assignments[j].Window().Start) {
				return assignments[i].Window().Start.Before(assignments[j].Window().Start)
			}
			return assignments[i].ID().String() < assignments[j].ID().String()
		})
	}
	return idx
}

// AssignmentsFor returns a member's active assignments sorted by start time.
func (idx *AvailabilityIndex) AssignmentsFor(memberID uuid.UUID) []*domain.Assignment {
	return idx.byMember[memberID]
}

// JobCount returns how many jobs a member holds on the given day.
func (idx *AvailabilityIndex) JobCount(memberID uuid.UUID, day string) int {
	return idx.dailyCount[memberID][day]
}

// HasCapacity reports whether a member can take one more job on the day.
func (idx *AvailabilityIndex) HasCapacity(memberID uuid.UUID, day string) bool {
	member := idx.snapshot.TeamMember(memberID)
	if member == nil {
		return false
	}
	max := member.MaxJobsPerDay()
	if max <= 0 {
		return true
	}
	return idx.dailyCount[memberID][day] < max
}

// IsFree reports whether a member has no commitment overlapping the window
// and is available per their working-hours profile.
func (idx *AvailabilityIndex) IsFree(memberID uuid.UUID, window domain.TimeRange) bool {
	member := idx.snapshot.TeamMember(memberID)
	if member == nil || !member.IsAvailable(window) {
		return false
	}
	for _, a := range idx.byMember[memberID] {
		if a.Window().Overlaps(window) {
			return false
		}
	}
	return true
}

// ReassignmentTargets returns members, ordered by id, that could take the
// given assignment: free for its window, with daily capacity to spare, and
// not already holding it. Candidates that lack the required role are still
// returned when strictRole is false; scoring penalizes the mismatch instead.
func (idx *AvailabilityIndex) ReassignmentTargets(assignment *domain.Assignment, requiredRole string, strictRole bool) []*domain.TeamMember {
	var targets []*domain.TeamMember
	day := domain.DayKey(assignment.Window().Start)
	for _, member := range idx.snapshot.TeamMembers() {
		if assignment.AssignedTo(member.ID()) {
			continue
		}
		if strictRole && requiredRole != "" && member.Role() != requiredRole && !member.HasSkill(requiredRole) {
			continue
		}
		if !idx.HasCapacity(member.ID(), day) {
			continue
		}
		if !idx.IsFree(member.ID(), assignment.Window()) {
			continue
		}
		targets = append(targets, member)
	}
	return targets
}
