package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSchedulingConflict_Key_IgnoresOrderAndIdentity(t *testing.T) {
	member := uuid.New()
	jobA := uuid.New()
	jobB := uuid.New()

	first := SchedulingConflict{
		ID:                  uuid.New(),
		Type:                ConflictTypeTimeOverlap,
		AffectedJobs:        []uuid.UUID{jobA, jobB},
		AffectedTeamMembers: []uuid.UUID{member},
	}
	second := SchedulingConflict{
		ID:                  uuid.New(),
		Type:                ConflictTypeTimeOverlap,
		AffectedJobs:        []uuid.UUID{jobB, jobA},
		AffectedTeamMembers: []uuid.UUID{member},
	}

	assert.Equal(t, first.Key(), second.Key())

	different := first
	different.Type = ConflictTypeCapacityExceeded
	assert.NotEqual(t, first.Key(), different.Key())
}

func TestConflictKeySet_KeepsWorstSeverity(t *testing.T) {
	member := uuid.New()
	job := uuid.New()
	base := SchedulingConflict{
		Type:                ConflictTypeTravelDistance,
		AffectedJobs:        []uuid.UUID{job},
		AffectedTeamMembers: []uuid.UUID{member},
	}

	medium := base
	medium.Severity = SeverityMedium
	high := base
	high.Severity = SeverityHigh

	keys := ConflictKeySet([]SchedulingConflict{medium, high})
	assert.Len(t, keys, 1)
	assert.Equal(t, SeverityHigh, keys[base.Key()])
}

func TestSortConflicts_WorstFirstThenStable(t *testing.T) {
	member := uuid.New()
	mk := func(severity Severity, conflictType ConflictType) SchedulingConflict {
		return SchedulingConflict{
			Severity:            severity,
			Type:                conflictType,
			AffectedJobs:        []uuid.UUID{uuid.New()},
			AffectedTeamMembers: []uuid.UUID{member},
		}
	}

	conflicts := []SchedulingConflict{
		mk(SeverityMedium, ConflictTypeCapacityExceeded),
		mk(SeverityCritical, ConflictTypeTimeOverlap),
		mk(SeverityHigh, ConflictTypeUnavailableTeam),
	}
	SortConflicts(conflicts)

	assert.Equal(t, SeverityCritical, conflicts[0].Severity)
	assert.Equal(t, SeverityHigh, conflicts[1].Severity)
	assert.Equal(t, SeverityMedium, conflicts[2].Severity)
}

func TestSeverity_Rank(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.True(t, SeverityLow.AtLeast(Severity("unknown")))
}
