package domain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ErrAssignmentNotFound is returned when a snapshot lookup misses.
var ErrAssignmentNotFound = errors.New("assignment not found in snapshot")

// Snapshot is a point-in-time, single-project view of the scheduling state:
// the assignments under evaluation plus the installations and team members
// they reference. Detection and proposal run against one snapshot so their
// results are deterministic; Version is the optimistic-concurrency token the
// executor validates before mutating anything.
type Snapshot struct {
	projectID     uuid.UUID
	version       int64
	dateRange     DateRange
	assignments   []*Assignment
	installations map[uuid.UUID]*Installation
	members       map[uuid.UUID]*TeamMember
}

// NewSnapshot builds a snapshot from caller-supplied collections.
func NewSnapshot(projectID uuid.UUID, version int64, dateRange DateRange, assignments []*Assignment, installations []*Installation, members []*TeamMember) *Snapshot {
	s := &Snapshot{
		projectID:     projectID,
		version:       version,
		dateRange:     dateRange,
		assignments:   append([]*Assignment(nil), assignments...),
		installations: make(map[uuid.UUID]*Installation, len(installations)),
		members:       make(map[uuid.UUID]*TeamMember, len(members)),
	}
	for _, inst := range installations {
		s.installations[inst.ID()] = inst
	}
	for _, m := range members {
		s.members[m.ID()] = m
	}
	return s
}

func (s *Snapshot) ProjectID() uuid.UUID { return s.projectID }
func (s *Snapshot) Version() int64       { return s.version }
func (s *Snapshot) DateRange() DateRange { return s.dateRange }

// Assignments returns the assignment set. Callers must not mutate entries.
func (s *Snapshot) Assignments() []*Assignment {
	return s.assignments
}

// Assignment looks up an assignment by id.
func (s *Snapshot) Assignment(id uuid.UUID) (*Assignment, error) {
	for _, a := range s.assignments {
		if a.ID() == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
}

// Installation looks up reference data for a job site; nil when unknown.
func (s *Snapshot) Installation(id uuid.UUID) *Installation {
	return s.installations[id]
}

// TeamMember looks up a member by id; nil when unknown.
func (s *Snapshot) TeamMember(id uuid.UUID) *TeamMember {
	return s.members[id]
}

// TeamMembers returns all members ordered by id for deterministic iteration.
func (s *Snapshot) TeamMembers() []*TeamMember {
	members := make([]*TeamMember, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].ID().String() < members[j].ID().String()
	})
	return members
}

// Installations returns all installations ordered by id.
func (s *Snapshot) Installations() []*Installation {
	installations := make([]*Installation, 0, len(s.installations))
	for _, inst := range s.installations {
		installations = append(installations, inst)
	}
	sort.Slice(installations, func(i, j int) bool {
		return installations[i].ID().String() < installations[j].ID().String()
	})
	return installations
}

// Clone deep-copies the assignment set. Installations and team members are
// shared because the engine never mutates them.
func (s *Snapshot) Clone() *Snapshot {
	assignments := make([]*Assignment, len(s.assignments))
	for i, a := range s.assignments {
		assignments[i] = a.Clone()
	}
	return &Snapshot{
		projectID:     s.projectID,
		version:       s.version,
		dateRange:     s.dateRange,
		assignments:   assignments,
		installations: s.installations,
		members:       s.members,
	}
}

// AddAssignment appends a new assignment, e.g. the second visit created by a
// split resolution.
func (s *Snapshot) AddAssignment(a *Assignment) {
	s.assignments = append(s.assignments, a)
}

// BumpVersion increments the version token. Called by the executor after a
// successful mutation.
func (s *Snapshot) BumpVersion() {
	s.version++
}
