package domain

import (
	"time"

	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
)

// WorkingHours describes a member's daily working window as offsets from
// local midnight, e.g. 8h-17h. A zero value means no hours configured.
type WorkingHours struct {
	Start time.Duration
	End   time.Duration
}

// IsZero reports whether no working hours are configured.
func (w WorkingHours) IsZero() bool {
	return w.Start == 0 && w.End == 0
}

// WindowFor returns the concrete working window on a given day.
func (w WorkingHours) WindowFor(day time.Time) TimeRange {
	midnight := midnightUTC(day)
	return TimeRange{Start: midnight.Add(w.Start), End: midnight.Add(w.End)}
}

// Covers reports whether the given range falls entirely inside working hours.
func (w WorkingHours) Covers(window TimeRange) bool {
	working := w.WindowFor(window.Start)
	return !window.Start.Before(working.Start) && !window.End.After(working.End)
}

// DefaultWorkingHours returns a standard 08:00-17:00 profile.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{Start: 8 * time.Hour, End: 17 * time.Hour}
}

// TeamMember is an installer who can be assigned field jobs.
type TeamMember struct {
	shared.BaseEntity
	projectID     uuid.UUID
	name          string
	role          string
	skills        []string
	homeBase      Location
	workingHours  WorkingHours
	maxJobsPerDay int
	unavailable   []TimeRange
}

// NewTeamMember creates a new team member.
func NewTeamMember(projectID uuid.UUID, name, role string, skills []string, homeBase Location, hours WorkingHours, maxJobsPerDay int) *TeamMember {
	if hours.IsZero() {
		hours = DefaultWorkingHours()
	}
	return &TeamMember{
		BaseEntity:    shared.NewBaseEntity(),
		projectID:     projectID,
		name:          name,
		role:          role,
		skills:        skills,
		homeBase:      homeBase,
		workingHours:  hours,
		maxJobsPerDay: maxJobsPerDay,
	}
}

// RehydrateTeamMember recreates a team member from persisted state.
func RehydrateTeamMember(entity shared.BaseEntity, projectID uuid.UUID, name, role string, skills []string, homeBase Location, hours WorkingHours, maxJobsPerDay int, unavailable []TimeRange) *TeamMember {
	return &TeamMember{
		BaseEntity:    entity,
		projectID:     projectID,
		name:          name,
		role:          role,
		skills:        skills,
		homeBase:      homeBase,
		workingHours:  hours,
		maxJobsPerDay: maxJobsPerDay,
		unavailable:   unavailable,
	}
}

func (m *TeamMember) ProjectID() uuid.UUID       { return m.projectID }
func (m *TeamMember) Name() string               { return m.name }
func (m *TeamMember) Role() string               { return m.role }
func (m *TeamMember) Skills() []string           { return m.skills }
func (m *TeamMember) HomeBase() Location         { return m.homeBase }
func (m *TeamMember) WorkingHours() WorkingHours { return m.workingHours }
func (m *TeamMember) MaxJobsPerDay() int         { return m.maxJobsPerDay }
func (m *TeamMember) Unavailability() []TimeRange {
	return m.unavailable
}

// AddUnavailability declares a window during which the member cannot work.
func (m *TeamMember) AddUnavailability(window TimeRange) {
	m.unavailable = append(m.unavailable, window)
	m.Touch()
}

// HasSkill reports whether the member carries the given skill tag.
func (m *TeamMember) HasSkill(skill string) bool {
	for _, s := range m.skills {
		if s == skill {
			return true
		}
	}
	return false
}

// HasSkills reports whether the member carries every given skill tag.
func (m *TeamMember) HasSkills(skills []string) bool {
	for _, s := range skills {
		if !m.HasSkill(s) {
			return false
		}
	}
	return true
}

// IsAvailable reports whether the member can work the given window:
// inside working hours and not during declared unavailability.
func (m *TeamMember) IsAvailable(window TimeRange) bool {
	if !m.workingHours.Covers(window) {
		return false
	}
	for _, u := range m.unavailable {
		if u.Overlaps(window) {
			return false
		}
	}
	return true
}
