package domain

import (
	"time"

	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
)

// Coordinates represents a WGS84 point.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// IsZero reports whether the coordinates are unset.
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// Equals checks if two coordinate values are equal.
func (c Coordinates) Equals(other shared.ValueObject) bool {
	o, ok := other.(Coordinates)
	return ok && c.Latitude == o.Latitude && c.Longitude == o.Longitude
}

// Location is a physical job site or team member home base.
// Coordinates are optional; geocoding is a collaborator concern and
// installations may arrive before their address has been resolved.
type Location struct {
	Address     string
	Coordinates *Coordinates
}

// HasCoordinates reports whether the location can be used for travel estimates.
func (l Location) HasCoordinates() bool {
	return l.Coordinates != nil && !l.Coordinates.IsZero()
}

// Equals checks if two locations are equal.
func (l Location) Equals(other shared.ValueObject) bool {
	o, ok := other.(Location)
	if !ok || l.Address != o.Address {
		return false
	}
	if l.Coordinates == nil || o.Coordinates == nil {
		return l.Coordinates == o.Coordinates
	}
	return l.Coordinates.Equals(*o.Coordinates)
}

// Installation priority levels. Lower is more urgent.
const (
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityMedium = 3
	PriorityLow    = 4
)

// Installation represents a physical field job to be performed at a site.
// It is read-mostly reference data: once a conflict references it, the
// installation only changes through an executed reschedule resolution.
type Installation struct {
	shared.BaseEntity
	projectID uuid.UUID
	name      string
	location  Location
	window    TimeRange
	duration  time.Duration
	priority  int
}

// NewInstallation creates a new installation.
func NewInstallation(projectID uuid.UUID, name string, location Location, window TimeRange, duration time.Duration, priority int) *Installation {
	return &Installation{
		BaseEntity: shared.NewBaseEntity(),
		projectID:  projectID,
		name:       name,
		location:   location,
		window:     window,
		duration:   duration,
		priority:   priority,
	}
}

// RehydrateInstallation recreates an installation from persisted state.
func RehydrateInstallation(entity shared.BaseEntity, projectID uuid.UUID, name string, location Location, window TimeRange, duration time.Duration, priority int) *Installation {
	return &Installation{
		BaseEntity: entity,
		projectID:  projectID,
		name:       name,
		location:   location,
		window:     window,
		duration:   duration,
		priority:   priority,
	}
}

func (i *Installation) ProjectID() uuid.UUID    { return i.projectID }
func (i *Installation) Name() string            { return i.name }
func (i *Installation) Location() Location      { return i.location }
func (i *Installation) Window() TimeRange       { return i.window }
func (i *Installation) Duration() time.Duration { return i.duration }
func (i *Installation) Priority() int           { return i.priority }
