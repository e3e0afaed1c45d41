package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
)

// scheduleFile is the on-disk JSON representation of a scheduling snapshot.
type scheduleFile struct {
	ProjectID     uuid.UUID          `json:"project_id"`
	Version       int64              `json:"version"`
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	TeamMembers   []fileTeamMember   `json:"team_members"`
	Installations []fileInstallation `json:"installations"`
	Assignments   []fileAssignment   `json:"assignments"`
}

type fileLocation struct {
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type fileWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type fileTeamMember struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Role           string       `json:"role,omitempty"`
	Skills         []string     `json:"skills,omitempty"`
	HomeBase       fileLocation `json:"home_base"`
	WorkStart      string       `json:"work_start,omitempty"`
	WorkEnd        string       `json:"work_end,omitempty"`
	MaxJobsPerDay  int          `json:"max_jobs_per_day,omitempty"`
	Unavailability []fileWindow `json:"unavailability,omitempty"`
}

type fileInstallation struct {
	ID              uuid.UUID    `json:"id"`
	Name            string       `json:"name"`
	Location        fileLocation `json:"location"`
	Window          fileWindow   `json:"window"`
	DurationMinutes int          `json:"duration_minutes"`
	Priority        int          `json:"priority,omitempty"`
}

type fileAssignment struct {
	ID             uuid.UUID   `json:"id"`
	InstallationID uuid.UUID   `json:"installation_id"`
	TeamMemberIDs  []uuid.UUID `json:"team_member_ids"`
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	Status         string      `json:"status,omitempty"`
}

// loadScheduleFile reads a schedule JSON file into a domain snapshot.
func loadScheduleFile(path string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}

	var file scheduleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing schedule file: %w", err)
	}
	if file.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("schedule file is missing project_id")
	}

	members := make([]*domain.TeamMember, 0, len(file.TeamMembers))
	for _, m := range file.TeamMembers {
		hours, err := parseWorkingHours(m.WorkStart, m.WorkEnd)
		if err != nil {
			return nil, fmt.Errorf("team member %s: %w", m.Name, err)
		}
		members = append(members, domain.RehydrateTeamMember(
			shared.RehydrateBaseEntity(m.ID, time.Now(), time.Now()),
			file.ProjectID,
			m.Name,
			m.Role,
			m.Skills,
			toLocation(m.HomeBase),
			hours,
			m.MaxJobsPerDay,
			toWindows(m.Unavailability),
		))
	}

	installations := make([]*domain.Installation, 0, len(file.Installations))
	for _, inst := range file.Installations {
		installations = append(installations, domain.RehydrateInstallation(
			shared.RehydrateBaseEntity(inst.ID, time.Now(), time.Now()),
			file.ProjectID,
			inst.Name,
			toLocation(inst.Location),
			domain.TimeRange{Start: inst.Window.Start, End: inst.Window.End},
			time.Duration(inst.DurationMinutes)*time.Minute,
			inst.Priority,
		))
	}

	assignments := make([]*domain.Assignment, 0, len(file.Assignments))
	for _, a := range file.Assignments {
		status := domain.AssignmentStatus(a.Status)
		if status == "" {
			status = domain.AssignmentStatusScheduled
		}
		assignments = append(assignments, domain.RehydrateAssignment(
			shared.RehydrateBaseAggregateRoot(shared.RehydrateBaseEntity(a.ID, time.Now(), time.Now()), int(file.Version)),
			file.ProjectID,
			a.InstallationID,
			a.TeamMemberIDs,
			domain.TimeRange{Start: a.Start, End: a.End},
			status,
		))
	}

	dateRange := domain.NewDateRange(file.From, file.To)
	return domain.NewSnapshot(file.ProjectID, file.Version, dateRange, assignments, installations, members), nil
}

// saveScheduleAssignments writes the snapshot's assignment set and version
// back to the schedule file, leaving reference data untouched.
func saveScheduleAssignments(path string, snapshot *domain.Snapshot) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schedule file: %w", err)
	}
	var file scheduleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing schedule file: %w", err)
	}

	file.Version = snapshot.Version()
	file.Assignments = file.Assignments[:0]
	for _, a := range snapshot.Assignments() {
		file.Assignments = append(file.Assignments, fileAssignment{
			ID:             a.ID(),
			InstallationID: a.InstallationID(),
			TeamMemberIDs:  a.TeamMemberIDs(),
			Start:          a.Window().Start,
			End:            a.Window().End,
			Status:         string(a.Status()),
		})
	}

	out, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schedule file: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

func toLocation(l fileLocation) domain.Location {
	loc := domain.Location{Address: l.Address}
	if l.Latitude != nil && l.Longitude != nil {
		loc.Coordinates = &domain.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}
	}
	return loc
}

func toWindows(windows []fileWindow) []domain.TimeRange {
	ranges := make([]domain.TimeRange, len(windows))
	for i, w := range windows {
		ranges[i] = domain.TimeRange{Start: w.Start, End: w.End}
	}
	return ranges
}

// parseWorkingHours parses "HH:MM" clock strings into daily offsets.
// Empty strings fall back to the default 08:00-17:00 profile.
func parseWorkingHours(start, end string) (domain.WorkingHours, error) {
	if start == "" && end == "" {
		return domain.DefaultWorkingHours(), nil
	}
	startOffset, err := parseClock(start)
	if err != nil {
		return domain.WorkingHours{}, fmt.Errorf("invalid work_start: %w", err)
	}
	endOffset, err := parseClock(end)
	if err != nil {
		return domain.WorkingHours{}, fmt.Errorf("invalid work_end: %w", err)
	}
	return domain.WorkingHours{Start: startOffset, End: endOffset}, nil
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
