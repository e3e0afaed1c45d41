package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSnapshotSource implements domain.SnapshotSource by loading the
// project's assignments, installations and team members from PostgreSQL in a
// single repeatable-read transaction.
type PostgresSnapshotSource struct {
	pool        *pgxpool.Pool
	assignments *PostgresAssignmentRepository
}

// NewPostgresSnapshotSource creates a new snapshot source.
func NewPostgresSnapshotSource(pool *pgxpool.Pool) *PostgresSnapshotSource {
	return &PostgresSnapshotSource{
		pool:        pool,
		assignments: NewPostgresAssignmentRepository(pool),
	}
}

// LoadSnapshot builds a point-in-time scheduling snapshot for the project.
func (s *PostgresSnapshotSource) LoadSnapshot(ctx context.Context, projectID uuid.UUID, dateRange domain.DateRange) (*domain.Snapshot, error) {
	assignments, version, err := s.assignments.FindByProjectAndRange(ctx, projectID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	installations, err := s.loadInstallations(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading installations: %w", err)
	}

	members, err := s.loadTeamMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading team members: %w", err)
	}

	return domain.NewSnapshot(projectID, version, dateRange, assignments, installations, members), nil
}

func (s *PostgresSnapshotSource) loadInstallations(ctx context.Context, projectID uuid.UUID) ([]*domain.Installation, error) {
	query := `
		SELECT id, name, address, latitude, longitude, window_start, window_end,
		       duration_minutes, priority, created_at, updated_at
		FROM installations
		WHERE project_id = $1
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installations []*domain.Installation
	for rows.Next() {
		var (
			id                        uuid.UUID
			name, address             string
			latitude, longitude       *float64
			windowStart, windowEnd    time.Time
			durationMinutes, priority int
			createdAt, updatedAt      time.Time
		)
		if err := rows.Scan(&id, &name, &address, &latitude, &longitude,
			&windowStart, &windowEnd, &durationMinutes, &priority, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		installations = append(installations, domain.RehydrateInstallation(
			shared.RehydrateBaseEntity(id, createdAt, updatedAt),
			projectID,
			name,
			buildLocation(address, latitude, longitude),
			domain.TimeRange{Start: windowStart, End: windowEnd},
			time.Duration(durationMinutes)*time.Minute,
			priority,
		))
	}
	return installations, rows.Err()
}

func (s *PostgresSnapshotSource) loadTeamMembers(ctx context.Context, projectID uuid.UUID) ([]*domain.TeamMember, error) {
	query := `
		SELECT id, name, role, skills, address, latitude, longitude,
		       work_start_minutes, work_end_minutes, max_jobs_per_day, unavailability,
		       created_at, updated_at
		FROM team_members
		WHERE project_id = $1
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.TeamMember
	for rows.Next() {
		var (
			id                                uuid.UUID
			name, role, skills, address       string
			latitude, longitude               *float64
			workStartMin, workEndMin, maxJobs int
			unavailability                    []byte
			createdAt, updatedAt              time.Time
		)
		if err := rows.Scan(&id, &name, &role, &skills, &address, &latitude, &longitude,
			&workStartMin, &workEndMin, &maxJobs, &unavailability, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		unavailable, err := decodeUnavailability(unavailability)
		if err != nil {
			return nil, fmt.Errorf("team member %s: %w", id, err)
		}

		members = append(members, domain.RehydrateTeamMember(
			shared.RehydrateBaseEntity(id, createdAt, updatedAt),
			projectID,
			name,
			role,
			splitSkills(skills),
			buildLocation(address, latitude, longitude),
			domain.WorkingHours{
				Start: time.Duration(workStartMin) * time.Minute,
				End:   time.Duration(workEndMin) * time.Minute,
			},
			maxJobs,
			unavailable,
		))
	}
	return members, rows.Err()
}

func buildLocation(address string, latitude, longitude *float64) domain.Location {
	loc := domain.Location{Address: address}
	if latitude != nil && longitude != nil {
		loc.Coordinates = &domain.Coordinates{Latitude: *latitude, Longitude: *longitude}
	}
	return loc
}

func splitSkills(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}
	return skills
}

func joinSkills(skills []string) string {
	return strings.Join(skills, ",")
}

type storedWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func decodeUnavailability(raw []byte) ([]domain.TimeRange, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var windows []storedWindow
	if err := json.Unmarshal(raw, &windows); err != nil {
		return nil, fmt.Errorf("decoding unavailability: %w", err)
	}
	ranges := make([]domain.TimeRange, len(windows))
	for i, w := range windows {
		ranges[i] = domain.TimeRange{Start: w.Start, End: w.End}
	}
	return ranges, nil
}

func encodeUnavailability(ranges []domain.TimeRange) ([]byte, error) {
	windows := make([]storedWindow, len(ranges))
	for i, r := range ranges {
		windows[i] = storedWindow{Start: r.Start, End: r.End}
	}
	return json.Marshal(windows)
}
