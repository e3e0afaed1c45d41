package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
)

// SQLiteSnapshotSource implements domain.SnapshotSource using SQLite.
type SQLiteSnapshotSource struct {
	db          *sql.DB
	assignments *SQLiteAssignmentRepository
}

// NewSQLiteSnapshotSource creates a new snapshot source.
func NewSQLiteSnapshotSource(db *sql.DB) *SQLiteSnapshotSource {
	return &SQLiteSnapshotSource{
		db:          db,
		assignments: NewSQLiteAssignmentRepository(db),
	}
}

// LoadSnapshot builds a point-in-time scheduling snapshot for the project.
func (s *SQLiteSnapshotSource) LoadSnapshot(ctx context.Context, projectID uuid.UUID, dateRange domain.DateRange) (*domain.Snapshot, error) {
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

// SeedReferenceData writes the snapshot's installations and team members,
// replacing existing rows. Used by imports and test fixtures.
func (s *SQLiteSnapshotSource) SeedReferenceData(ctx context.Context, snapshot *domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	projectID := snapshot.ProjectID().String()

	installUpsert := `
		INSERT INTO installations (id, project_id, name, address, latitude, longitude,
			window_start, window_end, duration_minutes, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			duration_minutes = excluded.duration_minutes,
			priority = excluded.priority,
			updated_at = excluded.updated_at
	`
	for _, inst := range snapshot.Installations() {
		lat, lng := splitCoordinates(inst.Location())
		if _, err := tx.ExecContext(ctx, installUpsert,
			inst.ID().String(),
			projectID,
			inst.Name(),
			inst.Location().Address,
			lat, lng,
			inst.Window().Start.UTC().Format(time.RFC3339Nano),
			inst.Window().End.UTC().Format(time.RFC3339Nano),
			int(inst.Duration().Minutes()),
			inst.Priority(),
			inst.CreatedAt().UTC().Format(time.RFC3339Nano),
			inst.UpdatedAt().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upserting installation %s: %w", inst.ID(), err)
		}
	}

	memberUpsert := `
		INSERT INTO team_members (id, project_id, name, role, skills, address, latitude, longitude,
			work_start_minutes, work_end_minutes, max_jobs_per_day, unavailability, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			skills = excluded.skills,
			address = excluded.address,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			work_start_minutes = excluded.work_start_minutes,
			work_end_minutes = excluded.work_end_minutes,
			max_jobs_per_day = excluded.max_jobs_per_day,
			unavailability = excluded.unavailability,
			updated_at = excluded.updated_at
	`
	for _, m := range snapshot.TeamMembers() {
		unavailable, err := encodeUnavailability(m.Unavailability())
		if err != nil {
			return fmt.Errorf("team member %s: %w", m.ID(), err)
		}
		lat, lng := splitCoordinates(m.HomeBase())
		if _, err := tx.ExecContext(ctx, memberUpsert,
			m.ID().String(),
			projectID,
			m.Name(),
			m.Role(),
			joinSkills(m.Skills()),
			m.HomeBase().Address,
			lat, lng,
			int(m.WorkingHours().Start.Minutes()),
			int(m.WorkingHours().End.Minutes()),
			m.MaxJobsPerDay(),
			string(unavailable),
			m.CreatedAt().UTC().Format(time.RFC3339Nano),
			m.UpdatedAt().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upserting team member %s: %w", m.ID(), err)
		}
	}

	return tx.Commit()
}

func splitCoordinates(loc domain.Location) (*float64, *float64) {
	if !loc.HasCoordinates() {
		return nil, nil
	}
	return &loc.Coordinates.Latitude, &loc.Coordinates.Longitude
}

func (s *SQLiteSnapshotSource) loadInstallations(ctx context.Context, projectID uuid.UUID) ([]*domain.Installation, error) {
	query := `
		SELECT id, name, address, latitude, longitude, window_start, window_end,
		       duration_minutes, priority, created_at, updated_at
		FROM installations
		WHERE project_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installations []*domain.Installation
	for rows.Next() {
		var (
			idStr, name, address                     string
			latitude, longitude                      *float64
			startStr, endStr, createdStr, updatedStr string
			durationMinutes, priority                int
		)
		if err := rows.Scan(&idStr, &name, &address, &latitude, &longitude,
			&startStr, &endStr, &durationMinutes, &priority, &createdStr, &updatedStr); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing installation id %q: %w", idStr, err)
		}
		window, err := parseWindow(startStr, endStr)
		if err != nil {
			return nil, fmt.Errorf("installation %s: %w", id, err)
		}
		createdAt, updatedAt, err := parseAuditTimes(createdStr, updatedStr)
		if err != nil {
			return nil, fmt.Errorf("installation %s: %w", id, err)
		}

		installations = append(installations, domain.RehydrateInstallation(
			shared.RehydrateBaseEntity(id, createdAt, updatedAt),
			projectID,
			name,
			buildLocation(address, latitude, longitude),
			window,
			time.Duration(durationMinutes)*time.Minute,
			priority,
		))
	}
	return installations, rows.Err()
}

func (s *SQLiteSnapshotSource) loadTeamMembers(ctx context.Context, projectID uuid.UUID) ([]*domain.TeamMember, error) {
	query := `
		SELECT id, name, role, skills, address, latitude, longitude,
		       work_start_minutes, work_end_minutes, max_jobs_per_day, unavailability,
		       created_at, updated_at
		FROM team_members
		WHERE project_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.TeamMember
	for rows.Next() {
		var (
			idStr, name, role, skills, address string
			latitude, longitude                *float64
			workStartMin, workEndMin, maxJobs  int
			unavailability                     string
			createdStr, updatedStr             string
		)
		if err := rows.Scan(&idStr, &name, &role, &skills, &address, &latitude, &longitude,
			&workStartMin, &workEndMin, &maxJobs, &unavailability, &createdStr, &updatedStr); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing team member id %q: %w", idStr, err)
		}
		unavailable, err := decodeUnavailability([]byte(unavailability))
		if err != nil {
			return nil, fmt.Errorf("team member %s: %w", id, err)
		}
		createdAt, updatedAt, err := parseAuditTimes(createdStr, updatedStr)
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
