package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLiteAssignmentRepository implements domain.AssignmentRepository using
// SQLite, for single-node and development setups. Semantics mirror the
// PostgreSQL repository: schedule_versions carries the optimistic token.
type SQLiteAssignmentRepository struct {
	db *sql.DB
}

// NewSQLiteAssignmentRepository creates a new SQLite assignment repository.
func NewSQLiteAssignmentRepository(db *sql.DB) *SQLiteAssignmentRepository {
	return &SQLiteAssignmentRepository{db: db}
}

// FindByProjectAndRange loads the project's assignments whose windows start
// inside the date range, along with the current collection version.
func (r *SQLiteAssignmentRepository) FindByProjectAndRange(ctx context.Context, projectID uuid.UUID, dateRange domain.DateRange) ([]*domain.Assignment, int64, error) {
	version, err := r.currentVersion(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, installation_id, team_member_ids, start_time, end_time, status, created_at, updated_at
		FROM assignments
		WHERE project_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time, id
	`
	rows, err := r.db.QueryContext(ctx, query,
		projectID.String(),
		dateRange.From.UTC().Format(time.RFC3339Nano),
		dateRange.To.AddDate(0, 0, 1).UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*domain.Assignment
	for rows.Next() {
		var (
			idStr, installationStr, memberIDs, status string
			startStr, endStr, createdStr, updatedStr  string
		)
		if err := rows.Scan(&idStr, &installationStr, &memberIDs, &startStr, &endStr, &status, &createdStr, &updatedStr); err != nil {
			return nil, 0, fmt.Errorf("scanning assignment: %w", err)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, 0, fmt.Errorf("parsing assignment id %q: %w", idStr, err)
		}
		installationID, err := uuid.Parse(installationStr)
		if err != nil {
			return nil, 0, fmt.Errorf("assignment %s: parsing installation id: %w", id, err)
		}
		members, err := splitUUIDs(memberIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("assignment %s: %w", id, err)
		}
		window, err := parseWindow(startStr, endStr)
		if err != nil {
			return nil, 0, fmt.Errorf("assignment %s: %w", id, err)
		}
		createdAt, updatedAt, err := parseAuditTimes(createdStr, updatedStr)
		if err != nil {
			return nil, 0, fmt.Errorf("assignment %s: %w", id, err)
		}

		root := shared.RehydrateBaseAggregateRoot(shared.RehydrateBaseEntity(id, createdAt, updatedAt), int(version))
		assignments = append(assignments, domain.RehydrateAssignment(
			root,
			projectID,
			installationID,
			members,
			window,
			domain.AssignmentStatus(status),
		))
	}
	return assignments, version, rows.Err()
}

// SaveBatch rewrites the project's assignment rows and bumps the collection
// version, failing with domain.ErrVersionMismatch when the stored version no
// longer matches.
func (r *SQLiteAssignmentRepository) SaveBatch(ctx context.Context, projectID uuid.UUID, assignments []*domain.Assignment, expectedVersion int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM schedule_versions WHERE project_id = ?`,
		projectID.String(),
	).Scan(&current)
	switch {
	case database.IsNoRows(err):
		current = 0
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_versions (project_id, version) VALUES (?, 0)`,
			projectID.String(),
		); err != nil {
			return 0, fmt.Errorf("initializing schedule version: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("reading schedule version: %w", err)
	}

	if current != expectedVersion {
		return 0, fmt.Errorf("%w: expected %d, found %d", domain.ErrVersionMismatch, expectedVersion, current)
	}

	upsert := `
		INSERT INTO assignments (id, project_id, installation_id, team_member_ids, start_time, end_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			team_member_ids = excluded.team_member_ids,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, upsert,
			a.ID().String(),
			projectID.String(),
			a.InstallationID().String(),
			joinUUIDs(a.TeamMemberIDs()),
			a.Window().Start.UTC().Format(time.RFC3339Nano),
			a.Window().End.UTC().Format(time.RFC3339Nano),
			string(a.Status()),
			a.CreatedAt().UTC().Format(time.RFC3339Nano),
			a.UpdatedAt().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return 0, fmt.Errorf("upserting assignment %s: %w", a.ID(), err)
		}
	}

	newVersion := current + 1
	if _, err := tx.ExecContext(ctx,
		`UPDATE schedule_versions SET version = ? WHERE project_id = ?`,
		newVersion, projectID.String(),
	); err != nil {
		return 0, fmt.Errorf("bumping schedule version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newVersion, nil
}

func (r *SQLiteAssignmentRepository) currentVersion(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM schedule_versions WHERE project_id = ?`,
		projectID.String(),
	).Scan(&version)
	if database.IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schedule version: %w", err)
	}
	return version, nil
}

func parseWindow(startStr, endStr string) (domain.TimeRange, error) {
	start, err := time.Parse(time.RFC3339Nano, startStr)
	if err != nil {
		return domain.TimeRange{}, fmt.Errorf("parsing window start: %w", err)
	}
	end, err := time.Parse(time.RFC3339Nano, endStr)
	if err != nil {
		return domain.TimeRange{}, fmt.Errorf("parsing window end: %w", err)
	}
	return domain.TimeRange{Start: start, End: end}, nil
}

func parseAuditTimes(createdStr, updatedStr string) (time.Time, time.Time, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return createdAt, updatedAt, nil
}
