package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAssignmentRepository implements domain.AssignmentRepository using
// PostgreSQL. The per-project row in schedule_versions carries the optimistic
// concurrency token; SaveBatch locks it, validates the expected version, and
// rewrites the assignment rows in one transaction.
type PostgresAssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAssignmentRepository creates a new PostgreSQL assignment repository.
func NewPostgresAssignmentRepository(pool *pgxpool.Pool) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{pool: pool}
}

// FindByProjectAndRange loads the project's assignments whose windows start
// inside the date range, along with the current collection version.
func (r *PostgresAssignmentRepository) FindByProjectAndRange(ctx context.Context, projectID uuid.UUID, dateRange domain.DateRange) ([]*domain.Assignment, int64, error) {
	version, err := r.currentVersion(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, installation_id, team_member_ids, start_time, end_time, status, created_at, updated_at
		FROM assignments
		WHERE project_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id
	`
	rows, err := r.pool.Query(ctx, query, projectID, dateRange.From, dateRange.To.AddDate(0, 0, 1))
	if err != nil {
		return nil, 0, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*domain.Assignment
	for rows.Next() {
		var (
			id, installationID   uuid.UUID
			memberIDs, status    string
			startTime, endTime   time.Time
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &installationID, &memberIDs, &startTime, &endTime, &status, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning assignment: %w", err)
		}

		members, err := splitUUIDs(memberIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("assignment %s: %w", id, err)
		}

		root := shared.RehydrateBaseAggregateRoot(shared.RehydrateBaseEntity(id, createdAt, updatedAt), int(version))
		assignments = append(assignments, domain.RehydrateAssignment(
			root,
			projectID,
			installationID,
			members,
			domain.TimeRange{Start: startTime, End: endTime},
			domain.AssignmentStatus(status),
		))
	}
	return assignments, version, rows.Err()
}

// SaveBatch rewrites the project's assignment rows and bumps the collection
// version, failing with domain.ErrVersionMismatch when another writer got
// there first.
func (r *PostgresAssignmentRepository) SaveBatch(ctx context.Context, projectID uuid.UUID, assignments []*domain.Assignment, expectedVersion int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var current int64
	err = tx.QueryRow(ctx,
		`SELECT version FROM schedule_versions WHERE project_id = $1 FOR UPDATE`,
		projectID,
	).Scan(&current)
	switch {
	case database.IsNoRows(err):
		current = 0
		if _, err := tx.Exec(ctx,
			`INSERT INTO schedule_versions (project_id, version) VALUES ($1, 0)`,
			projectID,
		); err != nil {
			return 0, fmt.Errorf("initializing schedule version: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("locking schedule version: %w", err)
	}

	if current != expectedVersion {
		return 0, fmt.Errorf("%w: expected %d, found %d", domain.ErrVersionMismatch, expectedVersion, current)
	}

	upsert := `
		INSERT INTO assignments (id, project_id, installation_id, team_member_ids, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			team_member_ids = EXCLUDED.team_member_ids,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	for _, a := range assignments {
		if _, err := tx.Exec(ctx, upsert,
			a.ID(),
			projectID,
			a.InstallationID(),
			joinUUIDs(a.TeamMemberIDs()),
			a.Window().Start,
			a.Window().End,
			string(a.Status()),
			a.CreatedAt(),
			a.UpdatedAt(),
		); err != nil {
			return 0, fmt.Errorf("upserting assignment %s: %w", a.ID(), err)
		}
	}

	newVersion := current + 1
	if _, err := tx.Exec(ctx,
		`UPDATE schedule_versions SET version = $1 WHERE project_id = $2`,
		newVersion, projectID,
	); err != nil {
		return 0, fmt.Errorf("bumping schedule version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newVersion, nil
}

func (r *PostgresAssignmentRepository) currentVersion(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var version int64
	err := r.pool.QueryRow(ctx,
		`SELECT version FROM schedule_versions WHERE project_id = $1`,
		projectID,
	).Scan(&version)
	if database.IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schedule version: %w", err)
	}
	return version, nil
}

func joinUUIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func splitUUIDs(joined string) ([]uuid.UUID, error) {
	if joined == "" {
		return nil, nil
	}
	parts := strings.Split(joined, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parsing team member id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
