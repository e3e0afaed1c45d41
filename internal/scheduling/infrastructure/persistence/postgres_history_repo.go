package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	shared "github.com/fieldpilot/fieldpilot/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresHistoryRepository implements domain.HistoryRepository using PostgreSQL.
type PostgresHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryRepository creates a new PostgreSQL history repository.
func NewPostgresHistoryRepository(pool *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

const postgresInsertHistory = `
	INSERT INTO conflict_resolution_history
		(id, project_id, conflict_id, conflict_type, severity, description,
		 action, resolution, outcome, time_to_resolve_ms, resolved_by, resolved_at,
		 created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

func postgresHistoryArgs(record *domain.ConflictResolutionHistory) []any {
	return []any{
		record.ID(),
		record.ProjectID(),
		record.ConflictID(),
		string(record.ConflictType()),
		string(record.Severity()),
		record.Description(),
		string(record.Action()),
		record.Resolution(),
		string(record.Outcome()),
		record.TimeToResolve().Milliseconds(),
		record.ResolvedBy(),
		record.ResolvedAt(),
		record.CreatedAt(),
		record.UpdatedAt(),
	}
}

// Save persists a resolution record.
func (r *PostgresHistoryRepository) Save(ctx context.Context, record *domain.ConflictResolutionHistory) error {
	if _, err := r.pool.Exec(ctx, postgresInsertHistory, postgresHistoryArgs(record)...); err != nil {
		return fmt.Errorf("inserting resolution history: %w", err)
	}
	return nil
}

// SaveAll persists the records in one transaction; a failed insert rolls back
// every record in the batch.
func (r *PostgresHistoryRepository) SaveAll(ctx context.Context, records []*domain.ConflictResolutionHistory) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, record := range records {
		if _, err := tx.Exec(ctx, postgresInsertHistory, postgresHistoryArgs(record)...); err != nil {
			return fmt.Errorf("inserting resolution history: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// FindByProject returns the project's resolution records, newest first.
func (r *PostgresHistoryRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.ConflictResolutionHistory, error) {
	query := `
		SELECT id, conflict_id, conflict_type, severity, description,
		       action, resolution, outcome, time_to_resolve_ms, resolved_by, resolved_at,
		       created_at, updated_at
		FROM conflict_resolution_history
		WHERE project_id = $1
		ORDER BY resolved_at DESC, id
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying resolution history: %w", err)
	}
	defer rows.Close()

	var records []*domain.ConflictResolutionHistory
	for rows.Next() {
		var (
			id, conflictID                                          uuid.UUID
			conflictType, severity, description, action, resolution string
			outcome, resolvedBy                                     string
			timeToResolveMs                                         int64
			resolvedAt, createdAt, updatedAt                        time.Time
		)
		if err := rows.Scan(&id, &conflictID, &conflictType, &severity, &description,
			&action, &resolution, &outcome, &timeToResolveMs, &resolvedBy, &resolvedAt,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning resolution history: %w", err)
		}

		records = append(records, domain.RehydrateConflictResolutionHistory(
			shared.RehydrateBaseEntity(id, createdAt, updatedAt),
			projectID,
			conflictID,
			domain.ConflictType(conflictType),
			domain.Severity(severity),
			description,
			domain.ResolutionAction(action),
			resolution,
			domain.ResolutionOutcome(outcome),
			time.Duration(timeToResolveMs)*time.Millisecond,
			resolvedBy,
			resolvedAt,
		))
	}
	return records, rows.Err()
}
