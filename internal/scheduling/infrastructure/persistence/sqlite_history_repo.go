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

// SQLiteHistoryRepository implements domain.HistoryRepository using SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

const sqliteInsertHistory = `
	INSERT INTO conflict_resolution_history
		(id, project_id, conflict_id, conflict_type, severity, description,
		 action, resolution, outcome, time_to_resolve_ms, resolved_by, resolved_at,
		 created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func sqliteHistoryArgs(record *domain.ConflictResolutionHistory) []any {
	return []any{
		record.ID().String(),
		record.ProjectID().String(),
		record.ConflictID().String(),
		string(record.ConflictType()),
		string(record.Severity()),
		record.Description(),
		string(record.Action()),
		record.Resolution(),
		string(record.Outcome()),
		record.TimeToResolve().Milliseconds(),
		record.ResolvedBy(),
		record.ResolvedAt().UTC().Format(time.RFC3339Nano),
		record.CreatedAt().UTC().Format(time.RFC3339Nano),
		record.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
}

// Save persists a resolution record.
func (r *SQLiteHistoryRepository) Save(ctx context.Context, record *domain.ConflictResolutionHistory) error {
	if _, err := r.db.ExecContext(ctx, sqliteInsertHistory, sqliteHistoryArgs(record)...); err != nil {
		return fmt.Errorf("inserting resolution history: %w", err)
	}
	return nil
}

// SaveAll persists the records in one transaction; a failed insert rolls back
// every record in the batch.
func (r *SQLiteHistoryRepository) SaveAll(ctx context.Context, records []*domain.ConflictResolutionHistory) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, record := range records {
		if _, err := tx.ExecContext(ctx, sqliteInsertHistory, sqliteHistoryArgs(record)...); err != nil {
			return fmt.Errorf("inserting resolution history: %w", err)
		}
	}
	return tx.Commit()
}

// FindByProject returns the project's resolution records, newest first.
func (r *SQLiteHistoryRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.ConflictResolutionHistory, error) {
	query := `
		SELECT id, conflict_id, conflict_type, severity, description,
		       action, resolution, outcome, time_to_resolve_ms, resolved_by, resolved_at,
		       created_at, updated_at
		FROM conflict_resolution_history
		WHERE project_id = ?
		ORDER BY resolved_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, projectID.String())
	if err != nil {
		return nil, fmt.Errorf("querying resolution history: %w", err)
	}
	defer rows.Close()

	var records []*domain.ConflictResolutionHistory
	for rows.Next() {
		var (
			idStr, conflictStr                                      string
			conflictType, severity, description, action, resolution string
			outcome, resolvedBy                                     string
			timeToResolveMs                                         int64
			resolvedStr, createdStr, updatedStr                     string
		)
		if err := rows.Scan(&idStr, &conflictStr, &conflictType, &severity, &description,
			&action, &resolution, &outcome, &timeToResolveMs, &resolvedBy, &resolvedStr,
			&createdStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("scanning resolution history: %w", err)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing history id %q: %w", idStr, err)
		}
		conflictID, err := uuid.Parse(conflictStr)
		if err != nil {
			return nil, fmt.Errorf("history %s: parsing conflict id: %w", id, err)
		}
		resolvedAt, err := time.Parse(time.RFC3339Nano, resolvedStr)
		if err != nil {
			return nil, fmt.Errorf("history %s: parsing resolved_at: %w", id, err)
		}
		createdAt, updatedAt, err := parseAuditTimes(createdStr, updatedStr)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", id, err)
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
