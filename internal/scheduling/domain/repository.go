package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrVersionMismatch is returned when persisting against a stale collection
// version. Callers recover by re-loading, re-detecting and re-proposing.
var ErrVersionMismatch = errors.New("assignment collection version mismatch")

// SnapshotSource loads a consistent, pre-scoped scheduling snapshot for one
// project. Implementations guarantee a point-in-time read so detection stays
// deterministic within a run.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, projectID uuid.UUID, dateRange DateRange) (*Snapshot, error)
}

// AssignmentRepository persists the assignment collection of a project with
// optimistic concurrency: SaveBatch fails with ErrVersionMismatch when the
// stored version no longer matches expectedVersion.
type AssignmentRepository interface {
	FindByProjectAndRange(ctx context.Context, projectID uuid.UUID, dateRange DateRange) ([]*Assignment, int64, error)
	SaveBatch(ctx context.Context, projectID uuid.UUID, assignments []*Assignment, expectedVersion int64) (int64, error)
}

// HistoryRepository is the persistence sink for resolution history. SaveAll
// persists the records as one unit: either every record becomes durable or
// none do.
type HistoryRepository interface {
	Save(ctx context.Context, record *ConflictResolutionHistory) error
	SaveAll(ctx context.Context, records []*ConflictResolutionHistory) error
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]*ConflictResolutionHistory, error)
}

// DistanceEstimator estimates travel between two points. Implementations may
// call a routing service, a cache, or fall back to straight-line math.
type DistanceEstimator interface {
	Estimate(ctx context.Context, from, to Coordinates) (TravelEstimate, error)
}
