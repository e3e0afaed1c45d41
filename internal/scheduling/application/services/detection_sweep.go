package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/eventbus"
	"github.com/fieldpilot/fieldpilot/pkg/observability"
	"github.com/google/uuid"
)

// SweepConfig configures the periodic detection sweep.
type SweepConfig struct {
	// Interval between reconciliation sweeps per project.
	Interval time.Duration

	// LookaheadDays is how far past today each sweep evaluates.
	LookaheadDays int

	// AutoResolve applies safe resolutions during the sweep instead of
	// only reporting them.
	AutoResolve bool
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval:      5 * time.Minute,
		LookaheadDays: 14,
		AutoResolve:   false,
	}
}

// DetectionSweep runs detection per project on a timer and publishes a
// ConflictDetectedEvent per finding. Event-driven detection on assignment
// mutation covers the common case; the sweep is the coarser reconciliation
// pass behind it.
type DetectionSweep struct {
	source         domain.SnapshotSource
	assignmentRepo domain.AssignmentRepository
	detector       *ConflictDetector
	executor       *ResolutionExecutor
	publisher      eventbus.Publisher
	metrics        observability.Metrics
	config         SweepConfig
	logger         *slog.Logger
}

// NewDetectionSweep creates a new sweep service. assignmentRepo may be nil
// when auto-resolve is disabled.
func NewDetectionSweep(source domain.SnapshotSource, assignmentRepo domain.AssignmentRepository, detector *ConflictDetector, executor *ResolutionExecutor, publisher eventbus.Publisher, metrics observability.Metrics, config SweepConfig, logger *slog.Logger) *DetectionSweep {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &DetectionSweep{
		source:         source,
		assignmentRepo: assignmentRepo,
		detector:       detector,
		executor:       executor,
		publisher:      publisher,
		metrics:        metrics,
		config:         config,
		logger:         logger,
	}
}

// Run sweeps the given projects until the context is cancelled.
func (s *DetectionSweep) Run(ctx context.Context, projectIDs []uuid.UUID) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweepAll(ctx, projectIDs)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepAll(ctx, projectIDs)
		}
	}
}

func (s *DetectionSweep) sweepAll(ctx context.Context, projectIDs []uuid.UUID) {
	for _, projectID := range projectIDs {
		if ctx.Err() != nil {
			return
		}
		if err := s.SweepProject(ctx, projectID); err != nil {
			s.logger.Error("sweep failed", "project_id", projectID, "error", err)
			s.metrics.Counter(observability.MetricSweepErrors, 1)
		}
	}
}

// SweepProject loads a fresh snapshot for one project, runs detection,
// publishes events, and optionally auto-resolves.
func (s *DetectionSweep) SweepProject(ctx context.Context, projectID uuid.UUID) error {
	started := time.Now()

	today := time.Now().UTC()
	dateRange := domain.NewDateRange(today, today.AddDate(0, 0, s.config.LookaheadDays))

	snapshot, err := s.source.LoadSnapshot(ctx, projectID, dateRange)
	if err != nil {
		return err
	}

	conflicts, err := s.detector.Detect(ctx, snapshot)
	if err != nil {
		return err
	}

	for _, conflict := range conflicts {
		event := domain.NewConflictDetectedEvent(projectID, conflict)
		if err := eventbus.PublishDomainEvent(ctx, s.publisher, event); err != nil {
			s.logger.Warn("failed to publish conflict event",
				"conflict_id", conflict.ID, "error", err)
		}
	}

	s.metrics.Counter(observability.MetricSweepRuns, 1)
	s.metrics.Gauge(observability.MetricConflictsDetected, float64(len(conflicts)))
	s.metrics.Timing(observability.MetricSweepDuration, time.Since(started))

	s.logger.Info("sweep completed",
		"project_id", projectID,
		"assignments", len(snapshot.Assignments()),
		"conflicts", len(conflicts),
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if !s.config.AutoResolve || len(conflicts) == 0 {
		return nil
	}

	report, err := s.executor.AutoResolveAll(ctx, conflicts, snapshot)
	if err != nil {
		return err
	}
	if len(report.Resolved) > 0 && s.assignmentRepo != nil {
		if _, err := s.assignmentRepo.SaveBatch(ctx, projectID, report.Snapshot.Assignments(), snapshot.Version()); err != nil {
			return err
		}
	}
	for _, record := range report.Resolved {
		event := domain.NewConflictResolvedEvent(projectID, record)
		if err := eventbus.PublishDomainEvent(ctx, s.publisher, event); err != nil {
			s.logger.Warn("failed to publish resolution event",
				"conflict_id", record.ConflictID(), "error", err)
		}
	}
	s.metrics.Counter(observability.MetricConflictsAutoResolved, int64(len(report.Resolved)))

	s.logger.Info("auto-resolve completed",
		"project_id", projectID,
		"resolved", len(report.Resolved),
		"skipped", len(report.Skipped),
	)
	return nil
}
