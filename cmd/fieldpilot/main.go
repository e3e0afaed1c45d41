package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldpilot/fieldpilot/adapter/cli"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/application/services"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/infrastructure/geo"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/infrastructure/persistence"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/database/sqlite"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/migrations"
	"github.com/fieldpilot/fieldpilot/pkg/config"
	"github.com/fieldpilot/fieldpilot/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logger := observability.NewLogger(logCfg)
	cli.SetLogger(logger)

	// Distance estimation: haversine locally, routing service when configured.
	haversine := geo.NewHaversineEstimator()
	var estimator domain.DistanceEstimator = haversine
	if cfg.RoutingServiceURL != "" {
		estimator = geo.NewRoutingClient(geo.DefaultRoutingClientConfig(cfg.RoutingServiceURL), haversine, logger)
	}

	detectorCfg := services.DefaultDetectorConfig()
	detectorCfg.MaxTravelDistanceKm = cfg.MaxTravelDistanceKm
	detector := services.NewConflictDetector(estimator, detectorCfg, logger)
	engine := services.NewResolutionEngine(detector, estimator, services.DefaultResolutionEngineConfig(), logger)

	// Local SQLite database for resolution history. The CLI stays usable
	// without it; analytics then cover live conflicts only.
	var historyRepo domain.HistoryRepository
	sqlitePath := cfg.SQLitePath
	if sqlitePath == "" {
		sqlitePath = sqlite.DefaultPath()
	}
	db, err := sqlite.Open(ctx, sqlitePath)
	if err != nil {
		logger.Warn("local database unavailable, resolution history disabled", "error", err)
	} else {
		defer db.Close()
		if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
			logger.Warn("local database migration failed, resolution history disabled", "error", err)
		} else {
			historyRepo = persistence.NewSQLiteHistoryRepository(db)
		}
	}

	executor := services.NewResolutionExecutor(detector, engine, historyRepo, logger)

	cli.SetApp(&cli.App{
		Detector:    detector,
		Engine:      engine,
		Executor:    executor,
		Analytics:   services.NewAnalyticsAggregator(),
		HistoryRepo: historyRepo,
	})

	cli.ExecuteContext(ctx)
}
