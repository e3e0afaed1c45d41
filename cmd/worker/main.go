package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/application/services"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/infrastructure/geo"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/infrastructure/persistence"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/database"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/database/postgres"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/database/sqlite"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/eventbus"
	"github.com/fieldpilot/fieldpilot/internal/shared/infrastructure/migrations"
	"github.com/fieldpilot/fieldpilot/pkg/config"
	"github.com/fieldpilot/fieldpilot/pkg/observability"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := observability.NewLogger(observability.DefaultLogConfig())
	logger.Info("starting fieldpilot worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	}
	logger = observability.NewLogger(logCfg)

	if len(cfg.ProjectIDs) == 0 {
		logger.Error("no projects configured, set FIELDPILOT_PROJECT_IDS")
		os.Exit(1)
	}

	// Storage: PostgreSQL, or SQLite when the URL points at a local file.
	var (
		snapshotSource domain.SnapshotSource
		assignmentRepo domain.AssignmentRepository
		historyRepo    domain.HistoryRepository
		dbPing         func(ctx context.Context) error
	)
	switch database.DetectDriver(cfg.DatabaseURL) {
	case database.DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = sqlite.DefaultPath()
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			logger.Error("failed to open sqlite database", "path", path, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		snapshotSource = persistence.NewSQLiteSnapshotSource(db)
		assignmentRepo = persistence.NewSQLiteAssignmentRepository(db)
		historyRepo = persistence.NewSQLiteHistoryRepository(db)
		dbPing = db.PingContext
		logger.Info("using sqlite database", "path", path)
	default:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL, 10)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		snapshotSource = persistence.NewPostgresSnapshotSource(pool)
		assignmentRepo = persistence.NewPostgresAssignmentRepository(pool)
		historyRepo = persistence.NewPostgresHistoryRepository(pool)
		dbPing = pool.Ping
		logger.Info("connected to database")
	}

	// Event publisher
	var publisher eventbus.Publisher
	rabbitPublisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			publisher = eventbus.NewNoopPublisher(logger)
		} else {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
	} else {
		publisher = rabbitPublisher
		defer rabbitPublisher.Close()
	}
	logger.Info("event publisher initialized")

	// Distance estimation: routing service with haversine fallback, with a
	// Redis cache in front when available.
	haversine := geo.NewHaversineEstimator()
	var estimator domain.DistanceEstimator = haversine
	if cfg.RoutingServiceURL != "" {
		estimator = geo.NewRoutingClient(geo.DefaultRoutingClientConfig(cfg.RoutingServiceURL), haversine, logger)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid redis url, skipping distance cache", "error", err)
		} else {
			redisClient = redis.NewClient(redisOpts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warn("redis not available, skipping distance cache", "error", err)
				redisClient = nil
			} else {
				estimator = geo.NewCachedEstimator(redisClient, estimator, 24*time.Hour, logger)
				defer redisClient.Close()
			}
		}
	}

	metrics := observability.NewInMemoryMetrics()

	detectorCfg := services.DefaultDetectorConfig()
	detectorCfg.MaxTravelDistanceKm = cfg.MaxTravelDistanceKm
	detector := services.NewConflictDetector(estimator, detectorCfg, logger)
	engine := services.NewResolutionEngine(detector, estimator, services.DefaultResolutionEngineConfig(), logger)

	executor := services.NewResolutionExecutor(detector, engine, historyRepo, logger)

	sweepCfg := services.SweepConfig{
		Interval:      cfg.SweepInterval,
		LookaheadDays: cfg.SweepLookaheadDays,
		AutoResolve:   cfg.AutoResolveEnabled,
	}
	sweep := services.NewDetectionSweep(snapshotSource, assignmentRepo, detector, executor, publisher, metrics, sweepCfg, logger)

	// Health endpoints
	health := observability.NewHealthRegistry()
	health.Register("database", observability.DatabaseHealthChecker(dbPing))
	if redisClient != nil {
		health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}
	if rabbitPublisher != nil {
		health.Register("rabbitmq", observability.RabbitMQHealthChecker(rabbitPublisher.Ping))
	}

	if cfg.WorkerHealthAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			overall := health.GetOverallHealth(checkCtx)
			w.Header().Set("Content-Type", "application/json")
			if overall.Status == observability.HealthStatusUnhealthy {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			_ = json.NewEncoder(w).Encode(overall)
		})

		mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
			checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			w.Header().Set("Content-Type", "application/json")
			if err := dbPing(checkCtx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{"status": "not_ready", "error": err.Error()})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ready"})
		})

		mux.HandleFunc("/metricsz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(metrics.Snapshot())
		})

		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	logger.Info("starting detection sweep",
		"interval", sweepCfg.Interval,
		"lookahead_days", sweepCfg.LookaheadDays,
		"auto_resolve", sweepCfg.AutoResolve,
		"projects", len(cfg.ProjectIDs),
	)

	if err := sweep.Run(ctx, cfg.ProjectIDs); err != nil && err != context.Canceled {
		logger.Error("detection sweep stopped", "error", err)
	}

	logger.Info("worker stopped")
}
