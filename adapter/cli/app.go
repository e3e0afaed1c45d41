package cli

import (
	"github.com/fieldpilot/fieldpilot/internal/scheduling/application/services"
	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
)

// App holds the CLI application dependencies.
type App struct {
	Detector  *services.ConflictDetector
	Engine    *services.ResolutionEngine
	Executor  *services.ResolutionExecutor
	Analytics *services.AnalyticsAggregator

	// HistoryRepo is nil when no local database is available; analytics
	// then run over live conflicts only.
	HistoryRepo domain.HistoryRepository
}

var app *App

// SetApp installs the wired application for command handlers.
func SetApp(a *App) {
	app = a
}

// GetApp returns the wired application, or nil when initialization failed.
func GetApp() *App {
	return app
}
