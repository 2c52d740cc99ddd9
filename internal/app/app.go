package app

import (
	"context"
	"net/http"

	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/calendar"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/config"
	"meeting-scheduler/internal/credentials"
	"meeting-scheduler/internal/oauth2"
	"meeting-scheduler/internal/storage"

	"github.com/robfig/cron/v3"
)

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	Backend      storage.Backend
	Credentials  *credentials.Store
	HTTPClient   *http.Client
	Refresher    *oauth2.TokenRefresher
	TokenManager *oauth2.Manager
	AuthFlow     *oauth2.Flow
	States       *oauth2.StateStore
	BusySource   calendar.BusySource
	Engine       *availability.Engine
	Logger       logging.Logger

	scheduler *cron.Cron
	stopSweep context.CancelFunc
}

// New creates a new application instance with all dependencies
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	// Initialize components in order of dependency
	if err := app.initializeStorage(ctx); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeOAuth(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeAvailability()

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	app.stopScheduler()
	if app.Backend != nil {
		if err := app.Backend.Close(); err != nil {
			app.Logger.Warn("Error closing token store", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
