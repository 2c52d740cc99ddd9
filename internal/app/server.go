package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"meeting-scheduler/internal/handlers"
	"meeting-scheduler/internal/middleware"
	"meeting-scheduler/internal/models"
	"meeting-scheduler/internal/server"
	"meeting-scheduler/internal/storage"
)

// RunServer builds the HTTP server with all handlers configured
func (app *App) RunServer() (*server.Server, http.Handler) {
	h := handlers.New(app.AuthFlow, app.TokenManager, app.States, app.BusySource, app.Engine, handlers.Config{
		BaseURL: app.Config.BaseURL,
		WorkingHours: models.WorkingHours{
			MinHour: app.Config.WorkingHoursStart,
			MaxHour: app.Config.WorkingHoursEnd,
		},
		Location:     app.Config.Location(),
		HealthChecks: app.healthChecks(),
		Authenticate: middleware.NewJWTAuth([]byte(app.Config.JWTSecret), app.Config.JWTIssuer, app.Logger).RequireUser,
	})

	router := mux.NewRouter()
	SetupRoutes(router, h)

	return server.New(router, app.Config.Port), router
}

func (app *App) healthChecks() map[string]handlers.HealthCheckFunc {
	return map[string]handlers.HealthCheckFunc{
		"token_store": func(ctx context.Context) error {
			return storage.Health(ctx, app.Backend)
		},
		"token_endpoint": func(ctx context.Context) error {
			if app.Refresher.BreakerOpen() {
				stats := app.Refresher.BreakerStats()
				return fmt.Errorf("token endpoint circuit %s is open after %d failures", stats.Name, stats.Failures)
			}
			return nil
		},
	}
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context) error {
	app.Cleanup()
	app.Logger.Info("Token store closed")
	return nil
}
