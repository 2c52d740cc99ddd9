package app

import (
	"github.com/gorilla/mux"
	"meeting-scheduler/internal/handlers"
	"meeting-scheduler/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)

	h.RegisterRoutes(router)
}
