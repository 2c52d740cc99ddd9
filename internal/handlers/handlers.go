package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/calendar"
	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"

	"github.com/gorilla/mux"
)

// AuthFlow starts and completes the authorization code flow
type AuthFlow interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code, userID string) error
}

// CredentialManager hands out valid credentials and authorized clients
type CredentialManager interface {
	GetValidCredential(ctx context.Context, userID string) (*models.Credential, error)
	Client(ctx context.Context, userID string) (*http.Client, error)
	Revoke(ctx context.Context, userID string) error
}

// StateIssuer binds the OAuth state parameter to a user
type StateIssuer interface {
	Issue(userID string) string
	Consume(state string) (string, bool)
}

// HealthCheckFunc reports whether a dependency is usable
type HealthCheckFunc func(ctx context.Context) error

// Config holds request defaults
type Config struct {
	BaseURL      string
	WorkingHours models.WorkingHours
	Location     *time.Location
	HealthChecks map[string]HealthCheckFunc
	// Authenticate guards every route acting on behalf of a user
	Authenticate mux.MiddlewareFunc
}

type Handlers struct {
	flow    AuthFlow
	manager CredentialManager
	states  StateIssuer
	busy    calendar.BusySource
	engine  *availability.Engine
	config  Config
	logger  logging.Logger
}

func New(flow AuthFlow, manager CredentialManager, states StateIssuer, busy calendar.BusySource, engine *availability.Engine, cfg Config) *Handlers {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Handlers{
		flow:    flow,
		manager: manager,
		states:  states,
		busy:    busy,
		engine:  engine,
		config:  cfg,
		logger:  logging.GetGlobalLogger().WithFields(logging.String("component", "handlers")),
	}
}

// RegisterRoutes mounts every endpoint on router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	router.Handle("/oauth/authorize", h.protect(http.HandlerFunc(h.Authorize))).Methods("GET")
	router.HandleFunc("/oauth/callback", h.Callback).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	if h.config.Authenticate != nil {
		api.Use(h.config.Authenticate)
	}
	api.HandleFunc("/users/{userID}/credential", h.GetCredential).Methods("GET")
	api.HandleFunc("/users/{userID}/credential", h.DeleteCredential).Methods("DELETE")
	api.HandleFunc("/users/{userID}/availability", h.GetAvailability).Methods("GET")
}

// HealthCheck reports that the process is serving and runs the configured dependency checks
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if len(h.config.HealthChecks) == 0 {
		h.sendJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status := http.StatusOK
	checks := make(map[string]string, len(h.config.HealthChecks))
	for name, check := range h.config.HealthChecks {
		if err := check(r.Context()); err != nil {
			logging.WithContext(r.Context()).Warn("Health check failed",
				logging.Field{Key: "check", Value: name},
				logging.Field{Key: "error", Value: err.Error()},
			)
			checks[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	h.sendJSONResponse(w, status, body)
}

func (h *Handlers) protect(next http.Handler) http.Handler {
	if h.config.Authenticate == nil {
		return next
	}
	return h.config.Authenticate(next)
}

// authURL is where a user without a usable credential starts over
func (h *Handlers) authURL(userID string) string {
	return h.config.BaseURL + "/oauth/authorize?user_id=" + url.QueryEscape(userID)
}

func (h *Handlers) sendJSONResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	AuthURL   string `json:"auth_url,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// sendJSONError writes err with the status its type maps to. Internal
// details of 5xx errors are logged, not returned.
func (h *Handlers) sendJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Type:      string(errors.GetType(err)),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if appErr, ok := errors.As(err); ok {
		resp.Error = appErr.Message
		resp.Code = appErr.Code
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).Error("Request failed", err, logging.String("path", r.URL.Path))
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	}

	h.sendJSONResponse(w, status, resp)
}

func (h *Handlers) sendAuthRequired(w http.ResponseWriter, r *http.Request, userID string) {
	h.sendJSONResponse(w, http.StatusUnauthorized, ErrorResponse{
		Error:     "authorization required",
		Type:      string(errors.ErrTypeAuthRequired),
		AuthURL:   h.authURL(userID),
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		return http.StatusBadRequest
	case errors.ErrTypeAuthRequired, errors.ErrTypeAuth:
		return http.StatusUnauthorized
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeConnection:
		return http.StatusBadGateway
	case errors.ErrTypeRefresh:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
