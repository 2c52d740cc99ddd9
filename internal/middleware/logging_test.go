package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"meeting-scheduler/internal/common/logging"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, seen)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "upstream-id", seen)
}

func TestLoggingMiddleware_PassesStatusThrough(t *testing.T) {
	logging.SetGlobalLogger(logging.NewNopLogger())
	defer logging.SetGlobalLogger(logging.NewDefaultLogger())

	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.HandleFunc("/api/users/{userID}/credential", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/users/alice/credential", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
