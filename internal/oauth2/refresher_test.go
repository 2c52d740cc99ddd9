package oauth2

import (
	"context"
	"net/http"
	"testing"

	"meeting-scheduler/internal/circuitbreaker"
	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRefresher_Success(t *testing.T) {
	server := newTokenServer(t)
	server.respond(http.StatusOK, map[string]interface{}{
		"access_token": "A2",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "https://www.googleapis.com/auth/calendar.readonly",
	})
	refresher := NewTokenRefresher(server.config(), server.Client(), logging.NewNopLogger())

	fresh, err := refresher.Refresh(context.Background(), &models.Credential{AccessToken: "A1", RefreshToken: "R"})
	require.NoError(t, err)

	assert.Equal(t, "A2", fresh.AccessToken)
	assert.Equal(t, "R", fresh.RefreshToken, "x/oauth2 carries the old refresh token forward")
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.readonly", fresh.Scope)
	assert.False(t, fresh.Expiry.IsZero())

	req := server.request()
	assert.Equal(t, "refresh_token", req["grant_type"])
	assert.Equal(t, "R", req["refresh_token"])
	assert.Equal(t, "client-id", req["client_id"])
}

func TestTokenRefresher_Failures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		reply       map[string]interface{}
		wantRevoked bool
		wantType    errors.ErrorType
	}{
		{
			name:        "invalid grant",
			status:      http.StatusBadRequest,
			reply:       map[string]interface{}{"error": "invalid_grant", "error_description": "Token has been expired or revoked."},
			wantRevoked: true,
			wantType:    errors.ErrTypeRefresh,
		},
		{
			name:        "unauthorized without body code",
			status:      http.StatusUnauthorized,
			reply:       map[string]interface{}{},
			wantRevoked: true,
			wantType:    errors.ErrTypeRefresh,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			reply:    map[string]interface{}{"error": "internal_failure"},
			wantType: errors.ErrTypeConnection,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			reply:    map[string]interface{}{},
			wantType: errors.ErrTypeConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTokenServer(t)
			server.respond(tt.status, tt.reply)
			refresher := NewTokenRefresher(server.config(), server.Client(), logging.NewNopLogger())

			_, err := refresher.Refresh(context.Background(), &models.Credential{RefreshToken: "R"})
			require.Error(t, err)
			assert.Equal(t, tt.wantRevoked, IsRevoked(err))
			assert.Equal(t, tt.wantType, errors.GetType(err))
		})
	}
}

func TestTokenRefresher_NoRefreshToken(t *testing.T) {
	server := newTokenServer(t)
	refresher := NewTokenRefresher(server.config(), server.Client(), logging.NewNopLogger())

	_, err := refresher.Refresh(context.Background(), &models.Credential{AccessToken: "A"})
	require.Error(t, err)
	assert.True(t, IsRevoked(err))
	assert.Equal(t, int32(0), server.calls.Load())
}

func TestTokenRefresher_Unreachable(t *testing.T) {
	server := newTokenServer(t)
	cfg := server.config()
	server.Close()

	refresher := NewTokenRefresher(cfg, http.DefaultClient, logging.NewNopLogger())
	_, err := refresher.Refresh(context.Background(), &models.Credential{RefreshToken: "R"})
	require.Error(t, err)
	assert.False(t, IsRevoked(err))
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

func TestTokenRefresher_BreakerOpensOnOutage(t *testing.T) {
	server := newTokenServer(t)
	server.respond(http.StatusServiceUnavailable, map[string]interface{}{})
	refresher := NewTokenRefresher(server.config(), server.Client(), logging.NewNopLogger())
	cred := &models.Credential{RefreshToken: "R"}

	for i := 0; i < circuitbreaker.OAuthConfig.MaxFailures; i++ {
		_, err := refresher.Refresh(context.Background(), cred)
		require.Error(t, err)
	}
	assert.True(t, refresher.BreakerOpen())
	assert.Equal(t, circuitbreaker.StateOpen.String(), refresher.BreakerStats().State)

	calls := server.calls.Load()
	_, err := refresher.Refresh(context.Background(), cred)
	require.Error(t, err)
	assert.False(t, IsRevoked(err), "an open circuit is transient")
	assert.Equal(t, calls, server.calls.Load(), "open circuit must not reach the endpoint")
}

func TestTokenRefresher_RejectionsKeepBreakerClosed(t *testing.T) {
	server := newTokenServer(t)
	server.respond(http.StatusBadRequest, map[string]interface{}{"error": "invalid_grant"})
	refresher := NewTokenRefresher(server.config(), server.Client(), logging.NewNopLogger())

	for i := 0; i < circuitbreaker.OAuthConfig.MaxFailures+2; i++ {
		_, err := refresher.Refresh(context.Background(), &models.Credential{RefreshToken: "R"})
		require.True(t, IsRevoked(err))
	}
	assert.False(t, refresher.BreakerOpen())
	assert.Equal(t, circuitbreaker.StateClosed.String(), refresher.BreakerStats().State)
}

func TestIsRevoked(t *testing.T) {
	assert.True(t, IsRevoked(errors.RefreshError("x", nil).WithCode(CodeRevoked)))
	assert.False(t, IsRevoked(errors.RefreshError("x", nil).WithCode(CodeUnavailable)))
	assert.False(t, IsRevoked(errors.ConnectionError("x", nil)))
	assert.False(t, IsRevoked(nil))
}
