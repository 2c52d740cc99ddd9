package oauth2

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"meeting-scheduler/internal/circuitbreaker"
	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"

	xoauth2 "golang.org/x/oauth2"
)

// Refresh failure codes carried on ErrTypeRefresh errors
const (
	// CodeRevoked means the provider rejected the refresh token; it will never work again
	CodeRevoked = "revoked"
	// CodeUnavailable means the refresh could not complete and may succeed later
	CodeUnavailable = "unavailable"
)

// Refresher exchanges a refresh token for a new access token
type Refresher interface {
	Refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error)
}

// TokenRefresher refreshes through the provider's token endpoint behind a circuit breaker
type TokenRefresher struct {
	config     *xoauth2.Config
	httpClient *http.Client
	breaker    *circuitbreaker.GoBreakerAdapter
}

func NewTokenRefresher(config *xoauth2.Config, httpClient *http.Client, logger logging.Logger) *TokenRefresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenRefresher{
		config:     config,
		httpClient: httpClient,
		breaker:    circuitbreaker.NewGoBreaker("oauth2-token-endpoint", circuitbreaker.OAuthConfig, logger),
	}
}

// Refresh performs a refresh_token grant. A provider rejection is returned as an
// ErrTypeRefresh error with CodeRevoked; anything else is a connection error.
func (r *TokenRefresher) Refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, errors.RefreshError("credential has no refresh token", nil).WithCode(CodeRevoked)
	}

	ctx = context.WithValue(ctx, xoauth2.HTTPClient, r.httpClient)
	// Only the refresh token is passed so the source treats the token as expired
	source := r.config.TokenSource(ctx, &xoauth2.Token{RefreshToken: cred.RefreshToken})

	var tok *xoauth2.Token
	err := r.breaker.Execute(ctx, func() error {
		var err error
		tok, err = source.Token()
		if err != nil {
			return classifyRefreshError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return CredentialFromToken(tok), nil
}

// BreakerOpen reports whether token endpoint calls are currently rejected
func (r *TokenRefresher) BreakerOpen() bool {
	return r.breaker.IsOpen()
}

// BreakerStats returns the token endpoint circuit counters
func (r *TokenRefresher) BreakerStats() circuitbreaker.Stats {
	return r.breaker.Stats()
}

func classifyRefreshError(err error) error {
	var retrieveErr *xoauth2.RetrieveError
	if stderrors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}

		if isRejection(retrieveErr.ErrorCode, status) {
			code := retrieveErr.ErrorCode
			if code == "" {
				code = fmt.Sprintf("http_%d", status)
			}
			return errors.RefreshError("refresh token rejected by provider", err).
				WithCode(CodeRevoked).
				WithContext("provider_error", code)
		}
	}

	return errors.ConnectionError("token endpoint unavailable", err)
}

func isRejection(errorCode string, status int) bool {
	switch errorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client", "invalid_request":
		return true
	}
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return false
	}
	return status >= 400 && status < 500
}

// IsRevoked reports whether err is a permanent refresh failure
func IsRevoked(err error) bool {
	appErr, ok := errors.As(err)
	return ok && appErr.Type == errors.ErrTypeRefresh && appErr.Code == CodeRevoked
}
