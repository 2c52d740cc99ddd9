package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "client secret file is unreadable",
			},
			want: "config: client secret file is unreadable",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeAuth,
				Message: "code exchange rejected",
				Code:    "invalid_grant",
			},
			want: "authentication: code exchange rejected: code=invalid_grant",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypePersistence,
				Message: "failed to save credentials",
				Cause:   errors.New("disk full"),
			},
			want: "persistence: failed to save credentials: cause=disk full",
		},
		{
			name: "context keys are sorted",
			appError: &AppError{
				Type:    ErrTypeRefresh,
				Message: "token endpoint unavailable",
				Context: map[string]interface{}{
					"user_id":   "u1",
					"operation": "refresh",
				},
			},
			want: "refresh: token endpoint unavailable: context={operation=refresh, user_id=u1}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appError.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appError := PersistenceError("wrapper error", cause)

	if appError.Unwrap() != cause {
		t.Errorf("AppError.Unwrap() = %v, want %v", appError.Unwrap(), cause)
	}
	if !errors.Is(appError, cause) {
		t.Error("errors.Is should find the cause")
	}

	if ConfigError("no cause").Unwrap() != nil {
		t.Error("AppError.Unwrap() without cause should be nil")
	}
}

func TestAppError_WithContext(t *testing.T) {
	appError := ValidationError("validation failed")

	result := appError.WithContext("field", "duration")
	if result != appError {
		t.Error("WithContext should return the same instance")
	}
	if appError.Context["field"] != "duration" {
		t.Errorf("Context[field] = %v, want duration", appError.Context["field"])
	}

	appError.WithContext("value", "0s")
	if len(appError.Context) != 2 {
		t.Errorf("Context length = %d, want 2", len(appError.Context))
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantMsg  string
		cause    error
	}{
		{"config", ConfigError("bad"), ErrTypeConfig, "bad", nil},
		{"validation", ValidationError("bad input"), ErrTypeValidation, "bad input", nil},
		{"auth", AuthError("rejected"), ErrTypeAuth, "rejected", nil},
		{"connection", ConnectionError("dial", cause), ErrTypeConnection, "dial", cause},
		{"refresh", RefreshError("refresh failed", cause), ErrTypeRefresh, "refresh failed", cause},
		{"persistence", PersistenceError("save failed", cause), ErrTypePersistence, "save failed", cause},
		{"not found", NotFoundError("credential"), ErrTypeNotFound, "credential not found", nil},
		{"internal", InternalError("oops", cause), ErrTypeInternal, "oops", cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", tt.err.Type, tt.wantType)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", tt.err.Message, tt.wantMsg)
			}
			if tt.err.Cause != tt.cause {
				t.Errorf("Cause = %v, want %v", tt.err.Cause, tt.cause)
			}
		})
	}
}

func TestAuthRequiredError(t *testing.T) {
	err := AuthRequiredError("alice")

	if err.Type != ErrTypeAuthRequired {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeAuthRequired)
	}
	if err.Context["user_id"] != "alice" {
		t.Errorf("Context[user_id] = %v, want alice", err.Context["user_id"])
	}
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("store put: %w", PersistenceError("save failed", nil))

	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{"nil error", nil, ErrTypeInternal, false},
		{"plain error", errors.New("x"), ErrTypeInternal, false},
		{"matching type", ConfigError("x"), ErrTypeConfig, true},
		{"different type", ConfigError("x"), ErrTypeAuth, false},
		{"wrapped app error", wrapped, ErrTypePersistence, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(tt.err, tt.errType); got != tt.want {
				t.Errorf("IsType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetType(t *testing.T) {
	if got := GetType(nil); got != "" {
		t.Errorf("GetType(nil) = %v, want empty", got)
	}
	if got := GetType(errors.New("x")); got != ErrTypeInternal {
		t.Errorf("GetType(plain) = %v, want %v", got, ErrTypeInternal)
	}
	if got := GetType(fmt.Errorf("wrap: %w", RefreshError("x", nil))); got != ErrTypeRefresh {
		t.Errorf("GetType(wrapped) = %v, want %v", got, ErrTypeRefresh)
	}
}
