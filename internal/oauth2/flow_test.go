package oauth2

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/credentials"
	"meeting-scheduler/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFlow(t *testing.T) (*Flow, *tokenServer, *credentials.Store) {
	server := newTokenServer(t)
	store := credentials.NewStore(storage.NewMemoryBackend(), logging.NewNopLogger())
	flow := NewFlow(server.config(), store,
		WithFlowHTTPClient(server.Client()),
		WithFlowLogger(logging.NewNopLogger()),
	)
	return flow, server, store
}

func TestFlow_AuthURL(t *testing.T) {
	flow, server, _ := setupFlow(t)

	raw := flow.AuthURL("state-123")
	assert.Equal(t, raw, flow.AuthURL("state-123"), "auth URL is deterministic")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/auth", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://localhost:8080/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, DefaultScopes[0], q.Get("scope"))
}

func TestFlow_ExchangeCode(t *testing.T) {
	flow, server, store := setupFlow(t)
	server.respond(http.StatusOK, map[string]interface{}{
		"access_token":  "A1",
		"refresh_token": "R1",
		"token_type":    "Bearer",
		"expires_in":    3599,
		"scope":         DefaultScopes[0],
		"id_token":      "header.payload.sig",
	})

	require.NoError(t, flow.ExchangeCode(context.Background(), "auth-code", "alice"))

	req := server.request()
	assert.Equal(t, "authorization_code", req["grant_type"])
	assert.Equal(t, "auth-code", req["code"])

	cred, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "A1", cred.AccessToken)
	assert.Equal(t, "R1", cred.RefreshToken)
	assert.Equal(t, DefaultScopes[0], cred.Scope)
	assert.Equal(t, `"header.payload.sig"`, string(cred.Extra["id_token"]))
	assert.False(t, cred.Expiry.IsZero())
}

func TestFlow_ExchangeCodeFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		reply    map[string]interface{}
		wantType errors.ErrorType
	}{
		{
			name:     "rejected code",
			status:   http.StatusBadRequest,
			reply:    map[string]interface{}{"error": "invalid_grant", "error_description": "Malformed auth code."},
			wantType: errors.ErrTypeAuth,
		},
		{
			name:     "no refresh token",
			status:   http.StatusOK,
			reply:    map[string]interface{}{"access_token": "A1", "token_type": "Bearer", "expires_in": 3600},
			wantType: errors.ErrTypeAuth,
		},
		{
			name:     "no access token",
			status:   http.StatusOK,
			reply:    map[string]interface{}{"refresh_token": "R1", "token_type": "Bearer"},
			wantType: errors.ErrTypeAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, server, store := setupFlow(t)
			server.respond(tt.status, tt.reply)

			err := flow.ExchangeCode(context.Background(), "code", "alice")
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.GetType(err))

			cred, getErr := store.Get(context.Background(), "alice")
			require.NoError(t, getErr)
			assert.Nil(t, cred, "nothing is stored on failure")
		})
	}
}

func TestFlow_ExchangeCodeValidation(t *testing.T) {
	flow, server, _ := setupFlow(t)

	assert.True(t, errors.IsType(flow.ExchangeCode(context.Background(), "", "alice"), errors.ErrTypeValidation))
	assert.True(t, errors.IsType(flow.ExchangeCode(context.Background(), "code", ""), errors.ErrTypeValidation))
	assert.Equal(t, int32(0), server.calls.Load())
}

func TestFlow_ExchangeCodeUnreachable(t *testing.T) {
	flow, server, _ := setupFlow(t)
	server.Close()

	err := flow.ExchangeCode(context.Background(), "code", "alice")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

func TestFlow_ExchangeCodePersistenceFailure(t *testing.T) {
	server := newTokenServer(t)
	server.respond(http.StatusOK, map[string]interface{}{"access_token": "A", "refresh_token": "R", "expires_in": 3600})
	store := &failingStore{
		Store:  credentials.NewStore(storage.NewMemoryBackend(), logging.NewNopLogger()),
		putErr: errors.PersistenceError("disk full", nil),
	}
	flow := NewFlow(server.config(), store, WithFlowHTTPClient(server.Client()), WithFlowLogger(logging.NewNopLogger()))

	err := flow.ExchangeCode(context.Background(), "code", "alice")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypePersistence))
}
