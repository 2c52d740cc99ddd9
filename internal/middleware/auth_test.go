package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meeting-scheduler/internal/common/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(subject string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "scheduler-tests",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func authRouter(issuer string) *mux.Router {
	auth := NewJWTAuth(testSecret, issuer, logging.NewNopLogger())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router := mux.NewRouter()
	router.Use(RequestID)
	router.Handle("/oauth/authorize", auth.RequireUser(ok)).Methods("GET")
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.RequireUser)
	api.Handle("/users/{userID}/credential", ok).Methods("GET", "DELETE")
	return router
}

func serve(router http.Handler, method, target, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_RejectsInvalidTokens(t *testing.T) {
	expired := validClaims("alice")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("alice")
	noExpiry.ExpiresAt = nil

	otherIssuer := validClaims("alice")
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name          string
		authorization string
	}{
		{"missing token", ""},
		{"basic scheme", "Basic YWxpY2U6c2VjcmV0"},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), validClaims("alice"))},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, expired)},
		{"no expiry", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, noExpiry)},
		{"wrong issuer", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, otherIssuer)},
		{"no subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(""))},
		{"unsigned", "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims("alice"))},
	}

	router := authRouter("scheduler-tests")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, "DELETE", "/api/users/alice/credential", tt.authorization)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "authentication", body["type"])
			assert.Equal(t, rec.Header().Get(RequestIDHeader), body["request_id"])
		})
	}
}

func TestJWTAuth_SubjectMustMatchUser(t *testing.T) {
	router := authRouter("scheduler-tests")
	alice := "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("alice"))

	rec := serve(router, "GET", "/api/users/alice/credential", alice)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, "DELETE", "/api/users/bob/credential", alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "forbidden", body["type"])
}

func TestJWTAuth_AuthorizeUsesQueryToken(t *testing.T) {
	router := authRouter("")
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("alice"))

	rec := serve(router, "GET", "/oauth/authorize?user_id=alice&access_token="+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, "GET", "/oauth/authorize?user_id=mallory&access_token="+token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, "GET", "/oauth/authorize?user_id=alice", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_PassesSubjectToHandler(t *testing.T) {
	auth := NewJWTAuth(testSecret, "", logging.NewNopLogger())

	var reached bool
	handler := auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest("GET", "/anything", nil)
	req.Header.Set("Authorization", "bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("alice")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}
