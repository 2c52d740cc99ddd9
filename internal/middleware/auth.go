package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"meeting-scheduler/internal/common/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// AccessTokenParam carries the bearer token on browser navigations, where no header can be set
const AccessTokenParam = "access_token"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
	errNoSubject    = errors.New("token has no subject")
)

// JWTAuth authenticates callers with HMAC-signed bearer tokens. The token's
// sub claim is the user id the caller may act for.
type JWTAuth struct {
	secret []byte
	issuer string
	logger logging.Logger
}

func NewJWTAuth(secret []byte, issuer string, logger logging.Logger) *JWTAuth {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &JWTAuth{
		secret: secret,
		issuer: issuer,
		logger: logger.WithFields(logging.String("component", "jwt_auth")),
	}
}

// RequireUser rejects requests without a valid token (401) and requests whose
// target user, the {userID} route variable or the user_id query parameter,
// differs from the token subject (403).
func (a *JWTAuth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := a.authenticate(r)
		if err != nil {
			a.logger.WithContext(r.Context()).Warn("Authentication failed",
				logging.String("path", r.URL.Path),
				logging.String("error", err.Error()),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="meeting-scheduler"`)
			writeAuthError(w, r, http.StatusUnauthorized, "authentication", authMessage(err))
			return
		}

		if target := targetUser(r); target != "" && target != subject {
			a.logger.WithContext(r.Context()).Warn("Token subject does not match target user",
				logging.String("subject", subject),
				logging.String("target_user", target),
			)
			writeAuthError(w, r, http.StatusForbidden, "forbidden", "token subject does not match user")
			return
		}

		next.ServeHTTP(w, r.WithContext(logging.ContextWithUserID(r.Context(), subject)))
	})
}

func (a *JWTAuth) authenticate(r *http.Request) (string, error) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		return "", errMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !parsed.Valid {
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get(AccessTokenParam)
}

func targetUser(r *http.Request) string {
	if userID := mux.Vars(r)["userID"]; userID != "" {
		return userID
	}
	return r.URL.Query().Get("user_id")
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, errMissingToken):
		return "missing bearer token"
	case errors.Is(err, errNoSubject):
		return "token has no subject"
	default:
		return "invalid bearer token"
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":      message,
		"type":       errType,
		"request_id": logging.RequestIDFromContext(r.Context()),
	})
}
