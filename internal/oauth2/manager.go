package oauth2

import (
	"context"
	"net/http"
	"time"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"

	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshBuffer is how long before expiry a credential is refreshed
const DefaultRefreshBuffer = 5 * time.Minute

// DefaultTokenLifetime is assumed for refreshed tokens whose response omits expires_in
const DefaultTokenLifetime = time.Hour

// CredentialStore is where the manager reads and writes credentials
type CredentialStore interface {
	Get(ctx context.Context, userID string) (*models.Credential, error)
	Put(ctx context.Context, userID string, cred *models.Credential) error
	Delete(ctx context.Context, userID string) error
}

// Manager hands out credentials that stay valid for at least the refresh
// buffer, refreshing them on access. Refreshes for one user run once at a time.
type Manager struct {
	store      CredentialStore
	refresher  Refresher
	httpClient *http.Client
	buffer     time.Duration
	now        func() time.Time
	logger     logging.Logger
	flights    singleflight.Group
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock replaces time.Now
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRefreshBuffer sets how long before expiry a refresh is triggered
func WithRefreshBuffer(buffer time.Duration) ManagerOption {
	return func(m *Manager) {
		if buffer > 0 {
			m.buffer = buffer
		}
	}
}

// WithHTTPClient sets the base client used by Client
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithLogger sets the manager's logger
func WithLogger(logger logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(store CredentialStore, refresher Refresher, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		refresher:  refresher,
		httpClient: http.DefaultClient,
		buffer:     DefaultRefreshBuffer,
		now:        time.Now,
		logger:     logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithFields(logging.String("component", "token_manager"))
	return m
}

// RefreshBuffer returns the configured buffer
func (m *Manager) RefreshBuffer() time.Duration {
	return m.buffer
}

// GetValidCredential returns the user's credential, refreshed if it expires
// within the refresh buffer. A nil credential with a nil error means the user
// must authorize again.
func (m *Manager) GetValidCredential(ctx context.Context, userID string) (*models.Credential, error) {
	cred, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, nil
	}
	if !cred.ExpiresWithin(m.now(), m.buffer) {
		return cred, nil
	}

	result, err, shared := m.flights.Do(userID, func() (interface{}, error) {
		return m.refresh(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("Joined in-flight refresh", logging.String("user_id", userID))
	}

	refreshed, _ := result.(*models.Credential)
	return refreshed.Clone(), nil
}

// refresh re-reads the credential since another flight may already have replaced it
func (m *Manager) refresh(ctx context.Context, userID string) (*models.Credential, error) {
	logger := m.logger.WithFields(logging.String("user_id", userID))

	cred, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, nil
	}
	if !cred.ExpiresWithin(m.now(), m.buffer) {
		return cred, nil
	}

	fresh, err := m.refresher.Refresh(ctx, cred)
	if err != nil {
		if IsRevoked(err) {
			logger.Warn("Refresh token rejected, discarding credential", logging.String("error", err.Error()))
			if delErr := m.store.Delete(ctx, userID); delErr != nil {
				return nil, delErr
			}
			return nil, nil
		}

		logger.Error("Token refresh failed", err)
		return nil, errors.RefreshError("token refresh failed", err).
			WithCode(CodeUnavailable).
			WithContext("user_id", userID)
	}

	if fresh.Expiry.IsZero() {
		fresh = fresh.Clone()
		fresh.Expiry = m.now().Add(DefaultTokenLifetime)
		logger.Debug("Refresh response has no expiry, assuming default lifetime",
			logging.Time("expiry", fresh.Expiry))
	}

	merged := MergeCredential(cred, fresh)
	if err := m.store.Put(ctx, userID, merged); err != nil {
		return nil, err
	}

	if merged.ExpiresWithin(m.now(), m.buffer) {
		return nil, errors.RefreshError("refreshed token expires within the refresh buffer", nil).
			WithCode(CodeUnavailable).
			WithContext("user_id", userID).
			WithContext("expiry", merged.Expiry)
	}

	logger.Info("Access token refreshed", logging.Time("expiry", merged.Expiry))
	return merged, nil
}

// Client returns an HTTP client authorized as the user, or nil when the user must authorize
func (m *Manager) Client(ctx context.Context, userID string) (*http.Client, error) {
	cred, err := m.GetValidCredential(ctx, userID)
	if err != nil || cred == nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, xoauth2.HTTPClient, m.httpClient)
	return xoauth2.NewClient(ctx, xoauth2.StaticTokenSource(TokenFromCredential(cred))), nil
}

// Revoke forgets the user's credential
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if err := m.store.Delete(ctx, userID); err != nil {
		return err
	}
	m.logger.Info("Credential revoked", logging.String("user_id", userID))
	return nil
}
