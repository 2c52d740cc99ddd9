package oauth2

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"

	xoauth2 "golang.org/x/oauth2"
)

// Flow runs the offline-access authorization code flow
type Flow struct {
	config     *xoauth2.Config
	store      CredentialStore
	httpClient *http.Client
	logger     logging.Logger
}

// FlowOption configures a Flow
type FlowOption func(*Flow)

// WithFlowHTTPClient sets the client used for the code exchange
func WithFlowHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = client
	}
}

// WithFlowLogger sets the flow's logger
func WithFlowLogger(logger logging.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = logger
	}
}

func NewFlow(config *xoauth2.Config, store CredentialStore, opts ...FlowOption) *Flow {
	f := &Flow{
		config:     config,
		store:      store,
		httpClient: http.DefaultClient,
		logger:     logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.WithFields(logging.String("component", "authorization_flow"))
	return f
}

// AuthURL returns the consent page URL. Consent is forced so the provider
// always issues a refresh token.
func (f *Flow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, xoauth2.AccessTypeOffline, xoauth2.ApprovalForce)
}

// ExchangeCode trades a one-time authorization code for tokens and stores them for userID
func (f *Flow) ExchangeCode(ctx context.Context, code, userID string) error {
	if code == "" {
		return errors.ValidationError("authorization code is required")
	}
	if userID == "" {
		return errors.ValidationError("user id is required")
	}

	ctx = context.WithValue(ctx, xoauth2.HTTPClient, f.httpClient)
	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return f.exchangeError(err, userID)
	}

	if tok.AccessToken == "" {
		return errors.AuthError("token response has no access token").WithContext("user_id", userID)
	}
	if tok.RefreshToken == "" {
		return errors.AuthError("token response has no refresh token").WithContext("user_id", userID)
	}

	if err := f.store.Put(ctx, userID, CredentialFromToken(tok)); err != nil {
		return err
	}

	f.logger.Info("User authorized", logging.String("user_id", userID), logging.Time("expiry", tok.Expiry))
	return nil
}

// exchangeError maps transport failures to connection errors and everything
// else, including malformed token responses, to authentication errors
func (f *Flow) exchangeError(err error, userID string) error {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.ConnectionError("token endpoint unavailable", err).WithContext("user_id", userID)
	}

	appErr := errors.AuthError("authorization code rejected by provider").WithContext("user_id", userID)
	appErr.Cause = err

	var retrieveErr *xoauth2.RetrieveError
	if stderrors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
		appErr.WithCode(retrieveErr.ErrorCode)
	}
	return appErr
}
