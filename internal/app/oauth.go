package app

import (
	"time"

	commonhttp "meeting-scheduler/internal/common/http"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/oauth2"
)

func (app *App) initializeOAuth() error {
	clientConfig, err := oauth2.LoadClientConfig(app.Config.ClientSecretFile, app.Config.RedirectURL)
	if err != nil {
		return err
	}

	app.HTTPClient = commonhttp.NewHTTPClient(
		commonhttp.WithTimeout(app.Config.HTTPTimeout),
		commonhttp.WithUserAgent("meeting-scheduler"),
	)

	app.Refresher = oauth2.NewTokenRefresher(clientConfig, app.HTTPClient, app.Logger)
	app.TokenManager = oauth2.NewManager(app.Credentials, app.Refresher,
		oauth2.WithRefreshBuffer(app.Config.RefreshBuffer),
		oauth2.WithHTTPClient(app.HTTPClient),
		oauth2.WithLogger(app.Logger),
	)
	app.AuthFlow = oauth2.NewFlow(clientConfig, app.Credentials,
		oauth2.WithFlowHTTPClient(app.HTTPClient),
		oauth2.WithFlowLogger(app.Logger),
	)
	app.States = oauth2.NewStateStore(oauth2.DefaultStateTTL, time.Now)

	app.Logger.Info("OAuth2: Configured",
		logging.Field{Key: "client_id", Value: clientConfig.ClientID},
		logging.Field{Key: "redirect_url", Value: clientConfig.RedirectURL},
		logging.Field{Key: "refresh_buffer", Value: app.Config.RefreshBuffer.String()},
	)
	return nil
}
