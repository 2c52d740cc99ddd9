// Package oauth2 runs the per-user OAuth2 lifecycle against Google: the
// authorization code flow, transparent refresh and credential merging.
package oauth2

import (
	"fmt"
	"os"

	"meeting-scheduler/internal/common/errors"

	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// DefaultScopes grants read access to calendars and free/busy data
var DefaultScopes = []string{calendar.CalendarReadonlyScope}

// LoadClientConfig reads a Google client secret file in either the "installed"
// or the "web" shape. A non-empty redirectURL overrides the one in the file.
func LoadClientConfig(path, redirectURL string, scopes ...string) (*xoauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("unable to read client secret file %s: %v", path, err))
	}

	return ParseClientConfig(data, redirectURL, scopes...)
}

// ParseClientConfig is LoadClientConfig for an in-memory document
func ParseClientConfig(data []byte, redirectURL string, scopes ...string) (*xoauth2.Config, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	config, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid client secret document: %v", err))
	}

	if redirectURL != "" {
		config.RedirectURL = redirectURL
	}
	if config.RedirectURL == "" {
		return nil, errors.ConfigError("client secret document has no redirect URI and none is configured")
	}

	return config, nil
}
