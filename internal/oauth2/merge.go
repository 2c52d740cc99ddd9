package oauth2

import (
	"encoding/json"

	"meeting-scheduler/internal/models"
)

// MergeCredential overlays a refresh response on the stored credential.
// Empty fields in fresh keep the stored value, so a response without a
// refresh token never drops the one already held. Extra fields merge by key.
func MergeCredential(stored, fresh *models.Credential) *models.Credential {
	if stored == nil {
		return fresh.Clone()
	}
	merged := stored.Clone()
	if fresh == nil {
		return merged
	}

	if fresh.AccessToken != "" {
		merged.AccessToken = fresh.AccessToken
	}
	if fresh.RefreshToken != "" {
		merged.RefreshToken = fresh.RefreshToken
	}
	if !fresh.Expiry.IsZero() {
		merged.Expiry = fresh.Expiry
	}
	if fresh.Scope != "" {
		merged.Scope = fresh.Scope
	}
	if fresh.TokenType != "" {
		merged.TokenType = fresh.TokenType
	}

	if len(fresh.Extra) > 0 {
		if merged.Extra == nil {
			merged.Extra = make(map[string]json.RawMessage, len(fresh.Extra))
		}
		for k, v := range fresh.Extra {
			merged.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}

	return merged
}
