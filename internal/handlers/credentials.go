package handlers

import (
	"net/http"
	"time"

	"meeting-scheduler/internal/common/logging"

	"github.com/gorilla/mux"
)

// CredentialStatus describes a user's credential without exposing tokens
type CredentialStatus struct {
	UserID     string     `json:"user_id"`
	Authorized bool       `json:"authorized"`
	Expiry     *time.Time `json:"expiry,omitempty"`
	Scope      string     `json:"scope,omitempty"`
	AuthURL    string     `json:"auth_url,omitempty"`
}

// GetCredential reports whether the user has a usable credential, refreshing it if needed
func (h *Handlers) GetCredential(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	ctx := logging.ContextWithUserID(r.Context(), userID)

	cred, err := h.manager.GetValidCredential(ctx, userID)
	if err != nil {
		h.sendJSONError(w, r.WithContext(ctx), err)
		return
	}

	status := CredentialStatus{UserID: userID}
	if cred == nil {
		status.AuthURL = h.authURL(userID)
	} else {
		status.Authorized = true
		status.Scope = cred.Scope
		if !cred.Expiry.IsZero() {
			expiry := cred.Expiry
			status.Expiry = &expiry
		}
	}

	h.sendJSONResponse(w, http.StatusOK, status)
}

// DeleteCredential forgets the user's credential
func (h *Handlers) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	ctx := logging.ContextWithUserID(r.Context(), userID)

	if err := h.manager.Revoke(ctx, userID); err != nil {
		h.sendJSONError(w, r.WithContext(ctx), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
