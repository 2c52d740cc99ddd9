package handlers

import (
	"net/http"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
)

// Authorize redirects the user to the provider's consent page
func (h *Handlers) Authorize(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.sendJSONError(w, r, errors.ValidationError("user_id is required").WithContext("field", "user_id"))
		return
	}

	state := h.states.Issue(userID)
	http.Redirect(w, r, h.flow.AuthURL(state), http.StatusFound)
}

// Callback is the OAuth redirect URI. It exchanges the code for the user bound to state.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		h.states.Consume(q.Get("state"))
		h.sendJSONError(w, r, errors.AuthError("authorization denied").WithCode(providerErr))
		return
	}

	code := q.Get("code")
	if code == "" {
		h.sendJSONError(w, r, errors.ValidationError("code is required").WithContext("field", "code"))
		return
	}

	userID, ok := h.states.Consume(q.Get("state"))
	if !ok {
		h.sendJSONError(w, r, errors.ValidationError("unknown or expired state").WithContext("field", "state"))
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	if err := h.flow.ExchangeCode(ctx, code, userID); err != nil {
		h.sendJSONError(w, r.WithContext(ctx), err)
		return
	}

	h.sendJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "authorized",
		"user_id": userID,
	})
}
