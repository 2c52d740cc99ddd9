package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"

	"github.com/gorilla/mux"
)

// AvailabilityResponse lists the free slots found for a user
type AvailabilityResponse struct {
	UserID string        `json:"user_id"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Slots  []models.Slot `json:"slots"`
}

// GetAvailability finds free slots in the user's calendar.
// Query: start, end (RFC3339), duration (Go duration or minutes), min_hour, max_hour, tz.
func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	ctx := logging.ContextWithUserID(r.Context(), userID)
	r = r.WithContext(ctx)

	req, err := h.parseAvailabilityRequest(r.URL.Query())
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	if err := availability.Validate(req); err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	client, err := h.manager.Client(ctx, userID)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	if client == nil {
		h.sendAuthRequired(w, r, userID)
		return
	}

	busy, err := h.busy.Busy(ctx, client, req.RangeStart, req.RangeEnd)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	slots, err := h.engine.FindSlots(req, busy)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	h.sendJSONResponse(w, http.StatusOK, AvailabilityResponse{
		UserID: userID,
		Start:  req.RangeStart,
		End:    req.RangeEnd,
		Slots:  slots,
	})
}

func (h *Handlers) parseAvailabilityRequest(q url.Values) (models.AvailabilityRequest, error) {
	req := models.AvailabilityRequest{
		WorkingHours: h.config.WorkingHours,
		Location:     h.config.Location,
	}

	if tz := q.Get("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return req, invalidParam("tz", "unknown time zone")
		}
		req.Location = loc
	}

	var err error
	if req.RangeStart, err = parseTime(q, "start"); err != nil {
		return req, err
	}
	if req.RangeEnd, err = parseTime(q, "end"); err != nil {
		return req, err
	}

	if raw := q.Get("duration"); raw != "" {
		if req.Duration, err = parseDuration(raw); err != nil {
			return req, invalidParam("duration", "must be a duration such as 30m or a number of minutes")
		}
	}

	if raw := q.Get("min_hour"); raw != "" {
		if req.WorkingHours.MinHour, err = strconv.Atoi(raw); err != nil {
			return req, invalidParam("min_hour", "must be an integer")
		}
	}
	if raw := q.Get("max_hour"); raw != "" {
		if req.WorkingHours.MaxHour, err = strconv.Atoi(raw); err != nil {
			return req, invalidParam("max_hour", "must be an integer")
		}
	}

	return req, nil
}

func parseTime(q url.Values, field string) (time.Time, error) {
	raw := q.Get(field)
	if raw == "" {
		return time.Time{}, invalidParam(field, "is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, invalidParam(field, "must be an RFC3339 timestamp")
	}
	return t, nil
}

func parseDuration(raw string) (time.Duration, error) {
	if minutes, err := strconv.Atoi(raw); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}
	return time.ParseDuration(raw)
}

func invalidParam(field, problem string) error {
	return errors.ValidationError(field+" "+problem).WithContext("field", field)
}
