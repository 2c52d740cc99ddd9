package calendar

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultCalendarID is the authorized user's own calendar
const DefaultCalendarID = "primary"

// GoogleFreeBusy reads busy time from the Google Calendar free/busy API
type GoogleFreeBusy struct {
	calendarIDs []string
	endpoint    string
	logger      logging.Logger
}

// GoogleOption configures a GoogleFreeBusy
type GoogleOption func(*GoogleFreeBusy)

// WithEndpoint points the source at a different API base URL
func WithEndpoint(endpoint string) GoogleOption {
	return func(g *GoogleFreeBusy) {
		g.endpoint = endpoint
	}
}

// WithGoogleLogger sets the source's logger
func WithGoogleLogger(logger logging.Logger) GoogleOption {
	return func(g *GoogleFreeBusy) {
		g.logger = logger
	}
}

// NewGoogleFreeBusy queries calendarIDs, or the primary calendar when none are given
func NewGoogleFreeBusy(calendarIDs []string, opts ...GoogleOption) *GoogleFreeBusy {
	ids := make([]string, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = []string{DefaultCalendarID}
	}

	g := &GoogleFreeBusy{
		calendarIDs: ids,
		logger:      logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CalendarIDs returns the calendars queried
func (g *GoogleFreeBusy) CalendarIDs() []string {
	return g.calendarIDs
}

func (g *GoogleFreeBusy) Busy(ctx context.Context, client *http.Client, start, end time.Time) ([]models.BusyInterval, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}

	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.InternalError("failed to create calendar service", err)
	}

	items := make([]*gcal.FreeBusyRequestItem, 0, len(g.calendarIDs))
	for _, id := range g.calendarIDs {
		items = append(items, &gcal.FreeBusyRequestItem{Id: id})
	}

	resp, err := srv.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, apiError(err)
	}

	var intervals []models.BusyInterval
	for _, id := range g.calendarIDs {
		cal, ok := resp.Calendars[id]
		if !ok {
			continue
		}
		for _, e := range cal.Errors {
			g.logger.Warn("Calendar free/busy unavailable",
				logging.String("calendar_id", id),
				logging.String("reason", e.Reason),
			)
		}

		for _, period := range cal.Busy {
			b, err := parsePeriod(period)
			if err != nil {
				return nil, errors.InternalError("malformed free/busy period", err).WithContext("calendar_id", id)
			}
			if b, ok := clip(b, start, end); ok {
				intervals = append(intervals, b)
			}
		}
	}

	sortIntervals(intervals)
	return intervals, nil
}

func parsePeriod(p *gcal.TimePeriod) (models.BusyInterval, error) {
	start, err := time.Parse(time.RFC3339, p.Start)
	if err != nil {
		return models.BusyInterval{}, err
	}
	end, err := time.Parse(time.RFC3339, p.End)
	if err != nil {
		return models.BusyInterval{}, err
	}
	return models.BusyInterval{Start: start, End: end}, nil
}

// apiError maps a rejected token to an auth error and anything else to a connection error
func apiError(err error) error {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			appErr := errors.AuthError("calendar API rejected the access token")
			appErr.Cause = err
			return appErr
		case http.StatusForbidden, http.StatusNotFound, http.StatusBadRequest:
			return errors.InternalError("calendar free/busy query rejected", err).WithCode(http.StatusText(gerr.Code))
		}
	}
	return errors.ConnectionError("calendar API unavailable", err)
}
