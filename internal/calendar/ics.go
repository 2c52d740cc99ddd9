package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/models"

	ics "github.com/emersion/go-ical"
)

// ICSSource reads busy time from an iCalendar feed. The feed is fetched with
// the source's own client, never the user's authorized one, so the bearer
// token is not sent to a third-party host.
type ICSSource struct {
	url        string
	httpClient *http.Client
	location   *time.Location
	logger     logging.Logger
	maxBytes   int64
}

// DefaultMaxFeedBytes caps the size of a fetched feed
const DefaultMaxFeedBytes int64 = 10 << 20

// ICSOption configures an ICSSource
type ICSOption func(*ICSSource)

// WithMaxFeedBytes sets the largest feed body accepted
func WithMaxFeedBytes(n int64) ICSOption {
	return func(s *ICSSource) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewICSSource(feedURL string, httpClient *http.Client, location *time.Location, logger logging.Logger, opts ...ICSOption) *ICSSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &ICSSource{
		url:        feedURL,
		httpClient: httpClient,
		location:   location,
		logger:     logger.WithFields(logging.String("component", "ics_source")),
		maxBytes:   DefaultMaxFeedBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ICSSource) Busy(ctx context.Context, _ *http.Client, start, end time.Time) ([]models.BusyInterval, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid ICS feed URL: %v", err))
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.ConnectionError("failed to fetch ICS feed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ConnectionError(fmt.Sprintf("ICS feed returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, errors.ConnectionError("failed to read ICS feed", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, errors.ConnectionError(fmt.Sprintf("ICS feed is larger than %d bytes", s.maxBytes), nil)
	}

	events, err := ParseEvents(bytes.NewReader(data), s.location, start, end)
	if err != nil {
		return nil, err
	}

	var intervals []models.BusyInterval
	for _, e := range events {
		if !e.Busy() {
			continue
		}
		if b, ok := clip(models.BusyInterval{Start: e.Start, End: e.End}, start, end); ok {
			intervals = append(intervals, b)
		}
	}

	sortIntervals(intervals)
	s.logger.Debug("Parsed ICS feed", logging.Int("events", len(events)), logging.Int("busy", len(intervals)))
	return intervals, nil
}

// ParseEvents decodes every VEVENT in r, expanding recurring events to the
// occurrences that intersect [start, end). Floating times and all-day dates
// are read in loc. An event carrying RECURRENCE-ID replaces the occurrence of
// the series with the same UID that it names.
func ParseEvents(r io.Reader, loc *time.Location, start, end time.Time) ([]models.CalendarEvent, error) {
	dec := ics.NewDecoder(r)

	var vevents []ics.Event
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.InternalError("failed to parse ICS feed", err)
		}

		for _, component := range cal.Children {
			if component.Name == ics.CompEvent {
				vevents = append(vevents, ics.Event{Component: component})
			}
		}
	}

	moved, err := overriddenOccurrences(vevents, loc)
	if err != nil {
		return nil, err
	}

	var events []models.CalendarEvent
	for _, vevent := range vevents {
		var expanded []models.CalendarEvent
		if isOverride(vevent) {
			expanded, err = singleEvent(vevent, loc, start, end)
		} else {
			expanded, err = expandEvent(vevent, loc, start, end, moved[eventUID(vevent)])
		}
		if err != nil {
			return nil, err
		}
		events = append(events, expanded...)
	}

	return events, nil
}

// overriddenOccurrences returns, per UID, the original start times replaced by override events
func overriddenOccurrences(vevents []ics.Event, loc *time.Location) (map[string][]time.Time, error) {
	moved := make(map[string][]time.Time)
	for _, vevent := range vevents {
		if !isOverride(vevent) {
			continue
		}
		rid, err := vevent.Props.Get(ics.PropRecurrenceID).DateTime(loc)
		if err != nil {
			return nil, errors.InternalError("invalid recurrence id", err).WithContext("uid", eventUID(vevent))
		}
		uid := eventUID(vevent)
		moved[uid] = append(moved[uid], rid)
	}
	return moved, nil
}

// isOverride reports whether the event replaces one occurrence of a series
func isOverride(event ics.Event) bool {
	return eventUID(event) != "" && event.Props.Get(ics.PropRecurrenceID) != nil
}

func eventUID(event ics.Event) string {
	if uid := event.Props.Get(ics.PropUID); uid != nil {
		return uid.Value
	}
	return ""
}

func singleEvent(event ics.Event, loc *time.Location, start, end time.Time) ([]models.CalendarEvent, error) {
	e, err := parseVEvent(event, loc)
	if err != nil {
		return nil, err
	}
	if e.End.After(start) && e.Start.Before(end) {
		return []models.CalendarEvent{e}, nil
	}
	return nil, nil
}

func expandEvent(event ics.Event, loc *time.Location, start, end time.Time, excluded []time.Time) ([]models.CalendarEvent, error) {
	base, err := parseVEvent(event, loc)
	if err != nil {
		return nil, err
	}

	set, err := event.RecurrenceSet(loc)
	if err != nil {
		return nil, errors.InternalError("invalid recurrence rule", err).WithContext("uid", base.UID)
	}
	if set == nil {
		return singleEvent(event, loc, start, end)
	}
	for _, t := range excluded {
		set.ExDate(t)
	}

	length := base.End.Sub(base.Start)
	var out []models.CalendarEvent
	for _, occurrence := range set.Between(start.Add(-length), end, true) {
		e := base
		e.Start = occurrence
		e.End = occurrence.Add(length)
		if e.End.After(start) {
			out = append(out, e)
		}
	}
	return out, nil
}

func parseVEvent(event ics.Event, loc *time.Location) (models.CalendarEvent, error) {
	e := models.CalendarEvent{Status: models.EventStatusConfirmed}

	if uid := event.Props.Get(ics.PropUID); uid != nil {
		e.UID = uid.Value
	}
	if summary := event.Props.Get(ics.PropSummary); summary != nil {
		e.Title = summary.Value
	}
	if status := event.Props.Get(ics.PropStatus); status != nil {
		e.Status = strings.ToLower(status.Value)
	}
	if transp := event.Props.Get(ics.PropTransparency); transp != nil {
		e.Transparent = strings.EqualFold(transp.Value, "TRANSPARENT")
	}

	dtstart := event.Props.Get(ics.PropDateTimeStart)
	if dtstart == nil {
		return e, errors.InternalError("event has no start", nil).WithContext("uid", e.UID)
	}

	var err error
	if e.Start, err = dtstart.DateTime(loc); err != nil {
		return e, errors.InternalError("invalid event start", err).WithContext("uid", e.UID)
	}
	e.AllDay = dtstart.ValueType() == ics.ValueDate

	if e.End, err = event.DateTimeEnd(loc); err != nil {
		return e, errors.InternalError("invalid event end", err).WithContext("uid", e.UID)
	}
	if e.AllDay && !e.End.After(e.Start) {
		y, m, d := e.Start.Date()
		e.End = time.Date(y, m, d+1, 0, 0, 0, 0, e.Start.Location())
	}

	return e, nil
}
