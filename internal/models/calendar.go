package models

import (
	"time"
)

// BusyInterval is a half-open span [Start, End) during which the user is unavailable
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval has positive length
func (b BusyInterval) Valid() bool {
	return b.End.After(b.Start)
}

// Overlaps reports whether [start, end) intersects the interval
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// Slot is a free span of exactly the requested duration
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WorkingHours bounds each calendar day to [MinHour, MaxHour). MaxHour 24 means midnight.
type WorkingHours struct {
	MinHour int `json:"min_hour" validate:"gte=0,lt=24"`
	MaxHour int `json:"max_hour" validate:"lte=24,gtfield=MinHour"`
}

// AvailabilityRequest describes a slot search
type AvailabilityRequest struct {
	RangeStart   time.Time     `json:"start" validate:"required"`
	RangeEnd     time.Time     `json:"end" validate:"required,gtfield=RangeStart"`
	Duration     time.Duration `json:"duration" validate:"gt=0"`
	WorkingHours WorkingHours  `json:"working_hours"`

	// Location sets the day boundaries for working hours. Defaults to RangeStart's location.
	Location *time.Location `json:"-"`
}

// CalendarEvent is the subset of an event needed to derive busy time
type CalendarEvent struct {
	UID    string    `json:"uid"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`
	Status string    `json:"status"`
	// Transparent events do not block time
	Transparent bool `json:"transparent"`
}

// CalendarEventStatus constants
const (
	EventStatusConfirmed = "confirmed"
	EventStatusTentative = "tentative"
	EventStatusCancelled = "cancelled"
)

// Busy reports whether the event occupies time on the calendar
func (e CalendarEvent) Busy() bool {
	return e.Status != EventStatusCancelled && !e.Transparent && e.End.After(e.Start)
}
