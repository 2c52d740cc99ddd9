package availability

import (
	"time"

	"meeting-scheduler/internal/common/validation"
	"meeting-scheduler/internal/models"
)

const (
	// DefaultMaxResults caps the number of slots returned
	DefaultMaxResults = 10
	// DefaultMaxIterations caps the number of cursor positions evaluated
	DefaultMaxIterations = 20
	// DefaultStep is how far the cursor moves after an accepted slot
	DefaultStep = 15 * time.Minute
)

// Engine searches a range for free slots of a fixed duration
type Engine struct {
	maxResults    int
	maxIterations int
	step          time.Duration
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithMaxResults overrides DefaultMaxResults
func WithMaxResults(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxResults = n
		}
	}
}

// WithMaxIterations overrides DefaultMaxIterations
func WithMaxIterations(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithStep overrides DefaultStep
func WithStep(step time.Duration) EngineOption {
	return func(e *Engine) {
		if step > 0 {
			e.step = step
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		maxResults:    DefaultMaxResults,
		maxIterations: DefaultMaxIterations,
		step:          DefaultStep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindSlots walks a cursor from req.RangeStart and returns up to MaxResults
// chronological slots of exactly req.Duration that sit inside the working-hours
// window and overlap no busy interval. The walk stops after MaxIterations
// cursor positions even when fewer slots were found.
func (e *Engine) FindSlots(req models.AvailabilityRequest, busy []models.BusyInterval) ([]models.Slot, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	loc := req.Location
	if loc == nil {
		loc = req.RangeStart.Location()
	}

	intervals := make([]models.BusyInterval, 0, len(busy))
	for _, b := range busy {
		if b.Valid() {
			intervals = append(intervals, b)
		}
	}

	slots := make([]models.Slot, 0, e.maxResults)
	t := req.RangeStart.In(loc)

	for i := 0; i < e.maxIterations && len(slots) < e.maxResults; i++ {
		end := t.Add(req.Duration)
		if end.After(req.RangeEnd) {
			break
		}

		opens, closes := dayWindow(t, req.WorkingHours)
		if t.Before(opens) {
			t = opens
			continue
		}
		if !t.Before(closes) || end.After(closes) {
			t = nextDayWindow(t, req.WorkingHours)
			continue
		}

		if until, blocked := blockedUntil(t, end, intervals); blocked {
			t = until.In(loc)
			continue
		}

		slots = append(slots, models.Slot{Start: t, End: end})
		t = t.Add(e.step)
	}

	return slots, nil
}

// Validate rejects requests the search cannot run on. Callers use it to fail
// before fetching busy intervals.
func Validate(req models.AvailabilityRequest) error {
	return validation.ValidateStruct(req)
}

// dayWindow returns the working-hours window on t's calendar day
func dayWindow(t time.Time, wh models.WorkingHours) (time.Time, time.Time) {
	y, m, d := t.Date()
	loc := t.Location()
	return time.Date(y, m, d, wh.MinHour, 0, 0, 0, loc), time.Date(y, m, d, wh.MaxHour, 0, 0, 0, loc)
}

func nextDayWindow(t time.Time, wh models.WorkingHours) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, wh.MinHour, 0, 0, 0, t.Location())
}

// blockedUntil returns the latest end among intervals overlapping [start, end)
func blockedUntil(start, end time.Time, intervals []models.BusyInterval) (time.Time, bool) {
	var until time.Time
	blocked := false
	for _, b := range intervals {
		if !b.Overlaps(start, end) {
			continue
		}
		if !blocked || b.End.After(until) {
			until = b.End
		}
		blocked = true
	}
	return until, blocked
}
