// Package calendar turns calendar data into busy intervals for the availability engine.
package calendar

import (
	"context"
	"net/http"
	"sort"
	"time"

	"meeting-scheduler/internal/models"
)

// BusySource returns the busy intervals intersecting [start, end). client is
// authorized as the user whose calendar is being read.
type BusySource interface {
	Busy(ctx context.Context, client *http.Client, start, end time.Time) ([]models.BusyInterval, error)
}

// Multi merges the busy time of several sources
type Multi []BusySource

// Busy queries every source in order and fails on the first error
func (m Multi) Busy(ctx context.Context, client *http.Client, start, end time.Time) ([]models.BusyInterval, error) {
	var all []models.BusyInterval
	for _, source := range m {
		intervals, err := source.Busy(ctx, client, start, end)
		if err != nil {
			return nil, err
		}
		all = append(all, intervals...)
	}
	sortIntervals(all)
	return all, nil
}

func sortIntervals(intervals []models.BusyInterval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
}

// clip limits an interval to [start, end) and reports whether anything is left
func clip(b models.BusyInterval, start, end time.Time) (models.BusyInterval, bool) {
	if b.Start.Before(start) {
		b.Start = start
	}
	if b.End.After(end) {
		b.End = end
	}
	return b, b.Valid()
}
