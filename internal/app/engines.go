package app

import (
	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/calendar"
	"meeting-scheduler/internal/common/logging"
)

func (app *App) initializeAvailability() {
	google := calendar.NewGoogleFreeBusy(app.Config.CalendarIDs, calendar.WithGoogleLogger(app.Logger))
	sources := calendar.Multi{google}
	if app.Config.ICSFeedURL != "" {
		sources = append(sources, calendar.NewICSSource(app.Config.ICSFeedURL, app.HTTPClient, app.Config.Location(), app.Logger,
			calendar.WithMaxFeedBytes(app.Config.ICSMaxBytes),
		))
		app.Logger.Info("ICS feed: Enabled, shared by all users", logging.Field{Key: "max_bytes", Value: app.Config.ICSMaxBytes})
	}
	app.BusySource = sources

	app.Engine = availability.NewEngine(
		availability.WithMaxResults(app.Config.SlotMaxResults),
		availability.WithMaxIterations(app.Config.SlotMaxIterations),
		availability.WithStep(app.Config.SlotStep),
	)
	app.Logger.Info("Availability Engine: Ready",
		logging.Field{Key: "calendars", Value: google.CalendarIDs()},
		logging.Field{Key: "max_results", Value: app.Config.SlotMaxResults},
		logging.Field{Key: "max_iterations", Value: app.Config.SlotMaxIterations},
	)
}
