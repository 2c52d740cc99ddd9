package app

import (
	"context"
	"fmt"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/logging"

	"github.com/robfig/cron/v3"
)

// SweepResult counts the outcome of one pass over the stored credentials
type SweepResult struct {
	Checked      int
	Valid        int
	Revoked      int
	Failed       int
	StatesPruned int
}

// StartScheduler runs the credential sweep on REFRESH_SWEEP_SCHEDULE until Cleanup
func (app *App) StartScheduler() error {
	if !app.Config.SweepEnabled() {
		app.Logger.Info("Refresh sweep: Disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(app.Config.RefreshSweepSchedule, func() {
		app.SweepCredentials(ctx)
	}); err != nil {
		cancel()
		return errors.ConfigError(fmt.Sprintf("invalid REFRESH_SWEEP_SCHEDULE: %v", err))
	}

	app.scheduler = scheduler
	app.stopSweep = cancel
	scheduler.Start()

	app.Logger.Info("Refresh sweep: Scheduled", logging.String("schedule", app.Config.RefreshSweepSchedule))
	return nil
}

// SweepCredentials walks every stored user through GetValidCredential so tokens
// are refreshed before a request needs them and rejected refresh tokens are
// dropped early. Expired OAuth states are pruned on the same pass.
func (app *App) SweepCredentials(ctx context.Context) SweepResult {
	var result SweepResult
	result.StatesPruned = app.States.Prune()

	users, err := app.Credentials.Users(ctx)
	if err != nil {
		app.Logger.Error("Refresh sweep: failed to list users", err)
		return result
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		result.Checked++

		cred, err := app.TokenManager.GetValidCredential(ctx, userID)
		switch {
		case err != nil:
			result.Failed++
			app.Logger.Warn("Refresh sweep: credential not refreshed",
				logging.String("user_id", userID),
				logging.String("error", err.Error()),
			)
		case cred == nil:
			result.Revoked++
		default:
			result.Valid++
		}
	}

	app.Logger.Info("Refresh sweep: Completed",
		logging.Int("checked", result.Checked),
		logging.Int("valid", result.Valid),
		logging.Int("revoked", result.Revoked),
		logging.Int("failed", result.Failed),
		logging.Int("states_pruned", result.StatesPruned),
	)
	return result
}

func (app *App) stopScheduler() {
	if app.scheduler == nil {
		return
	}
	app.stopSweep()
	<-app.scheduler.Stop().Done()
	app.scheduler = nil
}
