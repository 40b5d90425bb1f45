package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

// ParseSweepSchedule accepts a standard 5-field cron expression or a
// descriptor such as "@every 5m".
func ParseSweepSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_SWEEP_CRON %q: %w", expr, err)
	}
	return sched, nil
}

// NewSweeper schedules one SweepStale pass per tick. SkipIfStillRunning keeps
// a slow pass from overlapping the next.
func NewSweeper(log *logger.Logger, engine *validation.Engine, sched cron.Schedule) *cron.Cron {
	sweepLog := log.With("job", "StaleSweep")
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{sweepLog}), cron.SkipIfStillRunning(cronLogger{sweepLog})))
	c.Schedule(sched, cron.FuncJob(func() {
		n, err := engine.SweepStale(context.Background())
		if err != nil {
			sweepLog.Warn("stale sweep failed", "error", err)
			return
		}
		sweepLog.Debug("stale sweep done", "abandoned", n)
	}))
	return c
}

func (a *App) runSweeper(ctx context.Context) error {
	sched, err := ParseSweepSchedule(a.Cfg.StaleSweepCron)
	if err != nil {
		return err
	}
	c := NewSweeper(a.Log, a.Services.Engine, sched)
	a.Log.Info("Stale sweep scheduled", "cron", a.Cfg.StaleSweepCron)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
