package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/metrics"
	"github.com/oggyb/ember/internal/repository"
)

const (
	jobSessionPurge      = "session_purge"
	sessionPurgeSchedule = "@hourly"
)

// Start schedules every background job and stops the scheduler when ctx is done.
func Start(ctx context.Context, appCtx *app.AppContext, sweeper *MatchSweeper) (*cron.Cron, error) {
	log := cronLogger{appCtx.Logger.With("component", "jobs")}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	sessions := repository.NewSessionRepository(appCtx.DB)
	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) (map[string]any, error)
	}{
		{jobMatchSweep, appCtx.Config.Jobs.MatchSweepSchedule, func(ctx context.Context) (map[string]any, error) {
			res, err := sweeper.Sweep(ctx)
			return map[string]any{"warned": res.Warned, "expired": res.Expired}, err
		}},
		{jobSessionPurge, sessionPurgeSchedule, func(ctx context.Context) (map[string]any, error) {
			n, err := sessions.DeleteExpired(ctx, time.Now())
			return map[string]any{"deleted": n}, err
		}},
	}
	for _, j := range jobs {
		if _, err := c.AddFunc(j.schedule, func() { runJob(ctx, appCtx.Logger, j.name, j.run) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", j.name, j.schedule, err)
		}
	}

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}

func runJob(ctx context.Context, log *slog.Logger, name string, fn func(context.Context) (map[string]any, error)) {
	start := time.Now()
	stats, err := fn(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
		log.Error("job failed", "job", name, "err", err)
		return
	}
	metrics.JobRunsTotal.WithLabelValues(name, "ok").Inc()
	args := []any{"job", name, "duration", time.Since(start)}
	for k, v := range stats {
		args = append(args, k, v)
	}
	log.Info("job done", args...)
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "err", err)...)
}
