// Package cron runs background jobs on a cron schedule.
//
// The CronTrigger type wraps a Job and executes it according to a cron schedule.
// It is designed to be started once and run until the context is cancelled.
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("metrics_push", "*/5 * * * *", pushMetrics, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-trigger.Done()    // Closed once ctx is cancelled and the loop exits
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Job is the work a CronTrigger runs on every tick.
type Job func(ctx context.Context) error

// CronTrigger executes a Job according to a cron schedule.
type CronTrigger struct {
	name     string
	spec     string
	schedule cron.Schedule
	job      Job
	logger   *slog.Logger
	done     chan struct{}
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSpec checks a standard 5-field cron specification.
func ValidateSpec(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return errors.Join(ErrInvalidCronSpec, err)
	}
	return nil
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(name, spec string, job Job, logger *slog.Logger) (*CronTrigger, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &CronTrigger{
		name:     name,
		spec:     spec,
		schedule: schedule,
		job:      job,
		logger:   logger.With("job", name),
		done:     make(chan struct{}),
	}, nil
}

// Start launches a goroutine that runs the job according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// Done is closed after the scheduling loop has exited.
func (ct *CronTrigger) Done() <-chan struct{} {
	return ct.done
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

// loop is the main scheduling loop that runs in a goroutine.
func (ct *CronTrigger) loop(ctx context.Context) {
	defer close(ct.done)
	for {
		nextRun := ct.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		ct.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			ct.executeRun(ctx)
		}
	}
}

// executeRun executes the job and logs the result.
func (ct *CronTrigger) executeRun(ctx context.Context) {
	ct.logger.Debug("starting scheduled run")

	if err := ct.job(ctx); err != nil {
		ct.logger.Warn("scheduled run completed with error", "error", err)
	} else {
		ct.logger.Debug("scheduled run completed successfully")
	}
}
