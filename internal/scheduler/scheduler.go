// Package scheduler runs the periodic background jobs: saving state,
// exporting the .ics file and refreshing the preview PNG.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "deskcal/internal/log"
)

// Job is one named unit of periodic work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler fires every registered job on a shared cron spec. Overlapping
// runs of the same job are skipped rather than queued.
type Scheduler struct {
	spec string
	cron *cron.Cron
	jobs []Job
	ctx  context.Context
}

// New validates spec (standard 5-field cron or a descriptor such as
// "@every 5m") and returns an idle scheduler evaluated in loc.
func New(spec string, loc *time.Location) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return &Scheduler{
		spec: spec,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx: context.Background(),
	}, nil
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return errors.New("scheduler: job has no Run func")
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.runOne(s.ctx, job) }); err != nil {
		return err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Jobs lists the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name
	}
	return names
}

// RunAll executes every job once, in order, and returns the joined errors.
func (s *Scheduler) RunAll(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		if err := s.runOne(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Start runs the cron loop until ctx is canceled, then waits for running
// jobs to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	appLog.Info("scheduler started", "spec", s.spec, "jobs", len(s.jobs))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}

func (s *Scheduler) runOne(ctx context.Context, job Job) error {
	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		appLog.Error("scheduler: job failed", err, "job", job.Name)
		return err
	}
	appLog.Debug("scheduler: job done", "job", job.Name, "elapsed", time.Since(start))
	return nil
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
