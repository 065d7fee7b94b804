package syncer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hivemindhq/hivemind/internal/log"
)

// Runner is one periodic sync job.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Scheduler runs sync jobs on fixed intervals until its context is
// canceled. Job failures are logged, never fatal; the next tick retries.
type Scheduler struct {
	logger log.Logger
	jobs   []scheduledJob
}

type scheduledJob struct {
	name     string
	interval time.Duration
	runner   Runner
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger log.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a job. Intervals must be positive.
func (s *Scheduler) Add(name string, interval time.Duration, runner Runner) {
	s.jobs = append(s.jobs, scheduledJob{name: name, interval: interval, runner: runner})
}

// Run blocks until ctx is canceled, executing each job immediately and
// then on its interval. Always returns nil after shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			s.runJob(ctx, job)

			ticker := time.NewTicker(job.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.runJob(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job scheduledJob) {
	result, err := job.runner.Run(ctx)
	switch {
	case ctx.Err() != nil:
		// Shutdown mid-run; nothing to report.
	case err != nil:
		s.logger.Error("sync job failed", "job", job.name, "error", err)
	case result.Failed > 0:
		s.logger.Warn("sync job finished with item failures",
			"job", job.name,
			"failed", result.Failed,
			"error", result.Err(),
		)
	}
}
