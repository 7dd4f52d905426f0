// Package jobs runs the periodic reconciliation jobs. Every run holds a
// distributed lease so only one replica executes a job at a time.
package jobs

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	config "pix-stream/config"
	errors "pix-stream/errors"

	// External Packages
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var runs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pix_stream",
	Name:      "job_runs_total",
	Help:      "Scheduled job runs, by job and result.",
}, []string{"job", "result"})

type Lease interface {
	AcquireOrRefresh(ctx context.Context, key string, timeout, refresh time.Duration, body func(ctx context.Context) error) error
}

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	lease  Lease
	logger *zap.Logger
	ctx    context.Context
}

func NewScheduler(lease Lease, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		lease:  lease,
		logger: logger,
		ctx:    context.Background(),
	}
}

// Add schedules job on conf.Cron.
func (s *Scheduler) Add(job Job, conf config.Job) error {
	_, err := s.cron.AddFunc(conf.Cron, func() {
		if err := s.RunOnce(s.ctx, job, conf); err != nil {
			s.logger.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return errors.E(errors.Invalid, "invalid cron for job "+job.Name(), err)
	}
	return nil
}

// RunOnce runs job under its lease. A lease held by another replica skips
// the run without error.
func (s *Scheduler) RunOnce(ctx context.Context, job Job, conf config.Job) error {
	err := s.lease.AcquireOrRefresh(ctx, conf.LeaseKey, conf.LeaseTimeout, conf.RefreshInterval, job.Run)
	switch {
	case errors.IsErr(err, errors.ErrLeaseHeld):
		s.logger.Debug("job lease held elsewhere, skipping", zap.String("job", job.Name()))
		runs.WithLabelValues(job.Name(), "skipped").Inc()
		return nil
	case err != nil:
		runs.WithLabelValues(job.Name(), "failed").Inc()
		return err
	}
	runs.WithLabelValues(job.Name(), "ok").Inc()
	return nil
}

// Start runs the schedule until ctx is done, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
