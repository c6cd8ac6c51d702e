// Package scheduler triggers the multi-user run on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled tick.
type Job func(ctx context.Context) error

type Config struct {
	// Spec is a cron expression. When empty, IntervalHours is used.
	Spec          string
	IntervalHours int
	// RunOnStart fires one tick right after Start.
	RunOnStart bool
}

// Scheduler wraps robfig/cron. Overlapping ticks are skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    Job
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, job Job, logger *zap.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	spec := strings.TrimSpace(cfg.Spec)
	if spec == "" {
		if cfg.IntervalHours <= 0 {
			return nil, fmt.Errorf("interval hours must be positive, got %d", cfg.IntervalHours)
		}
		spec = fmt.Sprintf("@every %dh", cfg.IntervalHours)
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		spec:   spec,
		job:    job,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Spec returns the cron expression in use.
func (s *Scheduler) Spec() string { return s.spec }

// Start registers the job and starts the cron loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("register cron job %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))

	if s.cfg.RunOnStart {
		go s.tick(ctx)
	}
	return nil
}

// Stop stops the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("scheduled run started")
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled run finished")
}
