package usecase

import (
	"context"
	"log/slog"
	"time"

	"FeedbackScanner/internal/ports"
)

// Scheduler runs the batch pipeline on a recurring trigger and posts a digest.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	notifier ports.Notifier
	request  Request
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs of req.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, notifier ports.Notifier, req Request, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, notifier: notifier, request: req, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.RunOnce(ctx, trigger); err != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// RunOnce executes one batch run and publishes its digest when a notifier is set.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) error {
	res, err := s.pipeline.Run(ctx, s.request)
	if err != nil {
		return err
	}
	s.logger.Info("scheduled run finished", "trigger", trigger, "run_id", res.RunID, "classified", len(res.Classified))

	if s.notifier == nil || len(res.Classified) == 0 {
		return nil
	}
	return s.notifier.PublishDigest(ctx, BuildDigest(res))
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
