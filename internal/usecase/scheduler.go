package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsDigest/internal/ports"
)

// Scheduler wires the cron-like driver with the ingestion and digest use cases.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	digest   *Digest
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, digest *Digest, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, digest: digest, logger: logger}
}

// Start registers the ingestion-then-digest job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.pipeline.Run(ctx); err != nil {
			s.logger.Error("scheduled ingestion failed", "error", err)
			return
		}
		if s.digest == nil {
			return
		}
		if err := s.digest.Run(ctx, trigger); err != nil {
			s.logger.Error("scheduled digest failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
