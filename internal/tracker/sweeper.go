package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SamuelRM25/codispro/internal/store"
	"github.com/SamuelRM25/codispro/pkg/metrics"
)

// Sweeper is the background retention task. Once per interval it deletes
// location samples older than the retention horizon. Failures are logged and
// swallowed; the next scheduled run retries naturally.
type Sweeper struct {
	logger   *slog.Logger
	store    store.LocationStore
	metrics  *metrics.TrackerMetrics
	now      func() time.Time
	horizon  time.Duration
	interval time.Duration
}

// SweeperConfig holds the configuration for the Sweeper.
type SweeperConfig struct {
	Logger  *slog.Logger
	Store   store.LocationStore
	Metrics *metrics.TrackerMetrics // Optional metrics

	// Horizon is the maximum age of a sample before it is deleted.
	Horizon time.Duration

	// Interval is the time between sweep runs.
	Interval time.Duration

	// Now overrides the clock used to compute the cutoff. Defaults to time.Now.
	Now func() time.Time
}

// NewSweeper creates a new Sweeper instance.
func NewSweeper(cfg *SweeperConfig) (*Sweeper, error) {
	if cfg == nil {
		return nil, errors.New("sweeper config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Store == nil {
		return nil, errors.New("store cannot be nil")
	}

	if cfg.Horizon <= 0 {
		return nil, errors.New("retention horizon must be positive")
	}

	if cfg.Interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Sweeper{
		logger:   cfg.Logger,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		horizon:  cfg.Horizon,
		interval: cfg.Interval,
		now:      now,
	}, nil
}

// Run sweeps on a fixed schedule until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("retention sweeper started",
		"horizon", s.horizon,
		"interval", s.interval,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			// Errors are contained; the next tick retries.
			_, _ = s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of deleted rows.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.horizon)

	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", "cutoff", cutoff, "error", err)
		if s.metrics != nil {
			s.metrics.SweepRunsTotal.WithLabelValues("error").Inc()
		}
		return 0, err
	}

	s.logger.Info("retention sweep completed", "cutoff", cutoff, "deleted", deleted)

	if s.metrics != nil {
		s.metrics.SweepRunsTotal.WithLabelValues("success").Inc()
		s.metrics.SweepDeletedTotal.Add(float64(deleted))
	}

	return deleted, nil
}
