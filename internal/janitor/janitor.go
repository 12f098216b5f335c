// Package janitor periodically clears expired OTP columns. Expired codes
// are already rejected on consume, so the sweep is hygiene, not
// correctness: it keeps stale digests from lingering in the table.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cakely/auth-service/internal/metrics"
	"github.com/cakely/auth-service/internal/repository"
	"github.com/robfig/cron/v3"
)

type Janitor struct {
	users    repository.UserRepository
	logger   *slog.Logger
	schedule cron.Schedule
}

func New(users repository.UserRepository, logger *slog.Logger, cronExpr string) (*Janitor, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", cronExpr, err)
	}
	return &Janitor{
		users:    users,
		logger:   logger.With("component", "janitor"),
		schedule: schedule,
	}, nil
}

// Start sweeps on the configured schedule until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started", "next_sweep", j.schedule.Next(time.Now()))

	for {
		timer := time.NewTimer(time.Until(j.schedule.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor shut down")
			return
		case <-timer.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass.
func (j *Janitor) Sweep(ctx context.Context) {
	start := time.Now()

	cleared, err := j.users.ClearExpiredOTPs(ctx, start)
	if err != nil {
		j.logger.Error("sweep expired otps", "error", err)
		return
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	metrics.SweepClearedTotal.Add(float64(cleared))

	if cleared > 0 {
		j.logger.Info("cleared expired otps", "count", cleared)
	}
}
