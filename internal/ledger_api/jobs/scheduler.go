// Package jobs runs the API's background maintenance: sweeping expired
// credit reservations and verifying balance projections against the ledger.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/crav-platform/credit-ledger/internal/config"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/service"
)

// Scheduler owns the cron runner for the API's background jobs
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler wires the reservation sweep and the scheduled drift check
func NewScheduler(
	logger *slog.Logger,
	cfg *config.Config,
	entitlementService service.EntitlementService,
	balanceService service.BalanceService,
) (*Scheduler, error) {
	c := cron.New()

	sweepSpec := fmt.Sprintf("@every %s", cfg.Reservation.SweepInterval)
	if _, err := c.AddFunc(sweepSpec, func() {
		entitlementService.SweepExpiredReservations(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule reservation sweep: %w", err)
	}

	if _, err := c.AddFunc(cfg.Jobs.DriftCheckSchedule, func() {
		drifted, err := balanceService.VerifyAll(context.Background())
		if err != nil {
			logger.Error("Projection drift check failed", "error", err)
			return
		}
		if len(drifted) > 0 {
			logger.Error("Projection drift check found drifted accounts", "count", len(drifted))
			return
		}
		logger.Info("Projection drift check passed")
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule drift check: %w", err)
	}

	return &Scheduler{
		cron:   c,
		logger: logger,
	}, nil
}

// Start launches the cron runner in its own goroutine
func (s *Scheduler) Start() {
	s.logger.Info("Starting background job scheduler")
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background job scheduler")
	<-s.cron.Stop().Done()
}
