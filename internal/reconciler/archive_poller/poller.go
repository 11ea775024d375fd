package archive_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crav-platform/credit-ledger/internal/config"
	"github.com/crav-platform/credit-ledger/internal/domain/archive"
	"github.com/crav-platform/credit-ledger/internal/platform/metrics"
)

// Poller processes pending archive outbox records
type Poller struct {
	archiveRepo      archive.Repository
	shipper          ArchiveShipper
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.ArchiveConfig,
	archiveRepo archive.Repository,
	shipper ArchiveShipper,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		archiveRepo:      archiveRepo,
		shipper:          shipper,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Archive Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Archive Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Archive Poller tick: processing pending records")
			if err := p.processPendingRecords(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending archive records", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingRecords(ctx context.Context) error {
	records, err := p.archiveRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending archive records: %w", err)
	}

	if len(records) == 0 {
		p.logger.Debug("No pending archive records found.")
		return nil
	}

	p.logger.Info("Fetched pending archive records", "count", len(records))

	for _, record := range records {
		if err := p.shipper.Ship(ctx, record); err != nil {
			p.logger.Error("Failed to ship archive record",
				"outbox_id", record.ID, "event_id", record.EventID, "current_attempts", record.Attempts, "error", err,
			)

			// Increment attempt count
			if errInc := p.archiveRepo.IncrementAttempts(ctx, record.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for archive record", "outbox_id", record.ID, "error", errInc)
				// Continue to next record if increment fails
				continue
			}

			if record.Attempts+1 >= p.maxRetryAttempts {
				p.logger.Warn("Max retry attempts reached for archive record, marking as FAILED_TO_SHIP",
					"outbox_id", record.ID, "event_id", record.EventID, "attempts_made", record.Attempts+1,
				)
				if errUpdate := p.archiveRepo.UpdateStatus(ctx, record.ID, archive.ShipStatusFailed); errUpdate != nil {
					p.logger.Error("Failed to update archive record status to FAILED_TO_SHIP after max retries", "outbox_id", record.ID, "error", errUpdate)
				}
				metrics.ArchiveShippedTotal.WithLabelValues("failed").Inc()
			}
			continue
		}
		p.logger.Info("Successfully shipped archive record", "outbox_id", record.ID, "event_id", record.EventID)
	}
	return nil
}
