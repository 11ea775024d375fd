// Package archive_poller ships acknowledged billing events from the Postgres
// outbox to the MongoDB audit archive.
package archive_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crav-platform/credit-ledger/internal/domain/archive"
	"github.com/crav-platform/credit-ledger/internal/platform/metrics"
)

// ArchiveShipper ships outbox records to the archive store
type ArchiveShipper interface {
	Ship(ctx context.Context, record *archive.Record) error
}

// ArchiveShipperImpl implements ArchiveShipper
type ArchiveShipperImpl struct {
	archiveRepo archive.Repository
	store       archive.Store
	logger      *slog.Logger
}

// NewArchiveShipper creates a new shipper
func NewArchiveShipper(
	archiveRepo archive.Repository,
	store archive.Store,
	logger *slog.Logger,
) ArchiveShipper {
	return &ArchiveShipperImpl{
		archiveRepo: archiveRepo,
		store:       store,
		logger:      logger,
	}
}

// Ship writes one outbox record to the archive store and marks it shipped.
// Insert is an upsert keyed by event id, so a crash between insert and the
// status update re-ships harmlessly.
func (s *ArchiveShipperImpl) Ship(ctx context.Context, record *archive.Record) error {
	logger := s.logger.With("outbox_id", record.ID, "event_id", record.EventID)
	logger.Info("Shipping archive record")

	existing, err := s.store.FindByEventID(ctx, record.EventID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("Failed to check archive store before shipping", "error", err)
		}
		return fmt.Errorf("failed to check archive store for event %s: %w", record.EventID, err)
	}

	if existing == nil {
		if err := s.store.Insert(ctx, record); err != nil {
			logger.Error("Failed to insert archive document", "error", err)
			return fmt.Errorf("failed to archive event %s: %w", record.EventID, err)
		}
		logger.Info("Archived billing event")
	} else {
		logger.Info("Billing event already archived")
	}

	if err := s.archiveRepo.UpdateStatus(ctx, record.ID, archive.ShipStatusShipped); err != nil {
		logger.Error("Failed to mark archive record as SHIPPED", "error", err)
		return fmt.Errorf("archive write for %s OK, but failed to mark outbox %d as SHIPPED: %w", record.EventID, record.ID, err)
	}

	metrics.ArchiveShippedTotal.WithLabelValues("shipped").Inc()
	return nil
}
