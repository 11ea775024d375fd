package components

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/archive"
	"github.com/crav-platform/credit-ledger/internal/domain/billing"
	"github.com/crav-platform/credit-ledger/internal/reconciler/service"
)

// ArchiveManagerImpl writes outbox rows for reconciled events
type ArchiveManagerImpl struct {
	archiveRepo archive.Repository
	logger      *slog.Logger
}

// NewArchiveManager creates a new archive manager
func NewArchiveManager(archiveRepo archive.Repository, logger *slog.Logger) service.ArchiveManager {
	return &ArchiveManagerImpl{
		archiveRepo: archiveRepo,
		logger:      logger,
	}
}

// Record writes the event's archive outbox row. Inside a transaction the row
// commits with the ledger change; outside one (the duplicate path) it only
// fills a gap left by a previous delivery.
func (m *ArchiveManagerImpl) Record(ctx context.Context, tx pgx.Tx, env *billing.EventEnvelope, data *billing.EventData, result *billing.ReconcileResult) error {
	repo := m.archiveRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	existing, err := repo.GetByEventID(ctx, env.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	record, err := archive.NewRecord(env, data.AccountID, result)
	if err != nil {
		return err
	}

	if err := repo.Create(ctx, record); err != nil {
		return err
	}

	m.logger.Debug("Created archive outbox record",
		"event_id", env.ID,
		"result", record.Result,
	)
	return nil
}
