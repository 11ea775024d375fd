package components

import (
	"log/slog"

	"github.com/crav-platform/credit-ledger/internal/config"
	"github.com/crav-platform/credit-ledger/internal/domain/archive"
	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
	"github.com/crav-platform/credit-ledger/internal/reconciler/service"
)

// CreateReconcileService creates a new ReconcileService with all its dependencies.
func CreateReconcileService(
	pgDB persistence.TxRunner,
	ledgerRepo ledger.Repository,
	balanceRepo balance.Repository,
	subRepo subscription.Repository,
	archiveRepo archive.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ReconcileService {
	translator := NewEventTranslator(logger)
	applier := NewLedgerApplier(ledgerRepo, balanceRepo, logger)
	subManager := NewSubscriptionManager(subRepo, logger)
	archiver := NewArchiveManager(archiveRepo, logger)

	baseService := service.NewReconcileService(
		pgDB,
		translator,
		applier,
		subManager,
		archiver,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolReconcileService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool reconcile service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
