// Package service orchestrates billing event reconciliation: each event is
// validated, translated into at most one ledger entry, and applied atomically
// with its projection update, subscription change, and archive record.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/platform/metrics"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

// TranslatedEvent is the ledger-side effect of one billing event. Entry is
// nil for status-only events; SubscriptionChange marks events that touch the
// subscription row.
type TranslatedEvent struct {
	AccountID          uuid.UUID
	Entry              *ledger.Entry
	SubscriptionChange bool
}

// ReconcileServiceImpl implements the ReconcileService interface
type ReconcileServiceImpl struct {
	pgDB       persistence.TxRunner
	translator EventTranslator
	applier    LedgerApplier
	subManager SubscriptionManager
	archiver   ArchiveManager
	logger     *slog.Logger
}

// NewReconcileService creates the core reconciliation service
func NewReconcileService(
	pgDB persistence.TxRunner,
	translator EventTranslator,
	applier LedgerApplier,
	subManager SubscriptionManager,
	archiver ArchiveManager,
	logger *slog.Logger,
) ReconcileService {
	return &ReconcileServiceImpl{
		pgDB:       pgDB,
		translator: translator,
		applier:    applier,
		subManager: subManager,
		archiver:   archiver,
		logger:     logger,
	}
}

// HandleEvent drives one event through received, validated, applied,
// acknowledged. Rejected and duplicate events terminate early; only
// infrastructure failures return an error, which leaves the Kafka offset
// uncommitted for redelivery.
func (s *ReconcileServiceImpl) HandleEvent(ctx context.Context, env *billing.EventEnvelope) (*billing.ReconcileResult, error) {
	logger := s.logger.With("event_id", env.ID, "event_type", env.Type)
	logger.Info("Reconciling billing event")

	// 1. Validate event data
	data, err := env.DecodeData()
	if err != nil {
		logger.Error("Billing event rejected", "error", err)
		result := &billing.ReconcileResult{
			Status:  billing.ReconcileRejected,
			EventID: env.ID,
			Reason:  err.Error(),
		}
		metrics.BillingEventsTotal.WithLabelValues(string(result.Status)).Inc()
		return result, nil
	}

	// 2. Translate into the ledger entry the event produces
	translated, err := s.translator.Translate(env, data)
	if err != nil {
		var invalid billing.ErrInvalidEvent
		if errors.As(err, &invalid) {
			logger.Error("Billing event rejected", "error", err)
			result := &billing.ReconcileResult{
				Status:  billing.ReconcileRejected,
				EventID: env.ID,
				Reason:  invalid.Reason,
			}
			metrics.BillingEventsTotal.WithLabelValues(string(result.Status)).Inc()
			return result, nil
		}
		return nil, err
	}

	if translated == nil {
		logger.Info("Billing event ignored: type not consumed")
		result := &billing.ReconcileResult{
			Status:  billing.ReconcileIgnored,
			EventID: env.ID,
		}
		metrics.BillingEventsTotal.WithLabelValues(string(result.Status)).Inc()
		return result, nil
	}

	// 3. Apply atomically: ledger entry, projection, subscription, archive row
	result := &billing.ReconcileResult{
		Status:  billing.ReconcileApplied,
		EventID: env.ID,
	}

	err = s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if translated.Entry != nil {
			entryID, err := s.applier.Apply(ctx, tx, translated)
			if err != nil {
				return err
			}
			result.EntryID = entryID
		}

		if translated.SubscriptionChange {
			if err := s.subManager.Apply(ctx, tx, env, data); err != nil {
				return err
			}
		}

		return s.archiver.Record(ctx, tx, env, data, result)
	})
	if err != nil {
		var duplicate ledger.ErrDuplicateSourceEvent
		if errors.As(err, &duplicate) {
			logger.Info("Billing event already applied", "entry_id", duplicate.ExistingID.String())
			result.Status = billing.ReconcileDuplicate
			result.EntryID = duplicate.ExistingID

			// The transaction rolled back, so record the duplicate outside it
			if archiveErr := s.archiver.Record(ctx, nil, env, data, result); archiveErr != nil {
				return nil, archiveErr
			}
			metrics.BillingEventsTotal.WithLabelValues(string(result.Status)).Inc()
			return result, nil
		}
		return nil, fmt.Errorf("failed to apply billing event %s: %w", env.ID, err)
	}

	if translated.Entry != nil {
		metrics.LedgerEntriesTotal.WithLabelValues(string(translated.Entry.Kind)).Inc()
	}
	metrics.BillingEventsTotal.WithLabelValues(string(result.Status)).Inc()

	logger.Info("Billing event applied",
		"account_id", translated.AccountID.String(),
		"entry_id", result.EntryID.String(),
	)
	return result, nil
}
