package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/reconciler/service"
)

// LedgerApplierImpl appends an event's entry and maintains the balance
// projection under the per-account row lock
type LedgerApplierImpl struct {
	ledgerRepo  ledger.Repository
	balanceRepo balance.Repository
	logger      *slog.Logger
}

// NewLedgerApplier creates a new ledger applier
func NewLedgerApplier(ledgerRepo ledger.Repository, balanceRepo balance.Repository, logger *slog.Logger) service.LedgerApplier {
	return &LedgerApplierImpl{
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		logger:      logger,
	}
}

// Apply locks the projection row, appends the entry, and folds it into the
// projection. Duplicate source events propagate as ErrDuplicateSourceEvent
// before any projection change.
func (a *LedgerApplierImpl) Apply(ctx context.Context, tx pgx.Tx, translated *service.TranslatedEvent) (uuid.UUID, error) {
	balRepo := a.balanceRepo.WithTx(tx)
	ledRepo := a.ledgerRepo.WithTx(tx)

	b, err := balRepo.GetForUpdate(ctx, translated.AccountID)
	if err != nil {
		if !errors.Is(err, balance.ErrBalanceNotFound{}) {
			return uuid.Nil, err
		}
		if err := balRepo.Init(ctx, translated.AccountID); err != nil {
			return uuid.Nil, err
		}
		if b, err = balRepo.GetForUpdate(ctx, translated.AccountID); err != nil {
			return uuid.Nil, err
		}
	}

	entryID, err := ledRepo.Append(ctx, translated.Entry)
	if err != nil {
		return uuid.Nil, err
	}

	b.Apply(translated.Entry)
	if err := balRepo.Update(ctx, b); err != nil {
		return uuid.Nil, err
	}

	a.logger.Debug("Applied ledger entry",
		"account_id", translated.AccountID.String(),
		"entry_id", entryID.String(),
		"amount", translated.Entry.Amount,
		"balance", b.Balance,
	)
	return entryID, nil
}
