package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/platform/metrics"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

// BalanceServiceImpl implements the BalanceService interface
type BalanceServiceImpl struct {
	db          persistence.TxRunner
	ledgerRepo  ledger.Repository
	balanceRepo balance.Repository
	logger      *slog.Logger
}

// NewBalanceService creates a new balance projection service
func NewBalanceService(
	logger *slog.Logger,
	db persistence.TxRunner,
	ledgerRepo ledger.Repository,
	balanceRepo balance.Repository,
) BalanceService {
	return &BalanceServiceImpl{
		db:          db,
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		logger:      logger,
	}
}

// GetBalance returns the projection, or the zero projection for accounts with
// no ledger entries yet
func (s *BalanceServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error) {
	b, err := s.balanceRepo.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, balance.ErrBalanceNotFound{}) {
			return balance.NewAccountBalance(accountID), nil
		}
		return nil, err
	}
	return b, nil
}

// Rebuild recomputes the projection from the full ledger inside a transaction
// that holds the projection row lock, so no append can interleave. Rebuilding
// a healthy projection produces an identical balance.
func (s *BalanceServiceImpl) Rebuild(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error) {
	var rebuilt *balance.AccountBalance

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		balRepo := s.balanceRepo.WithTx(tx)
		ledRepo := s.ledgerRepo.WithTx(tx)

		// Lock the row (creating it first if absent) so concurrent
		// authorizations wait for the rebuild
		if err := balRepo.Init(ctx, accountID); err != nil {
			return err
		}
		if _, err := balRepo.GetForUpdate(ctx, accountID); err != nil {
			return err
		}

		entries, err := ledRepo.ListForAccount(ctx, accountID, time.Time{})
		if err != nil {
			return err
		}

		rebuilt = balance.Fold(accountID, entries)
		return balRepo.Replace(ctx, rebuilt)
	})
	if err != nil {
		return nil, err
	}

	metrics.ProjectionRebuildsTotal.Inc()
	s.logger.Info("Rebuilt balance projection",
		"account_id", accountID.String(),
		"balance", rebuilt.Balance,
		"lifetime_earned", rebuilt.LifetimeEarned,
		"lifetime_spent", rebuilt.LifetimeSpent,
	)
	return rebuilt, nil
}

// Verify compares the incremental projection against a full fold of the
// ledger. Drift returns ErrProjectionDrift and is never silently corrected.
func (s *BalanceServiceImpl) Verify(ctx context.Context, accountID uuid.UUID) error {
	incremental, err := s.balanceRepo.Get(ctx, accountID)
	if err != nil {
		if !errors.Is(err, balance.ErrBalanceNotFound{}) {
			return err
		}
		incremental = balance.NewAccountBalance(accountID)
	}

	entries, err := s.ledgerRepo.ListForAccount(ctx, accountID, time.Time{})
	if err != nil {
		return err
	}
	recomputed := balance.Fold(accountID, entries)

	if incremental.Balance != recomputed.Balance ||
		incremental.LifetimeEarned != recomputed.LifetimeEarned ||
		incremental.LifetimeSpent != recomputed.LifetimeSpent {
		metrics.ProjectionDriftTotal.Inc()
		s.logger.Error("Projection drift detected",
			"account_id", accountID.String(),
			"incremental_balance", incremental.Balance,
			"recomputed_balance", recomputed.Balance,
		)
		return balance.ErrProjectionDrift{
			AccountID:   accountID,
			Incremental: incremental.Balance,
			Recomputed:  recomputed.Balance,
		}
	}

	return nil
}

// VerifyAll runs Verify over every projected account. Non-drift errors abort
// the scan; drift is collected so one bad account does not hide another.
func (s *BalanceServiceImpl) VerifyAll(ctx context.Context) ([]uuid.UUID, error) {
	accountIDs, err := s.balanceRepo.ListAccountIDs(ctx)
	if err != nil {
		return nil, err
	}

	var drifted []uuid.UUID
	for _, accountID := range accountIDs {
		if err := s.Verify(ctx, accountID); err != nil {
			if errors.Is(err, balance.ErrProjectionDrift{}) {
				drifted = append(drifted, accountID)
				continue
			}
			return drifted, err
		}
	}
	return drifted, nil
}
