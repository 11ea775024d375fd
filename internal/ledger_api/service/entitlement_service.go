package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/domain/plan"
	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
	"github.com/crav-platform/credit-ledger/internal/platform/metrics"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

// EntitlementServiceImpl implements the EntitlementService interface
type EntitlementServiceImpl struct {
	db           persistence.TxRunner
	ledgerRepo   ledger.Repository
	balanceRepo  balance.Repository
	subRepo      subscription.Repository
	reservations *ReservationTable
	logger       *slog.Logger
}

// NewEntitlementService creates a new entitlement authorizer
func NewEntitlementService(
	logger *slog.Logger,
	db persistence.TxRunner,
	ledgerRepo ledger.Repository,
	balanceRepo balance.Repository,
	subRepo subscription.Repository,
	reservations *ReservationTable,
) EntitlementService {
	return &EntitlementServiceImpl{
		db:           db,
		ledgerRepo:   ledgerRepo,
		balanceRepo:  balanceRepo,
		subRepo:      subRepo,
		reservations: reservations,
		logger:       logger,
	}
}

// Authorize checks the balance and appends the spend entry in one transaction.
// The row lock on the projection serializes concurrent authorizations per
// account, so two requests can never both spend the same credits.
func (s *EntitlementServiceImpl) Authorize(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*Decision, error) {
	return s.authorize(ctx, accountID, amount, description, uuid.Nil)
}

func (s *EntitlementServiceImpl) authorize(ctx context.Context, accountID uuid.UUID, amount int64, description string, excludeReservation uuid.UUID) (*Decision, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("authorization amount must be positive, got %d", amount)
	}

	start := time.Now()
	var decision *Decision

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		balRepo := s.balanceRepo.WithTx(tx)
		ledRepo := s.ledgerRepo.WithTx(tx)

		b, err := s.lockProjection(ctx, balRepo, accountID)
		if err != nil {
			return err
		}

		held := s.reservations.HeldFor(accountID, excludeReservation)
		if b.Balance-held < amount {
			return balance.ErrInsufficientCredits{
				AccountID: accountID,
				Requested: amount,
				Balance:   b.Balance - held,
			}
		}

		entry, err := ledger.NewEntry(accountID, -amount, ledger.KindSpend, description)
		if err != nil {
			return err
		}
		entry.CorrelationID = CorrelationIDFromContext(ctx)

		entryID, err := ledRepo.Append(ctx, entry)
		if err != nil {
			return err
		}

		b.Apply(entry)
		if err := balRepo.Update(ctx, b); err != nil {
			return err
		}

		decision = &Decision{
			Approved:         true,
			EntryID:          entryID,
			RemainingBalance: b.Balance,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, balance.ErrInsufficientCredits{}) {
			metrics.AuthorizationsTotal.WithLabelValues("denied_insufficient_credits").Inc()
		}
		return nil, err
	}

	metrics.AuthorizationsTotal.WithLabelValues("approved").Inc()
	metrics.LedgerEntriesTotal.WithLabelValues(string(ledger.KindSpend)).Inc()
	metrics.AuthorizationDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Authorized spend",
		"account_id", accountID.String(),
		"amount", amount,
		"entry_id", decision.EntryID.String(),
		"remaining_balance", decision.RemainingBalance,
	)
	return decision, nil
}

// lockProjection acquires the per-account row lock, creating the zero
// projection first for accounts that have never appeared in the ledger
func (s *EntitlementServiceImpl) lockProjection(ctx context.Context, balRepo balance.Repository, accountID uuid.UUID) (*balance.AccountBalance, error) {
	b, err := balRepo.GetForUpdate(ctx, accountID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, balance.ErrBalanceNotFound{}) {
		return nil, err
	}

	if err := balRepo.Init(ctx, accountID); err != nil {
		return nil, err
	}
	return balRepo.GetForUpdate(ctx, accountID)
}

// CheckLimit reports per-period consumption against the account's plan limit.
// The window is the active subscription's current period when one exists,
// otherwise the trailing 30 days.
func (s *EntitlementServiceImpl) CheckLimit(ctx context.Context, accountID uuid.UUID, kind LimitKind) (*LimitStatus, error) {
	p, start, end, err := s.limitWindow(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var used, limit int64
	switch kind {
	case LimitCredits:
		used, err = s.ledgerRepo.SpentInPeriod(ctx, accountID, start, end)
		limit = p.CreditLimit
	case LimitAPICalls:
		used, err = s.ledgerRepo.CountDebitsInPeriod(ctx, accountID, start, end)
		limit = p.APICallLimit
	default:
		return nil, fmt.Errorf("unknown limit kind: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	return &LimitStatus{
		Allowed: used < limit,
		Kind:    kind,
		Used:    used,
		Limit:   limit,
		PlanID:  p.ID,
	}, nil
}

// limitWindow resolves the plan and the billing window limits apply to
func (s *EntitlementServiceImpl) limitWindow(ctx context.Context, accountID uuid.UUID) (plan.Plan, time.Time, time.Time, error) {
	now := time.Now().UTC()

	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound{}) {
			return plan.Lookup(plan.DefaultPlanID), now.AddDate(0, 0, -30), now, nil
		}
		return plan.Plan{}, time.Time{}, time.Time{}, err
	}

	if sub.IsActive() && now.Before(sub.CurrentPeriodEnd) {
		return plan.Lookup(sub.PlanID), sub.CurrentPeriodStart, sub.CurrentPeriodEnd, nil
	}
	return plan.Lookup(plan.DefaultPlanID), now.AddDate(0, 0, -30), now, nil
}

// Reserve places an ephemeral hold on credits without touching the ledger
func (s *EntitlementServiceImpl) Reserve(ctx context.Context, accountID uuid.UUID, amount int64) (*Reservation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("reservation amount must be positive, got %d", amount)
	}

	b, err := s.balanceRepo.Get(ctx, accountID)
	if err != nil {
		if !errors.Is(err, balance.ErrBalanceNotFound{}) {
			return nil, err
		}
		b = balance.NewAccountBalance(accountID)
	}

	held := s.reservations.HeldFor(accountID, uuid.Nil)
	if b.Balance-held < amount {
		return nil, balance.ErrInsufficientCredits{
			AccountID: accountID,
			Requested: amount,
			Balance:   b.Balance - held,
		}
	}

	r, err := s.reservations.Add(accountID, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reserved credits",
		"account_id", accountID.String(),
		"reservation_id", r.ID.String(),
		"amount", amount,
		"expires_at", r.ExpiresAt,
	)
	return r, nil
}

// CommitReservation converts a live lease into an authorized spend. The hold
// itself is excluded from the availability check so a reservation can always
// spend the credits it holds.
func (s *EntitlementServiceImpl) CommitReservation(ctx context.Context, reservationID uuid.UUID, description string) (*Decision, error) {
	r, err := s.reservations.Get(reservationID)
	if err != nil {
		return nil, err
	}

	decision, err := s.authorize(ctx, r.AccountID, r.Amount, description, r.ID)
	if err != nil {
		return nil, err
	}

	s.reservations.Remove(r.ID)
	return decision, nil
}

// ReleaseReservation drops a lease without spending
func (s *EntitlementServiceImpl) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) error {
	if !s.reservations.Remove(reservationID) {
		return ErrReservationNotFound{ID: reservationID}
	}
	return nil
}

// SweepExpiredReservations drops all expired leases
func (s *EntitlementServiceImpl) SweepExpiredReservations(_ context.Context) int {
	swept := s.reservations.SweepExpired()
	if swept > 0 {
		metrics.ReservationsExpiredTotal.Add(float64(swept))
		s.logger.Info("Swept expired reservations", "count", swept)
	}
	return swept
}
