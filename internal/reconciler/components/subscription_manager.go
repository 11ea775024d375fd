package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
	"github.com/crav-platform/credit-ledger/internal/domain/plan"
	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
	"github.com/crav-platform/credit-ledger/internal/reconciler/service"
)

// SubscriptionManagerImpl applies subscription lifecycle changes from
// reconciler-validated billing events
type SubscriptionManagerImpl struct {
	subRepo subscription.Repository
	logger  *slog.Logger
}

// NewSubscriptionManager creates a new subscription manager
func NewSubscriptionManager(subRepo subscription.Repository, logger *slog.Logger) service.SubscriptionManager {
	return &SubscriptionManagerImpl{
		subRepo: subRepo,
		logger:  logger,
	}
}

// Apply upserts the account's subscription per the event. Cancellation keeps
// the row and leaves granted credits untouched.
func (m *SubscriptionManagerImpl) Apply(ctx context.Context, tx pgx.Tx, env *billing.EventEnvelope, data *billing.EventData) error {
	repo := m.subRepo.WithTx(tx)

	sub, err := repo.GetByAccountID(ctx, data.AccountID)
	if err != nil && !errors.Is(err, subscription.ErrSubscriptionNotFound{}) {
		return err
	}

	switch env.Type {
	case billing.EventInvoicePaid:
		if sub == nil {
			planID := data.PlanID
			if !plan.Exists(planID) {
				planID = plan.DefaultPlanID
			}
			sub, err = subscription.NewSubscription(data.AccountID, planID, subscription.StatusActive, data.CurrentPeriodStart, data.CurrentPeriodEnd)
			if err != nil {
				return err
			}
		} else {
			if err := sub.ApplyStatus(subscription.StatusActive); err != nil {
				return err
			}
			if plan.Exists(data.PlanID) {
				sub.PlanID = data.PlanID
			}
			if !data.CurrentPeriodEnd.IsZero() {
				sub.RenewPeriod(data.CurrentPeriodStart, data.CurrentPeriodEnd)
			}
		}

	case billing.EventSubscriptionUpdated:
		status := subscription.Status(data.Status)
		if sub == nil {
			sub, err = subscription.NewSubscription(data.AccountID, data.PlanID, status, data.CurrentPeriodStart, data.CurrentPeriodEnd)
			if err != nil {
				return err
			}
			sub.CancelAtPeriodEnd = data.CancelAtPeriodEnd
		} else {
			if err := sub.ApplyStatus(status); err != nil {
				return err
			}
			if data.PlanID != "" {
				sub.PlanID = data.PlanID
			}
			if !data.CurrentPeriodEnd.IsZero() {
				sub.RenewPeriod(data.CurrentPeriodStart, data.CurrentPeriodEnd)
			}
			sub.CancelAtPeriodEnd = data.CancelAtPeriodEnd
		}

	case billing.EventSubscriptionCanceled:
		if sub == nil {
			sub, err = subscription.NewSubscription(data.AccountID, data.PlanID, subscription.StatusCanceled, data.CurrentPeriodStart, data.CurrentPeriodEnd)
			if err != nil {
				return err
			}
		} else if err := sub.Cancel(data.CancelAtPeriodEnd); err != nil {
			if errors.Is(err, subscription.ErrAlreadyCanceled) {
				m.logger.Info("Subscription already canceled", "account_id", data.AccountID.String(), "event_id", env.ID)
				return nil
			}
			return err
		}

	default:
		return nil
	}

	return repo.Upsert(ctx, sub)
}
