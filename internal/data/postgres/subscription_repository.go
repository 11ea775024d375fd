package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

// SubscriptionRepository implements the subscription.Repository interface for PostgreSQL
type SubscriptionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository
func NewSubscriptionRepository(logger *slog.Logger, db *persistence.PostgresDB) subscription.Repository {
	return &SubscriptionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so subscription changes can
// be atomic with the ledger entries the same event produces
func (r *SubscriptionRepository) WithTx(tx pgx.Tx) subscription.Repository {
	return &SubscriptionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByAccountID retrieves the subscription for an account
func (r *SubscriptionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	query := `
		SELECT account_id, plan_id, status, current_period_start, current_period_end,
			cancel_at_period_end, canceled_at, created_at, updated_at
		FROM subscriptions
		WHERE account_id = $1
	`

	var sub subscription.Subscription
	err := r.querier.QueryRow(ctx, query, accountID).Scan(
		&sub.AccountID,
		&sub.PlanID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.CanceledAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscription.ErrSubscriptionNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to get subscription", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// Upsert inserts the subscription or replaces the existing row for the
// account. Canceled rows are retained: cancellation is a status change.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (account_id, plan_id, status, current_period_start, current_period_end,
			cancel_at_period_end, canceled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		sub.AccountID,
		sub.PlanID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.CanceledAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert subscription", "account_id", sub.AccountID.String(), "error", err)
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}
