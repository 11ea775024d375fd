package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
)

var subscriptionColumns = []string{"account_id", "plan_id", "status", "current_period_start", "current_period_end",
	"cancel_at_period_end", "canceled_at", "created_at", "updated_at"}

func TestSubscriptionRepository_GetByAccountID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SubscriptionRepository{querier: mock, logger: newTestLogger()}
	accountID := uuid.New()
	now := time.Now().UTC()

	query := `
		SELECT account_id, plan_id, status, current_period_start, current_period_end,
			cancel_at_period_end, canceled_at, created_at, updated_at
		FROM subscriptions
		WHERE account_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accountID).
			WillReturnRows(pgxmock.NewRows(subscriptionColumns).
				AddRow(accountID, "pro", subscription.StatusActive, now, now.AddDate(0, 1, 0), false, nil, now, now))

		sub, err := repo.GetByAccountID(ctx, accountID)
		assert.NoError(t, err)
		assert.Equal(t, "pro", sub.PlanID)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Nil(t, sub.CanceledAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accountID).WillReturnError(pgx.ErrNoRows)

		sub, err := repo.GetByAccountID(ctx, accountID)
		assert.Nil(t, sub)
		var notFoundErr subscription.ErrSubscriptionNotFound
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, accountID, notFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("query failed")
		mock.ExpectQuery(query).WithArgs(accountID).WillReturnError(dbErr)

		sub, err := repo.GetByAccountID(ctx, accountID)
		assert.Nil(t, sub)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SubscriptionRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	sub := &subscription.Subscription{
		AccountID:          uuid.New(),
		PlanID:             "starter",
		Status:             subscription.StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	query := `
		INSERT INTO subscriptions \(account_id, plan_id, status, current_period_start, current_period_end,
			cancel_at_period_end, canceled_at, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)
		ON CONFLICT \(account_id\) DO UPDATE
		SET plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = EXCLUDED.updated_at
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(sub.AccountID, sub.PlanID, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.CanceledAt, sub.CreatedAt, sub.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Upsert(ctx, sub))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("upsert failed")
		mock.ExpectExec(query).
			WithArgs(sub.AccountID, sub.PlanID, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.CanceledAt, sub.CreatedAt, sub.UpdatedAt).
			WillReturnError(dbErr)

		err := repo.Upsert(ctx, sub)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
