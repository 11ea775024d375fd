package subscription

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines subscription persistence. One subscription row per
// account, keyed by account id.
type Repository interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Subscription, error)

	// Upsert inserts the subscription or replaces the existing row for the
	// account. Used by the reconciler, which owns subscription state.
	Upsert(ctx context.Context, sub *Subscription) error

	WithTx(tx pgx.Tx) Repository
}

// ErrSubscriptionNotFound indicates the account has no subscription row
type ErrSubscriptionNotFound struct {
	AccountID uuid.UUID
}

func (e ErrSubscriptionNotFound) Error() string {
	return "subscription not found for account: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrSubscriptionNotFound
func (e ErrSubscriptionNotFound) Is(target error) bool {
	t, ok := target.(ErrSubscriptionNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
