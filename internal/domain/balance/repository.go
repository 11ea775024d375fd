package balance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines balance projection persistence. The projection is
// derived state: it may be discarded and rebuilt from the ledger at any time.
type Repository interface {
	Get(ctx context.Context, accountID uuid.UUID) (*AccountBalance, error)

	// Init inserts a zero projection row if none exists yet (no-op otherwise)
	Init(ctx context.Context, accountID uuid.UUID) error

	// GetForUpdate acquires a row-level lock on the projection, serializing
	// concurrent spend authorizations per account. Must run inside a transaction.
	GetForUpdate(ctx context.Context, accountID uuid.UUID) (*AccountBalance, error)

	// Update persists the projection using optimistic locking on Version
	Update(ctx context.Context, b *AccountBalance) error

	// Replace overwrites the projection unconditionally; used by Rebuild
	Replace(ctx context.Context, b *AccountBalance) error

	// ListAccountIDs returns every account with a projection row,
	// used by the scheduled drift check
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrBalanceNotFound indicates no projection row exists for the account
type ErrBalanceNotFound struct {
	AccountID uuid.UUID
}

func (e ErrBalanceNotFound) Error() string {
	return "balance projection not found for account: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrBalanceNotFound
func (e ErrBalanceNotFound) Is(target error) bool {
	t, ok := target.(ErrBalanceNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}
