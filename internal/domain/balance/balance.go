// Package balance holds the derived account-balance projection. The ledger
// is the source of truth: every AccountBalance must equal a pure fold over
// the account's entries and can be rebuilt from scratch at any time.
package balance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
)

// AccountBalance is the incremental projection of one account's ledger
type AccountBalance struct {
	AccountID      uuid.UUID `json:"account_id"`
	Balance        int64     `json:"balance"`
	LifetimeEarned int64     `json:"lifetime_earned"`
	LifetimeSpent  int64     `json:"lifetime_spent"`
	AsOfEntryID    uuid.UUID `json:"as_of_entry_id"`
	Version        int       `json:"version"` // For optimistic locking
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewAccountBalance returns the zero projection for an account with no entries
func NewAccountBalance(accountID uuid.UUID) *AccountBalance {
	return &AccountBalance{
		AccountID: accountID,
		Version:   1,
		UpdatedAt: time.Now().UTC(),
	}
}

// Apply folds a single entry into the projection. Refunds reduce
// lifetimeEarned rather than counting as spend: the credits were never used.
func (b *AccountBalance) Apply(e *ledger.Entry) {
	b.Balance += e.Amount
	switch {
	case e.Amount > 0:
		b.LifetimeEarned += e.Amount
	case e.Kind == ledger.KindRefund || e.Kind == ledger.KindChargeback:
		b.LifetimeEarned -= -e.Amount
	default:
		b.LifetimeSpent += -e.Amount
	}
	b.AsOfEntryID = e.ID
	b.Version++
	b.UpdatedAt = time.Now().UTC()
}

// Fold recomputes the projection from a complete, ordered entry sequence.
// The incremental projection and Fold must agree for the same entry set.
func Fold(accountID uuid.UUID, entries []*ledger.Entry) *AccountBalance {
	b := NewAccountBalance(accountID)
	for _, e := range entries {
		b.Apply(e)
	}
	return b
}

// CanSpend reports whether the account holds at least amount credits
func (b *AccountBalance) CanSpend(amount int64) bool {
	return b.Balance >= amount
}

// ErrInsufficientCredits indicates a spend was denied. No ledger mutation
// occurs; Balance carries the current balance for the caller.
type ErrInsufficientCredits struct {
	AccountID uuid.UUID
	Requested int64
	Balance   int64
}

func (e ErrInsufficientCredits) Error() string {
	return fmt.Sprintf("insufficient credits for account %s: requested %d, balance %d",
		e.AccountID.String(), e.Requested, e.Balance)
}

// Is implements the errors.Is interface for ErrInsufficientCredits
func (e ErrInsufficientCredits) Is(target error) bool {
	t, ok := target.(ErrInsufficientCredits)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrProjectionDrift indicates the incremental projection disagrees with a
// full-fold recomputation. This signals a bug and is never silently
// corrected; the account stays unavailable for spend until Rebuild runs.
type ErrProjectionDrift struct {
	AccountID   uuid.UUID
	Incremental int64
	Recomputed  int64
}

func (e ErrProjectionDrift) Error() string {
	return fmt.Sprintf("projection drift detected for account %s: incremental %d, recomputed %d",
		e.AccountID.String(), e.Incremental, e.Recomputed)
}

// Is implements the errors.Is interface for ErrProjectionDrift
func (e ErrProjectionDrift) Is(target error) bool {
	t, ok := target.(ErrProjectionDrift)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
