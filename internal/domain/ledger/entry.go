package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrZeroAmount     = errors.New("entry amount cannot be zero")
	ErrInvalidKind    = errors.New("invalid entry kind")
	ErrAmountKindSign = errors.New("entry amount sign does not match kind")
)

// Kind classifies a credit-affecting fact
type Kind string

const (
	KindPurchase   Kind = "purchase"
	KindBonus      Kind = "bonus"
	KindRefund     Kind = "refund"
	KindSpend      Kind = "spend"
	KindUsage      Kind = "usage"
	KindChargeback Kind = "chargeback"
	KindAdjustment Kind = "adjustment"
)

// IsValid reports whether k is a known entry kind
func (k Kind) IsValid() bool {
	switch k {
	case KindPurchase, KindBonus, KindRefund, KindSpend, KindUsage, KindChargeback, KindAdjustment:
		return true
	}
	return false
}

// IsCredit reports whether entries of this kind add credits to an account.
// Adjustments may carry either sign.
func (k Kind) IsCredit() bool {
	return k == KindPurchase || k == KindBonus
}

// IsDebit reports whether entries of this kind remove credits from an account
func (k Kind) IsDebit() bool {
	return k == KindSpend || k == KindUsage || k == KindRefund || k == KindChargeback
}

// Entry is an immutable, signed credit-affecting fact. Entries are never
// mutated or deleted; corrections are new adjustment/refund entries that
// reference the original via Description.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"` // Signed credits; negative = spend
	Kind          Kind      `json:"kind"`
	SourceEventID *string   `json:"source_event_id,omitempty"` // External idempotency key, unique when present
	Description   string    `json:"description,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEntry creates a ledger entry, validating that the amount carries the
// sign the kind requires
func NewEntry(accountID uuid.UUID, amount int64, kind Kind, description string) (*Entry, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	if kind.IsCredit() && amount < 0 {
		return nil, ErrAmountKindSign
	}
	if kind.IsDebit() && amount > 0 {
		return nil, ErrAmountKindSign
	}

	return &Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// WithSourceEvent attaches the external idempotency key that produced this entry
func (e *Entry) WithSourceEvent(sourceEventID string) *Entry {
	e.SourceEventID = &sourceEventID
	return e
}
