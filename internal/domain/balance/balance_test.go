package balance

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
)

func mustEntry(t *testing.T, accountID uuid.UUID, amount int64, kind ledger.Kind) *ledger.Entry {
	t.Helper()
	entry, err := ledger.NewEntry(accountID, amount, kind, "")
	require.NoError(t, err)
	return entry
}

func TestNewAccountBalance(t *testing.T) {
	accountID := uuid.New()
	b := NewAccountBalance(accountID)

	assert.Equal(t, accountID, b.AccountID)
	assert.Equal(t, int64(0), b.Balance)
	assert.Equal(t, int64(0), b.LifetimeEarned)
	assert.Equal(t, int64(0), b.LifetimeSpent)
	assert.Equal(t, uuid.Nil, b.AsOfEntryID)
	assert.Equal(t, 1, b.Version)
}

func TestAccountBalance_Apply(t *testing.T) {
	accountID := uuid.New()

	t.Run("CreditIncreasesBalanceAndLifetimeEarned", func(t *testing.T) {
		b := NewAccountBalance(accountID)
		entry := mustEntry(t, accountID, 500, ledger.KindPurchase)

		b.Apply(entry)

		assert.Equal(t, int64(500), b.Balance)
		assert.Equal(t, int64(500), b.LifetimeEarned)
		assert.Equal(t, int64(0), b.LifetimeSpent)
		assert.Equal(t, entry.ID, b.AsOfEntryID)
		assert.Equal(t, 2, b.Version)
	})

	t.Run("SpendIncreasesLifetimeSpent", func(t *testing.T) {
		b := NewAccountBalance(accountID)
		b.Apply(mustEntry(t, accountID, 500, ledger.KindPurchase))
		b.Apply(mustEntry(t, accountID, -120, ledger.KindSpend))

		assert.Equal(t, int64(380), b.Balance)
		assert.Equal(t, int64(500), b.LifetimeEarned)
		assert.Equal(t, int64(120), b.LifetimeSpent)
	})

	t.Run("RefundReducesLifetimeEarnedNotSpent", func(t *testing.T) {
		b := NewAccountBalance(accountID)
		b.Apply(mustEntry(t, accountID, 500, ledger.KindPurchase))
		b.Apply(mustEntry(t, accountID, -500, ledger.KindRefund))

		assert.Equal(t, int64(0), b.Balance)
		assert.Equal(t, int64(0), b.LifetimeEarned, "refunded credits were never earned")
		assert.Equal(t, int64(0), b.LifetimeSpent, "refunds are not spend")
	})

	t.Run("ChargebackReducesLifetimeEarned", func(t *testing.T) {
		b := NewAccountBalance(accountID)
		b.Apply(mustEntry(t, accountID, 1000, ledger.KindPurchase))
		b.Apply(mustEntry(t, accountID, -1000, ledger.KindChargeback))

		assert.Equal(t, int64(0), b.Balance)
		assert.Equal(t, int64(0), b.LifetimeEarned)
		assert.Equal(t, int64(0), b.LifetimeSpent)
	})

	t.Run("ChargebackMayDriveBalanceNegative", func(t *testing.T) {
		b := NewAccountBalance(accountID)
		b.Apply(mustEntry(t, accountID, 100, ledger.KindPurchase))
		b.Apply(mustEntry(t, accountID, -80, ledger.KindUsage))
		b.Apply(mustEntry(t, accountID, -100, ledger.KindChargeback))

		assert.Equal(t, int64(-80), b.Balance)
	})
}

func TestFold(t *testing.T) {
	accountID := uuid.New()

	t.Run("EmptyLedgerYieldsZeroProjection", func(t *testing.T) {
		b := Fold(accountID, nil)
		assert.Equal(t, int64(0), b.Balance)
		assert.Equal(t, uuid.Nil, b.AsOfEntryID)
	})

	t.Run("MatchesIncrementalProjection", func(t *testing.T) {
		entries := []*ledger.Entry{
			mustEntry(t, accountID, 2000, ledger.KindPurchase),
			mustEntry(t, accountID, 100, ledger.KindBonus),
			mustEntry(t, accountID, -350, ledger.KindSpend),
			mustEntry(t, accountID, -50, ledger.KindUsage),
			mustEntry(t, accountID, -100, ledger.KindRefund),
		}

		incremental := NewAccountBalance(accountID)
		for _, e := range entries {
			incremental.Apply(e)
		}
		recomputed := Fold(accountID, entries)

		assert.Equal(t, incremental.Balance, recomputed.Balance)
		assert.Equal(t, incremental.LifetimeEarned, recomputed.LifetimeEarned)
		assert.Equal(t, incremental.LifetimeSpent, recomputed.LifetimeSpent)
		assert.Equal(t, entries[len(entries)-1].ID, recomputed.AsOfEntryID)
	})
}

func TestAccountBalance_CanSpend(t *testing.T) {
	b := &AccountBalance{Balance: 100}
	assert.True(t, b.CanSpend(50))
	assert.True(t, b.CanSpend(100))
	assert.False(t, b.CanSpend(101))
}

func TestErrInsufficientCredits_Is(t *testing.T) {
	accountID := uuid.New()
	err := ErrInsufficientCredits{AccountID: accountID, Requested: 100, Balance: 40}

	assert.ErrorIs(t, err, ErrInsufficientCredits{}, "zero target should match any instance")
	assert.ErrorIs(t, err, ErrInsufficientCredits{AccountID: accountID})
	assert.NotErrorIs(t, err, ErrInsufficientCredits{AccountID: uuid.New()})
	assert.NotErrorIs(t, err, errors.New("insufficient credits"))
}

func TestErrProjectionDrift_Is(t *testing.T) {
	accountID := uuid.New()
	err := ErrProjectionDrift{AccountID: accountID, Incremental: 90, Recomputed: 100}

	assert.ErrorIs(t, err, ErrProjectionDrift{})
	assert.ErrorIs(t, err, ErrProjectionDrift{AccountID: accountID})
	assert.NotErrorIs(t, err, ErrProjectionDrift{AccountID: uuid.New()})
	assert.Contains(t, err.Error(), "projection drift")
}
