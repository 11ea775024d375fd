package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationTable_AddAndGet(t *testing.T) {
	table := NewReservationTable(time.Minute)
	accountID := uuid.New()

	r, err := table.Add(accountID, 100)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, accountID, r.AccountID)
	assert.Equal(t, int64(100), r.Amount)
	assert.True(t, r.ExpiresAt.After(time.Now().UTC()))

	got, err := table.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestReservationTable_Add_InvalidAmount(t *testing.T) {
	table := NewReservationTable(time.Minute)

	_, err := table.Add(uuid.New(), 0)
	assert.Error(t, err)

	_, err = table.Add(uuid.New(), -5)
	assert.Error(t, err)
}

func TestReservationTable_Get_Expired(t *testing.T) {
	table := NewReservationTable(-time.Second) // Leases are born expired
	r, err := table.Add(uuid.New(), 50)
	require.NoError(t, err)

	got, err := table.Get(r.ID)
	assert.Nil(t, got)
	var notFoundErr ErrReservationNotFound
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, r.ID, notFoundErr.ID)
}

func TestReservationTable_Remove(t *testing.T) {
	table := NewReservationTable(time.Minute)
	r, err := table.Add(uuid.New(), 50)
	require.NoError(t, err)

	assert.True(t, table.Remove(r.ID))
	assert.False(t, table.Remove(r.ID), "second remove should report missing")

	_, err = table.Get(r.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound{})
}

func TestReservationTable_HeldFor(t *testing.T) {
	table := NewReservationTable(time.Minute)
	accountID := uuid.New()
	otherID := uuid.New()

	r1, err := table.Add(accountID, 100)
	require.NoError(t, err)
	_, err = table.Add(accountID, 50)
	require.NoError(t, err)
	_, err = table.Add(otherID, 999)
	require.NoError(t, err)

	assert.Equal(t, int64(150), table.HeldFor(accountID, uuid.Nil))
	assert.Equal(t, int64(50), table.HeldFor(accountID, r1.ID), "excluded lease should not count")
	assert.Equal(t, int64(0), table.HeldFor(uuid.New(), uuid.Nil))
}

func TestReservationTable_HeldFor_IgnoresExpired(t *testing.T) {
	table := NewReservationTable(-time.Second)
	accountID := uuid.New()
	_, err := table.Add(accountID, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(0), table.HeldFor(accountID, uuid.Nil))
}

func TestReservationTable_SweepExpired(t *testing.T) {
	t.Run("DropsOnlyExpiredLeases", func(t *testing.T) {
		table := NewReservationTable(time.Minute)
		live, err := table.Add(uuid.New(), 10)
		require.NoError(t, err)

		expired, err := table.Add(uuid.New(), 20)
		require.NoError(t, err)
		expired.ExpiresAt = time.Now().UTC().Add(-time.Second)

		assert.Equal(t, 1, table.SweepExpired())

		_, err = table.Get(live.ID)
		assert.NoError(t, err)
		_, err = table.Get(expired.ID)
		assert.ErrorIs(t, err, ErrReservationNotFound{})
	})

	t.Run("NothingToSweep", func(t *testing.T) {
		table := NewReservationTable(time.Minute)
		assert.Equal(t, 0, table.SweepExpired())
	})
}

func TestErrReservationNotFound_Is(t *testing.T) {
	id := uuid.New()
	err := ErrReservationNotFound{ID: id}

	assert.ErrorIs(t, err, ErrReservationNotFound{})
	assert.ErrorIs(t, err, ErrReservationNotFound{ID: id})
	assert.NotErrorIs(t, err, ErrReservationNotFound{ID: uuid.New()})
}
