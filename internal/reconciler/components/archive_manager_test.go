package components

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crav-platform/credit-ledger/internal/domain/archive"
	"github.com/crav-platform/credit-ledger/internal/domain/billing"
)

func TestArchiveManager_Record(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()
	env := &billing.EventEnvelope{
		ID:   "evt_arch",
		Type: billing.EventCheckoutCompleted,
		Data: json.RawMessage(`{"account_id":"` + accountID.String() + `","credits":500}`),
	}
	data := &billing.EventData{AccountID: accountID, Credits: 500}
	result := &billing.ReconcileResult{Status: billing.ReconcileApplied, EventID: env.ID, EntryID: uuid.New()}

	t.Run("CreatesRecord", func(t *testing.T) {
		mockArchive := new(MockArchiveRepository)
		manager := NewArchiveManager(mockArchive, slog.Default())

		mockArchive.On("GetByEventID", ctx, env.ID).Return(nil, nil).Once()
		mockArchive.On("Create", ctx, mock.MatchedBy(func(rec *archive.Record) bool {
			return rec.EventID == env.ID && rec.AccountID == accountID &&
				rec.Result == string(billing.ReconcileApplied) && rec.Status == archive.ShipStatusPending
		})).Return(nil).Once()

		// nil tx: the duplicate path records outside a transaction
		require.NoError(t, manager.Record(ctx, nil, env, data, result))
		mockArchive.AssertExpectations(t)
		mockArchive.AssertNotCalled(t, "WithTx", mock.Anything)
	})

	t.Run("ExistingRecordIsNoOp", func(t *testing.T) {
		mockArchive := new(MockArchiveRepository)
		manager := NewArchiveManager(mockArchive, slog.Default())

		mockArchive.On("GetByEventID", ctx, env.ID).Return(&archive.Record{ID: 1, EventID: env.ID}, nil).Once()

		require.NoError(t, manager.Record(ctx, nil, env, data, result))
		mockArchive.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
