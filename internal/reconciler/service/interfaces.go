package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
)

// ReconcileService translates billing events into ledger and subscription
// changes, exactly once per event id
type ReconcileService interface {
	HandleEvent(ctx context.Context, env *billing.EventEnvelope) (*billing.ReconcileResult, error)
}

// EventTranslator maps a validated billing event onto the ledger entry it
// produces. A nil entry means the event changes no balances (status-only or
// ignored types).
type EventTranslator interface {
	Translate(env *billing.EventEnvelope, data *billing.EventData) (*TranslatedEvent, error)
}

// LedgerApplier appends an entry and updates the balance projection within
// the caller's transaction. Duplicate source events surface as
// ledger.ErrDuplicateSourceEvent.
type LedgerApplier interface {
	Apply(ctx context.Context, tx pgx.Tx, translated *TranslatedEvent) (uuid.UUID, error)
}

// SubscriptionManager applies subscription lifecycle changes within the
// caller's transaction
type SubscriptionManager interface {
	Apply(ctx context.Context, tx pgx.Tx, env *billing.EventEnvelope, data *billing.EventData) error
}

// ArchiveManager records the terminal result of an event in the archive
// outbox. With a transaction, the record commits atomically with the ledger
// change it describes.
type ArchiveManager interface {
	Record(ctx context.Context, tx pgx.Tx, env *billing.EventEnvelope, data *billing.EventData, result *billing.ReconcileResult) error
}
