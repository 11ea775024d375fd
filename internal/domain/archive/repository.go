package archive

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages transactional archive record persistence in Postgres
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetPending(ctx context.Context, limit int) ([]*Record, error)
	UpdateStatus(ctx context.Context, id int64, status ShipStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	GetByEventID(ctx context.Context, eventID string) (*Record, error)
	WithTx(tx pgx.Tx) Repository
}

// Store is the long-term archive sink (MongoDB). Documents are immutable
// once written; the store is append-and-read only.
type Store interface {
	Insert(ctx context.Context, record *Record) error
	FindByEventID(ctx context.Context, eventID string) (*Record, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Record, error)
}
