package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DailyUsage is the amount spent on a single day, used by usage reporting
type DailyUsage struct {
	Date   time.Time `json:"date"`
	Amount int64     `json:"amount"`
}

// UsageBucket is spend aggregated over one UTC calendar day and entry kind
type UsageBucket struct {
	Day    time.Time
	Kind   Kind
	Amount int64
}

// Repository manages append-only ledger entry persistence.
// Entries are write-once: no update or delete operation exists.
type Repository interface {
	// Append stores a new entry. If the entry carries a SourceEventID that
	// was already recorded, no row is written and ErrDuplicateSourceEvent
	// (carrying the existing entry id) is returned.
	Append(ctx context.Context, entry *Entry) (uuid.UUID, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetBySourceEventID returns nil, nil when no entry carries the key
	GetBySourceEventID(ctx context.Context, sourceEventID string) (*Entry, error)

	// ListForAccount returns entries ascending by (created_at, id).
	// A zero since returns the full account history.
	ListForAccount(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*Entry, error)

	// ListForPeriod returns entries in [start, end) ordered newest first,
	// paginated for dashboard transaction listings
	ListForPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time, limit, offset int) ([]*Entry, error)

	CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// SpentInPeriod sums the absolute value of negative amounts in [start, end)
	SpentInPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error)

	// CountDebitsInPeriod counts negative-amount entries in [start, end),
	// used for per-period API call limits
	CountDebitsInPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error)

	// UsageBreakdown aggregates spend (negative amounts, absolute value) per
	// UTC calendar day and kind in [start, end), ascending by day. One scan
	// feeds every summary aggregate, so the total, per-kind, and per-day
	// views always describe the same entry set.
	UsageBreakdown(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]UsageBucket, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateSourceEvent indicates the source event was already applied.
// Callers treat it as idempotent success: ExistingID is the entry the
// original delivery produced.
type ErrDuplicateSourceEvent struct {
	SourceEventID string
	ExistingID    uuid.UUID
}

func (e ErrDuplicateSourceEvent) Error() string {
	return "source event already applied: " + e.SourceEventID
}

// Is implements the errors.Is interface for ErrDuplicateSourceEvent
func (e ErrDuplicateSourceEvent) Is(target error) bool {
	t, ok := target.(ErrDuplicateSourceEvent)
	if !ok {
		return false
	}
	// An empty target key matches any duplicate-source-event error
	if t.SourceEventID == "" {
		return true
	}
	return e.SourceEventID == t.SourceEventID
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	ID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
