// Package postgres provides PostgreSQL implementations of the domain
// repositories. The ledger table is append-only: the repository exposes no
// update or delete, and duplicate source events are absorbed by a unique
// index rather than application-level locking.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing the append to be
// atomic with the balance projection update.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append stores a new ledger entry. Duplicate source events hit the partial
// unique index on source_event_id and insert no row; the existing entry id is
// looked up and returned inside ErrDuplicateSourceEvent so retried webhook
// deliveries resolve to the original application.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) (uuid.UUID, error) {
	query := `
		INSERT INTO ledger_entries (id, account_id, amount, kind, source_event_id, description, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_event_id) WHERE source_event_id IS NOT NULL DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Amount,
		entry.Kind,
		entry.SourceEventID,
		entry.Description,
		entry.CorrelationID,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append ledger entry", "entry_id", entry.ID.String(), "error", err)
		return uuid.Nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if result.RowsAffected() == 0 && entry.SourceEventID != nil {
		existing, err := r.GetBySourceEventID(ctx, *entry.SourceEventID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to resolve duplicate source event %s: %w", *entry.SourceEventID, err)
		}
		if existing == nil {
			// The conflicting row vanished between insert and lookup; the
			// entry table is append-only so this should not happen.
			return uuid.Nil, fmt.Errorf("duplicate source event %s but no existing entry found", *entry.SourceEventID)
		}
		return existing.ID, ledger.ErrDuplicateSourceEvent{
			SourceEventID: *entry.SourceEventID,
			ExistingID:    existing.ID,
		}
	}

	return entry.ID, nil
}

// GetByID retrieves a ledger entry by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT id, account_id, amount, kind, source_event_id, description, correlation_id, created_at
		FROM ledger_entries
		WHERE id = $1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{ID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// GetBySourceEventID retrieves the entry produced by an external event.
// Returns nil, nil when the event was never applied.
func (r *LedgerRepository) GetBySourceEventID(ctx context.Context, sourceEventID string) (*ledger.Entry, error) {
	if sourceEventID == "" {
		return nil, errors.New("source event id cannot be empty")
	}

	query := `
		SELECT id, account_id, amount, kind, source_event_id, description, correlation_id, created_at
		FROM ledger_entries
		WHERE source_event_id = $1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, sourceEventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry by source event", "source_event_id", sourceEventID, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry by source event: %w", err)
	}

	return entry, nil
}

// ListForAccount returns an account's entries ascending by creation time with
// a stable tie-break on entry id. This is the fold order for rebuilds.
func (r *LedgerRepository) ListForAccount(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, amount, kind, source_event_id, description, correlation_id, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND created_at >= $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, accountID, since)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// ListForPeriod returns paginated entries in [start, end), newest first,
// for dashboard transaction listings
func (r *LedgerRepository) ListForPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, amount, kind, source_event_id, description, correlation_id, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.querier.Query(ctx, query, accountID, start, end, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries for period", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries for period: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// CountForAccount counts the total number of ledger entries for an account
func (r *LedgerRepository) CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// SpentInPeriod sums the absolute value of negative amounts in [start, end)
func (r *LedgerRepository) SpentInPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(-amount), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND amount < 0 AND created_at >= $2 AND created_at < $3
	`

	var spent int64
	if err := r.querier.QueryRow(ctx, query, accountID, start, end).Scan(&spent); err != nil {
		r.logger.Error("Failed to sum spend for period", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum spend for period: %w", err)
	}

	return spent, nil
}

// CountDebitsInPeriod counts negative-amount entries in [start, end)
func (r *LedgerRepository) CountDebitsInPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1 AND amount < 0 AND created_at >= $2 AND created_at < $3
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID, start, end).Scan(&count); err != nil {
		r.logger.Error("Failed to count debit entries for period", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count debit entries for period: %w", err)
	}

	return count, nil
}

// UsageBreakdown aggregates spend per UTC calendar day and kind in
// [start, end), ascending by day. Days are bucketed in UTC regardless of the
// session timezone so summaries match across deployments.
func (r *LedgerRepository) UsageBreakdown(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]ledger.UsageBucket, error) {
	query := `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, kind, SUM(-amount)
		FROM ledger_entries
		WHERE account_id = $1 AND amount < 0 AND created_at >= $2 AND created_at < $3
		GROUP BY day, kind
		ORDER BY day ASC, kind ASC
	`

	rows, err := r.querier.Query(ctx, query, accountID, start, end)
	if err != nil {
		r.logger.Error("Failed to aggregate usage breakdown", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to aggregate usage breakdown: %w", err)
	}
	defer rows.Close()

	var buckets []ledger.UsageBucket
	for rows.Next() {
		var bucket ledger.UsageBucket
		if err := rows.Scan(&bucket.Day, &bucket.Kind, &bucket.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan usage breakdown row: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage breakdown rows: %w", err)
	}

	return buckets, nil
}

func (r *LedgerRepository) scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Amount,
		&entry.Kind,
		&entry.SourceEventID,
		&entry.Description,
		&entry.CorrelationID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *LedgerRepository) collectEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Amount,
			&entry.Kind,
			&entry.SourceEventID,
			&entry.Description,
			&entry.CorrelationID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}
	return entries, nil
}
