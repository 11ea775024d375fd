package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/archive"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

// ArchiveRepository implements the archive.Repository interface for PostgreSQL
type ArchiveRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewArchiveRepository creates a new PostgreSQL archive outbox repository
func NewArchiveRepository(logger *slog.Logger, db *persistence.PostgresDB) archive.Repository {
	return &ArchiveRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. This ensures the archive
// record is created atomically with the ledger append it describes.
func (r *ArchiveRepository) WithTx(tx pgx.Tx) archive.Repository {
	return &ArchiveRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new archive record in pending status.
// The record will be picked up by the archive poller for shipping.
func (r *ArchiveRepository) Create(ctx context.Context, record *archive.Record) error {
	query := `
		INSERT INTO event_archive_outbox (event_id, account_id, event_type, result, entry_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		record.EventID,
		record.AccountID,
		record.EventType,
		record.Result,
		record.EntryID,
		record.Payload,
		record.Status,
		record.Attempts,
		record.CreatedAt,
	).Scan(&record.ID)

	if err != nil {
		r.logger.Error("Failed to create archive record",
			"event_id", record.EventID,
			"error", err,
		)
		return fmt.Errorf("failed to create archive record: %w", err)
	}

	return nil
}

// GetPending retrieves a batch of pending archive records ordered by creation
// time. This is used by the archive poller to ship records in FIFO order.
func (r *ArchiveRepository) GetPending(ctx context.Context, limit int) ([]*archive.Record, error) {
	query := `
		SELECT id, event_id, account_id, event_type, result, entry_id, payload, status, attempts, created_at, last_attempt_at
		FROM event_archive_outbox
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, archive.ShipStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending archive records", "error", err)
		return nil, fmt.Errorf("failed to get pending archive records: %w", err)
	}
	defer rows.Close()

	var records []*archive.Record
	for rows.Next() {
		var record archive.Record
		err := rows.Scan(
			&record.ID,
			&record.EventID,
			&record.AccountID,
			&record.EventType,
			&record.Result,
			&record.EntryID,
			&record.Payload,
			&record.Status,
			&record.Attempts,
			&record.CreatedAt,
			&record.LastAttemptAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archive record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive records: %w", err)
	}

	return records, nil
}

// UpdateStatus sets the shipping status of an archive record
func (r *ArchiveRepository) UpdateStatus(ctx context.Context, id int64, status archive.ShipStatus) error {
	query := `
		UPDATE event_archive_outbox
		SET status = $1, last_attempt_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update archive record status", "id", id, "error", err)
		return fmt.Errorf("failed to update archive record status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return archive.ErrRecordNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts bumps the attempt counter after a failed shipping attempt
func (r *ArchiveRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE event_archive_outbox
		SET attempts = attempts + 1, last_attempt_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to increment archive record attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment archive record attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return archive.ErrRecordNotFound{ID: id}
	}

	return nil
}

// GetByEventID retrieves an archive record by its billing event id
func (r *ArchiveRepository) GetByEventID(ctx context.Context, eventID string) (*archive.Record, error) {
	query := `
		SELECT id, event_id, account_id, event_type, result, entry_id, payload, status, attempts, created_at, last_attempt_at
		FROM event_archive_outbox
		WHERE event_id = $1
	`

	var record archive.Record
	err := r.querier.QueryRow(ctx, query, eventID).Scan(
		&record.ID,
		&record.EventID,
		&record.AccountID,
		&record.EventType,
		&record.Result,
		&record.EntryID,
		&record.Payload,
		&record.Status,
		&record.Attempts,
		&record.CreatedAt,
		&record.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get archive record by event id", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("failed to get archive record by event id: %w", err)
	}

	return &record, nil
}
