package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

// BalanceRepository implements the balance.Repository interface for PostgreSQL
type BalanceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBalanceRepository creates a new PostgreSQL balance projection repository
func NewBalanceRepository(logger *slog.Logger, db *persistence.PostgresDB) balance.Repository {
	return &BalanceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so projection updates can be
// atomic with ledger appends
func (r *BalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return &BalanceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get retrieves the balance projection for an account
func (r *BalanceRepository) Get(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error) {
	query := `
		SELECT account_id, balance, lifetime_earned, lifetime_spent, as_of_entry_id, version, updated_at
		FROM account_balances
		WHERE account_id = $1
	`

	b, err := r.scanBalance(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrBalanceNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to get balance projection", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get balance projection: %w", err)
	}

	return b, nil
}

// Init inserts a zero projection row if the account has none yet
func (r *BalanceRepository) Init(ctx context.Context, accountID uuid.UUID) error {
	query := `
		INSERT INTO account_balances (account_id, balance, lifetime_earned, lifetime_spent, as_of_entry_id, version, updated_at)
		VALUES ($1, 0, 0, 0, NULL, 1, NOW())
		ON CONFLICT (account_id) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, query, accountID); err != nil {
		r.logger.Error("Failed to init balance projection", "account_id", accountID.String(), "error", err)
		return fmt.Errorf("failed to init balance projection: %w", err)
	}

	return nil
}

// GetForUpdate obtains a row-level lock on the projection and returns its
// current state. This serializes all balance-affecting work per account and
// must be used within a transaction.
func (r *BalanceRepository) GetForUpdate(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error) {
	query := `
		SELECT account_id, balance, lifetime_earned, lifetime_spent, as_of_entry_id, version, updated_at
		FROM account_balances
		WHERE account_id = $1
		FOR UPDATE
	`

	b, err := r.scanBalance(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrBalanceNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to lock balance projection", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock balance projection: %w", err)
	}

	return b, nil
}

// Update persists the projection using optimistic locking on version.
// Returns ErrConcurrentModification if the row changed since it was read.
func (r *BalanceRepository) Update(ctx context.Context, b *balance.AccountBalance) error {
	query := `
		UPDATE account_balances
		SET balance = $1, lifetime_earned = $2, lifetime_spent = $3, as_of_entry_id = $4, version = $5, updated_at = $6
		WHERE account_id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		b.Balance,
		b.LifetimeEarned,
		b.LifetimeSpent,
		r.asOfEntryID(b),
		b.Version,
		b.UpdatedAt,
		b.AccountID,
		b.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update balance projection", "account_id", b.AccountID.String(), "error", err)
		return fmt.Errorf("failed to update balance projection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return balance.ErrConcurrentModification{AccountID: b.AccountID}
	}

	return nil
}

// Replace overwrites the projection unconditionally. The projection is
// derived state, so Rebuild may discard whatever is there.
func (r *BalanceRepository) Replace(ctx context.Context, b *balance.AccountBalance) error {
	query := `
		INSERT INTO account_balances (account_id, balance, lifetime_earned, lifetime_spent, as_of_entry_id, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO UPDATE
		SET balance = EXCLUDED.balance,
			lifetime_earned = EXCLUDED.lifetime_earned,
			lifetime_spent = EXCLUDED.lifetime_spent,
			as_of_entry_id = EXCLUDED.as_of_entry_id,
			version = account_balances.version + 1,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		b.AccountID,
		b.Balance,
		b.LifetimeEarned,
		b.LifetimeSpent,
		r.asOfEntryID(b),
		b.Version,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to replace balance projection", "account_id", b.AccountID.String(), "error", err)
		return fmt.Errorf("failed to replace balance projection: %w", err)
	}

	return nil
}

// ListAccountIDs returns every account with a projection row
func (r *BalanceRepository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT account_id FROM account_balances ORDER BY account_id`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list projection account ids", "error", err)
		return nil, fmt.Errorf("failed to list projection account ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan projection account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read projection account ids: %w", err)
	}

	return ids, nil
}

// asOfEntryID maps the zero uuid to NULL for accounts with no entries yet
func (r *BalanceRepository) asOfEntryID(b *balance.AccountBalance) *uuid.UUID {
	if b.AsOfEntryID == uuid.Nil {
		return nil
	}
	id := b.AsOfEntryID
	return &id
}

func (r *BalanceRepository) scanBalance(row pgx.Row) (*balance.AccountBalance, error) {
	var b balance.AccountBalance
	var asOf *uuid.UUID
	err := row.Scan(
		&b.AccountID,
		&b.Balance,
		&b.LifetimeEarned,
		&b.LifetimeSpent,
		&asOf,
		&b.Version,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if asOf != nil {
		b.AsOfEntryID = *asOf
	}
	return &b, nil
}
