package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
)

// stubTx satisfies pgx.Tx for service tests. Repositories are mocked, so no
// statement ever reaches it.
type stubTx struct{}

func (stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (stubTx) Commit(ctx context.Context) error          { return nil }
func (stubTx) Rollback(ctx context.Context) error        { return nil }
func (stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}
func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                                { return pgx.LargeObjects{} }
func (stubTx) Conn() *pgx.Conn                                               { return nil }

// stubTxRunner hands the callback a stub transaction and reports the
// callback's own error, mirroring how ExecuteTx surfaces rollbacks.
type stubTxRunner struct {
	tx pgx.Tx
}

func (r stubTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(r.tx)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(ledger.Repository)
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *ledger.Entry) (uuid.UUID, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetBySourceEventID(ctx context.Context, sourceEventID string) (*ledger.Entry, error) {
	args := m.Called(ctx, sourceEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) ListForAccount(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) ListForPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, start, end, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) SpentInPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error) {
	args := m.Called(ctx, accountID, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) CountDebitsInPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error) {
	args := m.Called(ctx, accountID, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) UsageBreakdown(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]ledger.UsageBucket, error) {
	args := m.Called(ctx, accountID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.UsageBucket), args.Error(1)
}

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(balance.Repository)
}

func (m *MockBalanceRepository) Get(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.AccountBalance), args.Error(1)
}

func (m *MockBalanceRepository) Init(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockBalanceRepository) GetForUpdate(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.AccountBalance), args.Error(1)
}

func (m *MockBalanceRepository) Update(ctx context.Context, b *balance.AccountBalance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBalanceRepository) Replace(ctx context.Context, b *balance.AccountBalance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBalanceRepository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) WithTx(tx pgx.Tx) subscription.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(subscription.Repository)
}

func (m *MockSubscriptionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
