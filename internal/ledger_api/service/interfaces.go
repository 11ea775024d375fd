package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/domain/plan"
)

type correlationIDKey struct{}

// WithCorrelationID stamps the request correlation id onto the context so it
// flows into the ledger entries a request produces
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

// CorrelationIDFromContext returns the stamped correlation id, if any
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Decision is the outcome of a spend authorization
type Decision struct {
	Approved         bool      `json:"approved"`
	EntryID          uuid.UUID `json:"entry_id,omitempty"`
	RemainingBalance int64     `json:"remaining_balance"`
}

// LimitKind selects which per-period plan limit to check
type LimitKind string

const (
	LimitCredits  LimitKind = "credits"
	LimitAPICalls LimitKind = "api_calls"
)

// LimitStatus reports per-period consumption against a plan limit
type LimitStatus struct {
	Allowed bool      `json:"allowed"`
	Kind    LimitKind `json:"kind"`
	Used    int64     `json:"used"`
	Limit   int64     `json:"limit"`
	PlanID  string    `json:"plan_id"`
}

// EntitlementService authorizes spends against the ledger
type EntitlementService interface {
	// Authorize atomically checks the balance and appends a spend entry.
	// Denial returns ErrInsufficientCredits and writes nothing.
	Authorize(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*Decision, error)

	// CheckLimit reports per-period consumption against the account's plan limit
	CheckLimit(ctx context.Context, accountID uuid.UUID, kind LimitKind) (*LimitStatus, error)

	// Reserve places an ephemeral hold on credits, denied if the available
	// balance (net of existing holds) cannot cover it
	Reserve(ctx context.Context, accountID uuid.UUID, amount int64) (*Reservation, error)

	// CommitReservation converts a live lease into an authorized spend
	CommitReservation(ctx context.Context, reservationID uuid.UUID, description string) (*Decision, error)

	// ReleaseReservation drops a lease without spending
	ReleaseReservation(ctx context.Context, reservationID uuid.UUID) error

	// SweepExpiredReservations drops all expired leases, returning the count
	SweepExpiredReservations(ctx context.Context) int
}

// BalanceService maintains the balance projection
type BalanceService interface {
	// GetBalance returns the projection, or the zero projection for accounts
	// with no entries
	GetBalance(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error)

	// Rebuild recomputes the projection from the full ledger. Idempotent: a
	// healthy projection is replaced with an identical one.
	Rebuild(ctx context.Context, accountID uuid.UUID) (*balance.AccountBalance, error)

	// Verify compares the incremental projection against a full fold and
	// returns ErrProjectionDrift on mismatch. Drift is never auto-corrected.
	Verify(ctx context.Context, accountID uuid.UUID) error

	// VerifyAll runs Verify over every projected account, returning the
	// accounts found drifted
	VerifyAll(ctx context.Context) ([]uuid.UUID, error)
}

// UsageSummary aggregates an account's spend over a period. ByKind and ByDay
// each sum to Total.
type UsageSummary struct {
	AccountID   uuid.UUID             `json:"account_id"`
	PeriodStart time.Time             `json:"period_start"`
	PeriodEnd   time.Time             `json:"period_end"`
	Total       int64                 `json:"total"`
	ByKind      map[ledger.Kind]int64 `json:"by_kind"`
	ByDay       []ledger.DailyUsage   `json:"by_day"`
}

// LimitsInfo is the dashboard limits block
type LimitsInfo struct {
	Plan               plan.Plan `json:"plan"`
	CreditLimit        int64     `json:"credit_limit"`
	APICallLimit       int64     `json:"api_call_limit"`
	CreditsUsed        int64     `json:"credits_used"`
	CreditsUsedPercent float64   `json:"credits_used_percent"`
}

// UsageService answers reporting queries from the ledger
type UsageService interface {
	UsageSummary(ctx context.Context, accountID uuid.UUID, periodStart, periodEnd time.Time) (*UsageSummary, error)

	// ListTransactions returns paginated entries in [start, end), newest
	// first, with the total entry count for the account
	ListTransactions(ctx context.Context, accountID uuid.UUID, start, end time.Time, page, perPage int) ([]*ledger.Entry, int64, error)

	// GetTransaction returns one entry by id, or ledger.ErrEntryNotFound
	GetTransaction(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error)

	// Limits reports the account's plan limits and current-period consumption
	Limits(ctx context.Context, accountID uuid.UUID) (*LimitsInfo, error)
}

// WebhookService ingests raw billing-provider events
type WebhookService interface {
	// Ingest validates the envelope and publishes the raw event for the
	// reconciler. Returns the event id for the 202 response.
	Ingest(ctx context.Context, payload []byte) (string, error)
}
