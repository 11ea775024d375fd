package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/domain/plan"
	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
)

// UsageServiceImpl implements the UsageService interface
type UsageServiceImpl struct {
	ledgerRepo ledger.Repository
	subRepo    subscription.Repository
	logger     *slog.Logger
}

// NewUsageService creates a new usage reporting service
func NewUsageService(logger *slog.Logger, ledgerRepo ledger.Repository, subRepo subscription.Repository) UsageService {
	return &UsageServiceImpl{
		ledgerRepo: ledgerRepo,
		subRepo:    subRepo,
		logger:     logger,
	}
}

// UsageSummary aggregates spend over [periodStart, periodEnd). Total, ByKind,
// and ByDay are all derived from one repository scan, so a concurrent append
// cannot land between aggregates and make them disagree: ByKind and ByDay
// each sum to Total.
func (s *UsageServiceImpl) UsageSummary(ctx context.Context, accountID uuid.UUID, periodStart, periodEnd time.Time) (*UsageSummary, error) {
	buckets, err := s.ledgerRepo.UsageBreakdown(ctx, accountID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	var total int64
	byKind := make(map[ledger.Kind]int64)
	var byDay []ledger.DailyUsage
	for _, bucket := range buckets {
		total += bucket.Amount
		byKind[bucket.Kind] += bucket.Amount
		// Buckets arrive ordered by day, so consecutive kinds of the same
		// day collapse into one entry
		if n := len(byDay); n > 0 && byDay[n-1].Date.Equal(bucket.Day) {
			byDay[n-1].Amount += bucket.Amount
		} else {
			byDay = append(byDay, ledger.DailyUsage{Date: bucket.Day, Amount: bucket.Amount})
		}
	}

	return &UsageSummary{
		AccountID:   accountID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Total:       total,
		ByKind:      byKind,
		ByDay:       byDay,
	}, nil
}

// GetTransaction returns one ledger entry for the transaction detail view
func (s *UsageServiceImpl) GetTransaction(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	return s.ledgerRepo.GetByID(ctx, entryID)
}

// ListTransactions returns paginated entries in [start, end), newest first
func (s *UsageServiceImpl) ListTransactions(ctx context.Context, accountID uuid.UUID, start, end time.Time, page, perPage int) ([]*ledger.Entry, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.ListForPeriod(ctx, accountID, start, end, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountForAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Limits reports the account's plan limits and current-period consumption
func (s *UsageServiceImpl) Limits(ctx context.Context, accountID uuid.UUID) (*LimitsInfo, error) {
	now := time.Now().UTC()
	p := plan.Lookup(plan.DefaultPlanID)
	start, end := now.AddDate(0, 0, -30), now

	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err != nil && !errors.Is(err, subscription.ErrSubscriptionNotFound{}) {
		return nil, err
	}
	if err == nil && sub.IsActive() && now.Before(sub.CurrentPeriodEnd) {
		p = plan.Lookup(sub.PlanID)
		start, end = sub.CurrentPeriodStart, sub.CurrentPeriodEnd
	}

	used, err := s.ledgerRepo.SpentInPeriod(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}

	percent := 0.0
	if p.CreditLimit > 0 {
		percent = float64(used) / float64(p.CreditLimit) * 100
	}

	return &LimitsInfo{
		Plan:               p,
		CreditLimit:        p.CreditLimit,
		APICallLimit:       p.APICallLimit,
		CreditsUsed:        used,
		CreditsUsedPercent: percent,
	}, nil
}
