package subscription

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidStatus   = errors.New("invalid subscription status")
	ErrAlreadyCanceled = errors.New("subscription is already canceled")
	ErrNotCanceled     = errors.New("subscription is not canceled")
)

// Status is the subscription lifecycle state. Transitions are driven only by
// reconciler-validated billing events or explicit cancel/reactivate commands.
type Status string

const (
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// IsValid reports whether s is a known subscription status
func (s Status) IsValid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

// Subscription links an account to a plan. Canceled subscriptions are
// retained for audit, never deleted.
type Subscription struct {
	AccountID          uuid.UUID  `json:"account_id"`
	PlanID             string     `json:"plan_id"`
	Status             Status     `json:"status"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewSubscription creates a subscription on first successful payment
func NewSubscription(accountID uuid.UUID, planID string, status Status, periodStart, periodEnd time.Time) (*Subscription, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	now := time.Now().UTC()
	return &Subscription{
		AccountID:          accountID,
		PlanID:             planID,
		Status:             status,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsActive reports whether the subscription currently grants entitlements
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// ApplyStatus records a provider-driven status change
func (s *Subscription) ApplyStatus(status Status) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	s.Status = status
	if status == StatusCanceled {
		now := time.Now().UTC()
		s.CanceledAt = &now
	} else {
		s.CanceledAt = nil
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel marks the subscription canceled. Existing granted credits are left
// untouched; there is no retroactive clawback on cancellation.
func (s *Subscription) Cancel(atPeriodEnd bool) error {
	if s.Status == StatusCanceled {
		return ErrAlreadyCanceled
	}
	if atPeriodEnd {
		s.CancelAtPeriodEnd = true
		s.UpdatedAt = time.Now().UTC()
		return nil
	}
	return s.ApplyStatus(StatusCanceled)
}

// Reactivate clears a pending or effective cancellation
func (s *Subscription) Reactivate() error {
	if s.Status != StatusCanceled && !s.CancelAtPeriodEnd {
		return ErrNotCanceled
	}
	s.CancelAtPeriodEnd = false
	return s.ApplyStatus(StatusActive)
}

// RenewPeriod advances the billing period, e.g. on invoice.paid
func (s *Subscription) RenewPeriod(start, end time.Time) {
	s.CurrentPeriodStart = start
	s.CurrentPeriodEnd = end
	s.UpdatedAt = time.Now().UTC()
}
