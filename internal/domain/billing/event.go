// Package billing defines the provider-agnostic webhook event envelope the
// reconciler consumes and the result it reports. Providers deliver events
// at-least-once; the stable event id is the sole deduplication key.
package billing

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types this core consumes. Anything else is acknowledged and ignored.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventInvoicePaid          = "invoice.paid"
	EventChargeRefunded       = "charge.refunded"
	EventChargeDisputeCreated = "charge.dispute.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
)

// EventEnvelope is the opaque provider payload: a stable id, a type used to
// select the mapping, and provider-specific data
type EventEnvelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"received_at,omitempty"`
}

// EventData is the subset of provider event data this core reads
type EventData struct {
	AccountID          uuid.UUID `json:"account_id"`
	Credits            int64     `json:"credits,omitempty"`
	PackageID          string    `json:"package_id,omitempty"`
	PlanID             string    `json:"plan_id,omitempty"`
	Status             string    `json:"status,omitempty"`
	CurrentPeriodStart time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end,omitempty"`
	Reason             string    `json:"reason,omitempty"`
}

// ParseEnvelope decodes and minimally validates a raw webhook payload
func ParseEnvelope(raw []byte) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrInvalidEvent{Reason: "malformed event payload: " + err.Error()}
	}
	if env.ID == "" {
		return nil, ErrInvalidEvent{Reason: "event id is required"}
	}
	if env.Type == "" {
		return nil, ErrInvalidEvent{Reason: "event type is required", EventID: env.ID}
	}
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = time.Now().UTC()
	}
	return &env, nil
}

// DecodeData extracts the typed data this core consumes from the envelope
func (e *EventEnvelope) DecodeData() (*EventData, error) {
	var data EventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, ErrInvalidEvent{Reason: "malformed event data: " + err.Error(), EventID: e.ID}
	}
	if data.AccountID == uuid.Nil {
		return nil, ErrInvalidEvent{Reason: "event data missing account id", EventID: e.ID}
	}
	return &data, nil
}

// ReconcileStatus is the terminal state of handling one event
type ReconcileStatus string

const (
	ReconcileApplied   ReconcileStatus = "applied"   // Translated into exactly one ledger/subscription change
	ReconcileDuplicate ReconcileStatus = "duplicate" // Source event already applied, no re-append
	ReconcileRejected  ReconcileStatus = "rejected"  // Schema/content invalid, not retried by this core
	ReconcileIgnored   ReconcileStatus = "ignored"   // Valid but not a type this core consumes
)

// ReconcileResult reports what handling one event did
type ReconcileResult struct {
	Status  ReconcileStatus `json:"status"`
	EventID string          `json:"event_id"`
	EntryID uuid.UUID       `json:"entry_id,omitempty"` // Ledger entry created (or found, for duplicates)
	Reason  string          `json:"reason,omitempty"`
}

// ErrInvalidEvent indicates a malformed or unverifiable webhook event.
// Rejected events are logged, never retried by this core.
type ErrInvalidEvent struct {
	EventID string
	Reason  string
}

func (e ErrInvalidEvent) Error() string {
	if e.EventID == "" {
		return "invalid billing event: " + e.Reason
	}
	return "invalid billing event " + e.EventID + ": " + e.Reason
}

// Is implements the errors.Is interface for ErrInvalidEvent
func (e ErrInvalidEvent) Is(target error) bool {
	_, ok := target.(ErrInvalidEvent)
	return ok
}
