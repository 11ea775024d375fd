// Package archive implements the transactional outbox feeding the
// billing-event audit archive. A record is written in the same database
// transaction that applies an event, then shipped to the archive store by a
// poller, so the archive never sees an event the ledger did not.
package archive

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
)

// ShipStatus defines archive record shipping states
type ShipStatus string

const (
	ShipStatusPending ShipStatus = "PENDING"
	ShipStatusShipped ShipStatus = "SHIPPED"
	ShipStatusFailed  ShipStatus = "FAILED_TO_SHIP"
)

// Record stores a reconciled billing event for reliable archive shipping
type Record struct {
	ID            int64           `json:"id"`
	EventID       string          `json:"event_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	EventType     string          `json:"event_type"`
	Result        string          `json:"result"` // ReconcileStatus at apply time
	EntryID       *uuid.UUID      `json:"entry_id,omitempty"`
	Payload       json.RawMessage `json:"payload"` // Original envelope, verbatim
	Status        ShipStatus      `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewRecord builds a pending archive record from a reconciled event
func NewRecord(env *billing.EventEnvelope, accountID uuid.UUID, result *billing.ReconcileResult) (*Record, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		EventID:   env.ID,
		AccountID: accountID,
		EventType: env.Type,
		Result:    string(result.Status),
		Payload:   payload,
		Status:    ShipStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if result.EntryID != uuid.Nil {
		entryID := result.EntryID
		rec.EntryID = &entryID
	}
	return rec, nil
}

// GetEnvelope extracts the original event envelope from the payload
func (r *Record) GetEnvelope() (*billing.EventEnvelope, error) {
	var env billing.EventEnvelope
	if err := json.Unmarshal(r.Payload, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (r *Record) IncrementAttempts() {
	r.Attempts++
	now := time.Now().UTC()
	r.LastAttemptAt = &now
}

func (r *Record) MarkAsShipped() {
	r.Status = ShipStatusShipped
	now := time.Now().UTC()
	r.LastAttemptAt = &now
}

func (r *Record) MarkAsFailed() {
	r.Status = ShipStatusFailed
	now := time.Now().UTC()
	r.LastAttemptAt = &now
}

// ErrRecordNotFound indicates missing archive record
type ErrRecordNotFound struct {
	ID int64
}

func (e ErrRecordNotFound) Error() string {
	return "archive record not found: " + strconv.FormatInt(e.ID, 10)
}
