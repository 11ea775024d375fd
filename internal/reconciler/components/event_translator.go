// Package components holds the building blocks of billing event
// reconciliation: translation, ledger application, subscription lifecycle,
// and archive recording.
package components

import (
	"log/slog"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/domain/plan"
	"github.com/crav-platform/credit-ledger/internal/domain/subscription"
	"github.com/crav-platform/credit-ledger/internal/reconciler/service"
)

// EventTranslatorImpl maps provider events onto ledger entries
type EventTranslatorImpl struct {
	logger *slog.Logger
}

// NewEventTranslator creates a new event translator
func NewEventTranslator(logger *slog.Logger) service.EventTranslator {
	return &EventTranslatorImpl{logger: logger}
}

// Translate returns the ledger entry an event produces, or a nil-entry result
// for status-only events. Returns nil, nil for event types this core does not
// consume. Granted credits are never clawed back by subscription changes.
func (t *EventTranslatorImpl) Translate(env *billing.EventEnvelope, data *billing.EventData) (*service.TranslatedEvent, error) {
	switch env.Type {
	case billing.EventCheckoutCompleted:
		credits := data.Credits
		if credits == 0 && data.PackageID != "" {
			pkg, ok := plan.PackageByID(data.PackageID)
			if !ok {
				return nil, billing.ErrInvalidEvent{EventID: env.ID, Reason: "unknown credit package: " + data.PackageID}
			}
			credits = pkg.Credits
		}
		if credits <= 0 {
			return nil, billing.ErrInvalidEvent{EventID: env.ID, Reason: "purchase event carries no credits"}
		}
		return t.entryEvent(env, data, credits, ledger.KindPurchase, "credit purchase")

	case billing.EventInvoicePaid:
		grant := data.Credits
		if grant == 0 {
			grant = plan.Lookup(data.PlanID).PeriodicCreditGrant
		}
		if grant <= 0 {
			return nil, billing.ErrInvalidEvent{EventID: env.ID, Reason: "invoice event resolves to no credit grant"}
		}
		translated, err := t.entryEvent(env, data, grant, ledger.KindBonus, "periodic credit grant")
		if err != nil {
			return nil, err
		}
		translated.SubscriptionChange = true
		return translated, nil

	case billing.EventChargeRefunded:
		if data.Credits <= 0 {
			return nil, billing.ErrInvalidEvent{EventID: env.ID, Reason: "refund event carries no credits"}
		}
		return t.entryEvent(env, data, -data.Credits, ledger.KindRefund, "charge refunded")

	case billing.EventChargeDisputeCreated:
		if data.Credits <= 0 {
			return nil, billing.ErrInvalidEvent{EventID: env.ID, Reason: "dispute event carries no credits"}
		}
		return t.entryEvent(env, data, -data.Credits, ledger.KindChargeback, "charge disputed")

	case billing.EventSubscriptionUpdated:
		if !subscription.Status(data.Status).IsValid() {
			return nil, billing.ErrInvalidEvent{EventID: env.ID, Reason: "unknown subscription status: " + data.Status}
		}
		return &service.TranslatedEvent{AccountID: data.AccountID, SubscriptionChange: true}, nil

	case billing.EventSubscriptionCanceled:
		return &service.TranslatedEvent{AccountID: data.AccountID, SubscriptionChange: true}, nil

	default:
		t.logger.Debug("Ignoring billing event type", "event_type", env.Type, "event_id", env.ID)
		return nil, nil
	}
}

func (t *EventTranslatorImpl) entryEvent(env *billing.EventEnvelope, data *billing.EventData, amount int64, kind ledger.Kind, description string) (*service.TranslatedEvent, error) {
	entry, err := ledger.NewEntry(data.AccountID, amount, kind, description)
	if err != nil {
		return nil, billing.ErrInvalidEvent{EventID: env.ID, Reason: err.Error()}
	}
	entry.WithSourceEvent(env.ID)

	return &service.TranslatedEvent{
		AccountID: data.AccountID,
		Entry:     entry,
	}, nil
}
