// Package consumer adapts Kafka deliveries into reconciliation calls.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
	"github.com/crav-platform/credit-ledger/internal/platform/messaging/producers"
	"github.com/crav-platform/credit-ledger/internal/reconciler/service"
)

// BillingEventHandler handles incoming billing event messages from Kafka
type BillingEventHandler struct {
	reconcileService service.ReconcileService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

// NewBillingEventHandler creates a new handler
func NewBillingEventHandler(
	logger *slog.Logger,
	reconcileService service.ReconcileService,
	producer producers.DeadLetterPublisher,
) *BillingEventHandler {
	return &BillingEventHandler{
		reconcileService: reconcileService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage processes Kafka messages. Returning nil commits the offset;
// only infrastructure failures return an error so redelivery can retry them.
func (h *BillingEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	env, err := billing.ParseEnvelope(value)
	if err != nil {
		parseErrorMsg := "Failed to parse billing event envelope from Kafka message"
		h.logger.Error(parseErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, string(key), value, fmt.Sprintf("%s: %s", parseErrorMsg, err.Error()), err)
	}

	logger := h.logger.With("event_id", env.ID, "event_type", env.Type)
	logger.Info("Received billing event for reconciliation")

	result, err := h.reconcileService.HandleEvent(ctx, env)
	if err != nil {
		logger.Error("Failed to reconcile billing event", "error", err)
		return fmt.Errorf("reconciling billing event %s failed: %w", env.ID, err)
	}

	if result.Status == billing.ReconcileRejected {
		logger.Error("Billing event rejected", "reason", result.Reason)
		return h.deadLetter(ctx, env.ID, value, result.Reason, errors.New(result.Reason))
	}

	logger.Info("Billing event reconciled", "status", result.Status)
	return nil // Success, commit offset
}

// deadLetter routes an unprocessable message to the DLQ. If the DLQ is
// unavailable the original error propagates so the offset stays uncommitted.
func (h *BillingEventHandler) deadLetter(ctx context.Context, key string, value []byte, reason string, original error) error {
	if h.producer == nil {
		return fmt.Errorf("billing event unprocessable and DLQ disabled: %w", original)
	}

	if dlqErr := h.producer.PublishToDLQ(ctx, key, value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", original,
			"message_key", key,
		)
		return fmt.Errorf("billing event unprocessable and DLQ publish failed: %w", original)
	}

	h.logger.Info("Published unprocessable billing event to DLQ", "message_key", key, "reason", reason)
	return nil // Message handled, commit offset
}
