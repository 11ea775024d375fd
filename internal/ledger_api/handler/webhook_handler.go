package handler

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/service"
)

// maxWebhookBodyBytes bounds provider payload size
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler handles billing-provider webhook deliveries
type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// Receive accepts a raw billing event and queues it for reconciliation.
// Returns 202: the event is applied asynchronously, and providers retry on
// anything else.
func (h *WebhookHandler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		RespondBadRequest(c, "Failed to read request body")
		return
	}

	eventID, err := h.webhookService.Ingest(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidEvent{}) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to ingest billing event", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"event_id": eventID,
		"status":   "received",
	})
}
