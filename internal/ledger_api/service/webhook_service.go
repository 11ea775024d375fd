package service

import (
	"context"
	"log/slog"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
	"github.com/crav-platform/credit-ledger/internal/platform/messaging/producers"
)

// WebhookServiceImpl implements the WebhookService interface. It validates
// only the envelope; event content is the reconciler's concern.
type WebhookServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewWebhookService creates a new webhook ingestion service
func NewWebhookService(logger *slog.Logger, producer producers.MessagePublisher) WebhookService {
	return &WebhookServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// Ingest validates the envelope and publishes the raw event keyed by event id
// so provider retries land on the same partition and dedup in order
func (s *WebhookServiceImpl) Ingest(ctx context.Context, payload []byte) (string, error) {
	env, err := billing.ParseEnvelope(payload)
	if err != nil {
		return "", err
	}

	if err := s.producer.Publish(ctx, env.ID, env); err != nil {
		s.logger.Error("Failed to publish billing event",
			"event_id", env.ID,
			"event_type", env.Type,
			"error", err,
		)
		return "", err
	}

	s.logger.Info("Ingested billing event",
		"event_id", env.ID,
		"event_type", env.Type,
	)
	return env.ID, nil
}
