package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/crav-platform/credit-ledger/internal/config"
)

// BillingEventProducer publishes raw webhook envelopes onto the billing event
// topic, keyed by event id so retried deliveries land on the same partition.
type BillingEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new billing event producer and ensures the topic exists
func NewBillingEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BillingEventProducer, error) {
	if cfg.BillingEventTopic == "" {
		return nil, fmt.Errorf("kafka billing event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for billing event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.BillingEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure billing event topic %s exists: %w", cfg.BillingEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.BillingEventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.BillingEventTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.BillingEventTopic, "count", len(messages))
			}
		},
	}

	return &BillingEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.BillingEventTopic,
	}, nil
}

func (p *BillingEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal billing event value: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish billing event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish billing event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published billing event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *BillingEventProducer) Close() error {
	p.logger.Info("Closing billing event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
