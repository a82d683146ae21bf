package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/loan-slip-reconciler/internal/config"
)

// SlipSubmissionProducer publishes slip submissions for asynchronous verification.
// Messages are keyed by contract id so that one contract's slips land on one
// partition and are verified in submission order.
type SlipSubmissionProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSlipSubmissionProducer creates the producer and makes sure the topic exists
func NewSlipSubmissionProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SlipSubmissionProducer, error) {
	if cfg.SlipTopic == "" {
		return nil, fmt.Errorf("kafka slip topic is not configured")
	}

	if err := dialAndEnsureTopic(ctx, cfg.Brokers, cfg.SlipTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure slip topic %s exists: %w", cfg.SlipTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SlipTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &SlipSubmissionProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SlipTopic,
	}, nil
}

// Publish writes value as JSON and waits for the brokers to acknowledge it
func (p *SlipSubmissionProducer) Publish(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal slip submission: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		p.logger.Error("Failed to publish slip submission",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish slip submission to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published slip submission", "topic", p.topic, "key", key, "bytes", len(payload))
	return nil
}

func (p *SlipSubmissionProducer) Close() error {
	p.logger.Info("Closing slip submission producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
