package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/loan-slip-reconciler/internal/config"
)

// MessageHandler processes one message. A nil return commits the offset.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ExhaustedHandler takes over a message whose handler failed on every attempt, for
// example by dead-lettering it. A nil return commits the offset; an error keeps the
// message in place and delivery starts over.
type ExhaustedHandler func(ctx context.Context, key []byte, value []byte, cause error) error

// Consumer delivers messages of one topic to a handler
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler, onExhausted ExhaustedHandler) error
	Close() error
}

// MessageReader is the part of kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultHandlerAttempts = 5
	defaultRetryBackoff    = 500 * time.Millisecond
	defaultRedeliveryPause = 10 * time.Second
)

// KafkaConsumer reads slip submissions as part of a consumer group. A failing
// handler is retried with exponential backoff, then the message goes to the
// exhausted handler. An offset is only committed once the message was handled or
// taken over, so the group never moves past a message that is still unaccounted for.
type KafkaConsumer struct {
	reader          MessageReader
	topic           string
	groupID         string
	handlerAttempts int
	retryBackoff    time.Duration
	redeliveryPause time.Duration
	logger          *slog.Logger
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}

	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.SlipTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
		topic:           cfg.SlipTopic,
		groupID:         cfg.ConsumerGroup,
		handlerAttempts: defaultHandlerAttempts,
		retryBackoff:    defaultRetryBackoff,
		redeliveryPause: defaultRedeliveryPause,
		logger:          logger,
	}
}

// Subscribe starts the fetch loop in the background; it stops when ctx is cancelled.
// onExhausted may be nil, in which case a failing message is redelivered until it
// succeeds.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler, onExhausted ExhaustedHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)
	go c.run(ctx, handler, onExhausted)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler, onExhausted ExhaustedHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
			if !c.wait(ctx, time.Second) {
				return
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		for !c.deliver(ctx, msg, handler, onExhausted) {
			if !c.wait(ctx, c.redeliveryPause) {
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// deliver reports whether the message was handled or taken over and may be committed
func (c *KafkaConsumer) deliver(ctx context.Context, msg kafka.Message, handler MessageHandler, onExhausted ExhaustedHandler) bool {
	err := c.handle(ctx, msg, handler)
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	if onExhausted != nil {
		exhaustedErr := onExhausted(ctx, msg.Key, msg.Value, err)
		if exhaustedErr == nil {
			c.logger.Warn("Message handed off after repeated failures",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return true
		}
		err = exhaustedErr
	}

	c.logger.Error("Message could not be handled, redelivering",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"pause", c.redeliveryPause.String(),
		"error", err,
	)
	return false
}

// handle runs the handler up to handlerAttempts times and returns the last error
func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) error {
	backoff := c.retryBackoff
	var err error
	for attempt := 1; attempt <= c.handlerAttempts; attempt++ {
		if err = handler(ctx, msg.Key, msg.Value); err == nil {
			return nil
		}

		c.logger.Error("Failed to process message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)
		if attempt == c.handlerAttempts || !c.wait(ctx, backoff) {
			break
		}
		backoff *= 2
	}
	return err
}

func (c *KafkaConsumer) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
