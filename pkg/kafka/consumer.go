package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/resilience"
)

// MessageHandler is invoked for each fetched message.
type MessageHandler func(ctx context.Context, key, value []byte) error

// messageReader is the part of *kafka.Reader the fetch loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader  messageReader
	logger  *slog.Logger
	handler MessageHandler
	backoff resilience.RetryConfig
}

// fetchBackoff spaces out fetch attempts while the brokers are unreachable.
var fetchBackoff = resilience.RetryConfig{
	InitialDelay: 250 * time.Millisecond,
	MaxDelay:     30 * time.Second,
}

// NewConsumer creates a Consumer for topic in cfg.ConsumerGroup, so the
// group's members split the partitions between them. Only messages produced
// after the group first joins are delivered.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", cfg.ConsumerGroup),
		handler: handler,
		backoff: fetchBackoff,
	}
}

// InstanceGroup derives a consumer group owned by this process alone. Use
// it for broadcast topics, where every instance must see every message.
func InstanceGroup(base, purpose string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s-%s-%s", base, purpose, host, uuid.NewString()[:8])
}

// Start runs the fetch loop until ctx is cancelled. A message whose handler
// fails is logged and committed anyway so one bad message cannot stall the
// partition. Consecutive fetch failures back off exponentially.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	failures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping")
				return nil
			}
			failures++
			delay := resilience.Backoff(failures, c.backoff)
			c.logger.Error("failed to fetch message", "error", err, "consecutive_failures", failures, "retry_in", delay)
			if resilience.Sleep(ctx, delay) != nil {
				c.logger.Info("consumer stopping")
				return nil
			}
			continue
		}
		failures = 0
		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
		log.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			log.Error("failed to process message", "error", err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error("failed to commit message", "error", err)
		}
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
