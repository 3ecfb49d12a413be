// Package consumer listens on the corpus-refresh topic and rebuilds the
// index whenever the corpus loader reports new data.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/kafka"
)

// Rebuilder is the part of indexer.Engine the consumer drives.
type Rebuilder interface {
	Rebuild(ctx context.Context) (index.BuildStats, error)
}

// RefreshConsumer wraps a Kafka consumer to drive index rebuilds.
type RefreshConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *RefreshConsumer {
	return &RefreshConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "refresh-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (rc *RefreshConsumer) Start(ctx context.Context) error {
	rc.logger.Info("refresh consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that rebuilds via r for every
// refresh event. Messages that do not decode are logged and dropped.
func HandleMessage(r Rebuilder) kafka.MessageHandler {
	logger := slog.Default().With("component", "refresh-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.RefreshEvent](value)
		if err != nil {
			logger.Error("failed to decode refresh event", "error", err, "key", string(key))
			return nil
		}
		logger.Info("corpus refresh requested",
			"source", event.Source,
			"documents", event.Documents,
			"content_hash", event.ContentHash,
			"requested_at", event.RequestedAt,
		)
		stats, err := r.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuilding after refresh from %s: %w", event.Source, err)
		}
		if event.Documents > 0 && stats.Documents != event.Documents {
			logger.Warn("indexed document count differs from refresh event",
				"expected", event.Documents,
				"indexed", stats.Documents,
			)
		}
		return nil
	}
}
