package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/resilience"
)

// Store is a source of the ordered publication collection. List must return
// publications in a stable order so document ids do not shift between
// rebuilds of an unchanged corpus.
type Store interface {
	List(ctx context.Context) ([]Publication, error)
	Replace(ctx context.Context, pubs []Publication) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the Store selected by cfg.Corpus.Source. Connecting to a
// database is retried with backoff.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	logger := slog.Default().With("component", "corpus")
	switch cfg.Corpus.Source {
	case config.SourceFile:
		logger.Info("using file corpus", "path", cfg.Corpus.Path)
		return NewFileStore(cfg.Corpus.Path), nil
	case config.SourceSQLite:
		logger.Info("using sqlite corpus", "path", cfg.SQLite.Path)
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case config.SourcePostgres:
		var client *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{
			MaxAttempts:  cfg.Indexer.LoadAttempts,
			InitialDelay: 500 * time.Millisecond,
		}, func() error {
			c, err := postgres.New(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			client = c
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrCorpusUnavailable, err)
		}
		logger.Info("using postgres corpus", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return NewPostgresStore(ctx, client)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedSource, cfg.Corpus.Source)
	}
}

func encodeExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("encoding extra fields: %w", err)
	}
	return string(data), nil
}

func decodeExtra(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("decoding extra fields: %w", err)
	}
	if len(extra) == 0 {
		return nil, nil
	}
	return extra, nil
}
