// Command corpusload imports a crawler export (docs.json) into the
// configured corpus store and publishes a corpus-refresh event so running
// searchers rebuild their index.
//
// Usage:
//
//	go run ./cmd/corpusload [-config configs/development.yaml] [-file docs.json] [-strict] [-force]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	file := flag.String("file", "", "crawler export to import (defaults to corpus.path)")
	strict := flag.Bool("strict", false, "refuse to import when validation reports issues")
	force := flag.Bool("force", false, "import and announce even if the store already holds this content")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := *file
	if path == "" {
		path = cfg.Corpus.Path
	}
	if err := run(ctx, cfg, path, publisher.Options{Strict: *strict, Force: *force}); err != nil {
		slog.Error("corpus import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path string, opts publisher.Options) error {
	pubs, err := corpus.LoadFile(path)
	if err != nil {
		return err
	}
	slog.Info("crawler export loaded", "path", path, "documents", len(pubs))

	store, err := corpus.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening corpus store: %w", err)
	}
	defer store.Close()

	var producer kafka.Publisher
	if cfg.Kafka.Enabled {
		p := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusRefresh)
		defer p.Close()
		producer = p
	}

	report, err := publisher.New(store, producer, cfg.Corpus.Source).Import(ctx, pubs, opts)
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	return nil
}
