// Command search ranks publication titles against a query from the
// terminal. With query arguments it prints one result list and exits;
// without them it reads one query per line from stdin.
//
// Usage:
//
//	go run ./cmd/search [-config configs/development.yaml] [-file docs.json] [-n 20] deep learning
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	file := flag.String("file", "", "crawler export to search instead of the configured store")
	limit := flag.Int("n", 20, "number of results to show")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Keep stdout for results.
	slog.SetDefault(logger.New(os.Stderr, "warn", "text"))

	ctx := context.Background()
	pubs, err := loadCorpus(ctx, cfg, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading corpus: %v\n", err)
		os.Exit(1)
	}
	engine := indexer.NewEngine(nil, cfg.Indexer, nil)
	if _, err := engine.Load(ctx, pubs); err != nil {
		fmt.Fprintf(os.Stderr, "building index: %v\n", err)
		os.Exit(1)
	}
	exec := executor.New(engine)

	if flag.NArg() > 0 {
		if err := query(ctx, os.Stdout, exec, strings.Join(flag.Args(), " "), *limit); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	st := engine.Stats()
	fmt.Fprintf(os.Stderr, "%d publications, %d terms indexed. Enter a query per line.\n", st.Documents, st.Terms)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := query(ctx, os.Stdout, exec, scanner.Text(), *limit); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func loadCorpus(ctx context.Context, cfg *config.Config, file string) ([]corpus.Publication, error) {
	if file != "" {
		return corpus.LoadFile(file)
	}
	store, err := corpus.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(ctx)
}

func query(ctx context.Context, w io.Writer, exec *executor.Executor, q string, limit int) error {
	plan := parser.Parse(q)
	if plan.Empty() {
		return nil
	}
	res, err := exec.Execute(ctx, plan, limit)
	if err != nil {
		return err
	}
	if res.TotalHits == 0 {
		fmt.Fprintf(w, "no publications match %q\n", q)
		return nil
	}
	for _, r := range res.Results {
		fmt.Fprintf(w, "%s (%s)\t%.4f\t%s\n", r.Title, corpus.DisplayYear(r.Year), r.Score, r.PublicationURL)
	}
	if res.TotalHits > len(res.Results) {
		fmt.Fprintf(w, "... %d more\n", res.TotalHits-len(res.Results))
	}
	return nil
}
