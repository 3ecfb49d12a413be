// Command loadtest drives concurrent traffic at a running search service and
// prints throughput, latency percentiles and cache behaviour.
//
// Queries come from -file when given (title words sampled from a crawler
// export) and otherwise from a built-in list.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 1m
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/handler"
)

var defaultQueries = []string{
	"neural networks",
	"reinforcement learning",
	"computer vision",
	"graph neural",
	"language models",
	"image segmentation",
	"adversarial robustness",
	"transformer attention",
	"federated learning",
	"object detection",
	"quantum",
	"protein structure",
}

type loadConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "limit parameter sent with every query")
	file := flag.String("file", "", "crawler export to sample queries from")
	flag.Parse()

	queries := defaultQueries
	if *file != "" {
		pubs, err := corpus.LoadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
			os.Exit(1)
		}
		if sampled := queriesFromTitles(pubs, 200); len(sampled) > 0 {
			queries = sampled
		}
	}

	cfg := loadConfig{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     queries,
	}

	fmt.Println("=== Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	start := time.Now()
	st := runLoad(ctx, cfg, newClient(cfg.Concurrency))
	r := st.report(time.Since(start))
	r.write(os.Stdout)

	if r.Total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func newClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// queriesFromTitles turns the first two terms of up to n titles into
// queries, skipping duplicates.
func queriesFromTitles(pubs []corpus.Publication, n int) []string {
	seen := make(map[string]struct{})
	var queries []string
	for _, p := range pubs {
		if len(queries) == n {
			break
		}
		terms := tokenizer.Tokenize(p.Title)
		if len(terms) == 0 {
			continue
		}
		q := strings.Join(terms[:min(2, len(terms))], " ")
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}
	return queries
}

// runLoad keeps every worker busy until ctx expires.
func runLoad(ctx context.Context, cfg loadConfig, client *http.Client) *stats {
	st := newStats()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; gctx.Err() == nil; i++ {
				query := cfg.Queries[i%len(cfg.Queries)]
				o, err := searchOnce(gctx, client, cfg, query)
				if err != nil && gctx.Err() != nil {
					return nil
				}
				st.record(o)
			}
			return nil
		})
	}
	_ = g.Wait()
	return st
}

func searchOnce(ctx context.Context, client *http.Client, cfg loadConfig, query string) (outcome, error) {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", cfg.BaseURL, url.QueryEscape(query), cfg.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return outcome{}, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return outcome{latency: time.Since(start)}, err
	}
	defer resp.Body.Close()

	var body struct {
		TotalHits int `json:"total_hits"`
	}
	o := outcome{
		status:   resp.StatusCode,
		cacheHit: resp.Header.Get(handler.CacheHeader) == "HIT",
	}
	if resp.StatusCode == http.StatusOK {
		err = json.NewDecoder(resp.Body).Decode(&body)
		o.totalHits = body.TotalHits
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	o.latency = time.Since(start)
	return o, err
}
