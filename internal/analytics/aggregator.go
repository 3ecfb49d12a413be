package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyUs      float64      `json:"avg_latency_us"`
	P50LatencyUs      int64        `json:"p50_latency_us"`
	P95LatencyUs      int64        `json:"p95_latency_us"`
	P99LatencyUs      int64        `json:"p99_latency_us"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	Rebuilds          int64        `json:"rebuilds"`
	LastGeneration    uint64       `json:"last_generation"`
	IndexedDocuments  int          `json:"indexed_documents"`
	LastRebuildAt     *time.Time   `json:"last_rebuild_at,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds analytics events into running totals.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	latencies         []int64
	nextLatency       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	rebuilds          int64
	lastRebuild       RebuildEvent
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka MessageHandler feeding agg. Undecodable
// messages are logged and dropped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if err := agg.Record(value); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err, "key", string(key))
		}
		return nil
	}
}

// Record decodes one JSON event and folds it in.
func (a *Aggregator) Record(value []byte) error {
	event, err := decodeEvent(value)
	if err != nil {
		return err
	}
	switch e := event.(type) {
	case *SearchEvent:
		a.recordSearch(*e)
	case *RebuildEvent:
		a.recordRebuild(*e)
	}
	return nil
}

func (a *Aggregator) recordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
	a.queryCounts[event.Query]++

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyUs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyUs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
}

func (a *Aggregator) recordRebuild(event RebuildEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rebuilds++
	if event.Generation >= a.lastRebuild.Generation {
		a.lastRebuild = event
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		ZeroResultCount:  a.zeroResults,
		Rebuilds:         a.rebuilds,
		LastGeneration:   a.lastRebuild.Generation,
		IndexedDocuments: a.lastRebuild.Documents,
	}
	if a.rebuilds > 0 {
		at := a.lastRebuild.Timestamp
		stats.LastRebuildAt = &at
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

// Restore seeds the running totals from a saved snapshot. Latency samples
// are not part of a snapshot and start empty.
func (a *Aggregator) Restore(saved AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches += saved.TotalSearches
	a.cacheHits += saved.CacheHits
	a.cacheMisses += saved.CacheMisses
	a.zeroResults += saved.ZeroResultCount
	a.rebuilds += saved.Rebuilds
	for _, q := range saved.TopQueries {
		a.queryCounts[q.Query] += q.Count
	}
	for _, q := range saved.ZeroResultQueries {
		a.zeroResultQueries[q.Query] += q.Count
	}
	if saved.LastGeneration > a.lastRebuild.Generation {
		a.lastRebuild = RebuildEvent{
			Type:       EventRebuild,
			Generation: saved.LastGeneration,
			Documents:  saved.IndexedDocuments,
		}
		if saved.LastRebuildAt != nil {
			a.lastRebuild.Timestamp = *saved.LastRebuildAt
		}
	}
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query text so equal counts are stable.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// LocalPublisher delivers events straight to an Aggregator through the
// same JSON path Kafka would use. It stands in for the producer when Kafka
// is disabled.
type LocalPublisher struct {
	Aggregator *Aggregator
}

func (p LocalPublisher) Publish(ctx context.Context, events ...kafka.Event) error {
	for _, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return fmt.Errorf("marshaling event %q: %w", event.Key, err)
		}
		if err := p.Aggregator.Record(value); err != nil {
			return err
		}
	}
	return nil
}
