// Package indexer owns the live title index: it loads the publication
// corpus from the configured store, rebuilds the inverted index from it and
// keeps it fresh on a timer or on demand.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/resilience"
)

// RebuildHook is called after every successful build.
type RebuildHook func(stats index.BuildStats)

// Stats describes the index generation currently being served.
type Stats struct {
	Documents     int       `json:"documents"`
	Terms         int       `json:"terms"`
	Tokens        int       `json:"tokens"`
	Untitled      int       `json:"untitled"`
	Generation    uint64    `json:"generation"`
	LastBuiltAt   time.Time `json:"last_built_at,omitempty"`
	LastBuildTime string    `json:"last_build_time,omitempty"`
	Ready         bool      `json:"ready"`
}

// Engine serves searches from an in-memory index and rebuilds it from a
// corpus.Store. Searches never block on a rebuild in progress beyond the
// final swap.
type Engine struct {
	idx     *index.Index[corpus.Publication]
	store   corpus.Store
	cfg     config.IndexerConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	// rebuildMu serialises Rebuild and Load.
	rebuildMu sync.Mutex

	mu           sync.RWMutex
	last         index.BuildStats
	lastBuiltAt  time.Time
	lastDuration time.Duration
	hooks        []RebuildHook
}

// NewEngine returns an engine with an empty index. store may be nil when the
// caller only ever uses Load; m may be nil to skip metrics.
func NewEngine(store corpus.Store, cfg config.IndexerConfig, m *metrics.Metrics) *Engine {
	return &Engine{
		idx:     index.New[corpus.Publication](),
		store:   store,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// OnRebuild registers fn to run after each successful build.
func (e *Engine) OnRebuild(fn RebuildHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Rebuild reads the whole corpus from the store and replaces the index with
// it. On failure the previous generation keeps serving.
func (e *Engine) Rebuild(ctx context.Context) (index.BuildStats, error) {
	if e.store == nil {
		return index.BuildStats{}, apperrors.New(apperrors.ErrCorpusUnavailable, http.StatusServiceUnavailable, "no corpus store configured")
	}
	if e.cfg.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.BuildTimeout)
		defer cancel()
	}

	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	start := time.Now()
	var pubs []corpus.Publication
	err := resilience.Retry(ctx, "corpus-list", resilience.RetryConfig{MaxAttempts: e.cfg.LoadAttempts}, func() error {
		var listErr error
		pubs, listErr = e.store.List(ctx)
		return listErr
	})
	if err != nil {
		e.recordFailure(err)
		return index.BuildStats{}, fmt.Errorf("loading corpus: %w", err)
	}
	return e.build(ctx, pubs, start)
}

// Load builds the index directly from pubs, bypassing the store.
func (e *Engine) Load(ctx context.Context, pubs []corpus.Publication) (index.BuildStats, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()
	return e.build(ctx, pubs, time.Now())
}

func (e *Engine) build(ctx context.Context, pubs []corpus.Publication, start time.Time) (index.BuildStats, error) {
	stats, err := e.idx.BuildContext(ctx, pubs)
	if err != nil {
		e.recordFailure(err)
		return index.BuildStats{}, err
	}
	elapsed := time.Since(start)

	e.mu.Lock()
	e.last = stats
	e.lastBuiltAt = time.Now().UTC()
	e.lastDuration = elapsed
	hooks := make([]RebuildHook, len(e.hooks))
	copy(hooks, e.hooks)
	e.mu.Unlock()

	if m := e.metrics; m != nil {
		m.IndexRebuildsTotal.WithLabelValues("success").Inc()
		m.IndexRebuildDuration.Observe(elapsed.Seconds())
		m.IndexedDocuments.Set(float64(stats.Documents))
		m.IndexTerms.Set(float64(stats.Terms))
		m.IndexGeneration.Set(float64(stats.Generation))
	}
	e.logger.Info("index rebuilt",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"untitled", stats.Untitled,
		"generation", stats.Generation,
		"duration", elapsed.Round(time.Millisecond).String(),
	)
	for _, hook := range hooks {
		hook(stats)
	}
	return stats, nil
}

func (e *Engine) recordFailure(err error) {
	if e.metrics != nil {
		e.metrics.IndexRebuildsTotal.WithLabelValues("failure").Inc()
	}
	e.logger.Error("index rebuild failed", "error", err, "generation", e.idx.Generation())
}

// Search ranks the current generation against query.
func (e *Engine) Search(query string) []index.Hit[corpus.Publication] {
	return e.idx.Search(query)
}

// SearchVersioned also reports the build the hits came from.
func (e *Engine) SearchVersioned(query string) ([]index.Hit[corpus.Publication], index.Version) {
	return e.idx.SearchVersioned(query)
}

// Epoch identifies the build currently serving; empty before the first.
func (e *Engine) Epoch() string {
	return e.idx.Version().Epoch
}

// Generation returns the number of completed builds.
func (e *Engine) Generation() uint64 {
	return e.idx.Generation()
}

// Ready reports whether at least one build has completed.
func (e *Engine) Ready() bool {
	return e.idx.Generation() > 0
}

// Ping fails until the first build completes; it backs the readiness check.
func (e *Engine) Ping(ctx context.Context) error {
	if !e.Ready() {
		return apperrors.ErrIndexNotReady
	}
	return nil
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Stats{
		Documents:  e.last.Documents,
		Terms:      e.last.Terms,
		Tokens:     e.last.Tokens,
		Untitled:   e.last.Untitled,
		Generation: e.last.Generation,
		Ready:      e.last.Generation > 0,
	}
	if s.Ready {
		s.LastBuiltAt = e.lastBuiltAt
		s.LastBuildTime = e.lastDuration.Round(time.Microsecond).String()
	}
	return s
}

// StartReloadLoop rebuilds from the store every ReloadInterval until ctx is
// cancelled. It returns immediately when the interval is zero.
func (e *Engine) StartReloadLoop(ctx context.Context) error {
	if e.cfg.ReloadInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(e.cfg.ReloadInterval)
	defer ticker.Stop()
	e.logger.Info("periodic reload enabled", "interval", e.cfg.ReloadInterval.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := e.Rebuild(ctx); err != nil && ctx.Err() == nil {
				e.logger.Warn("periodic reload failed, keeping previous index", "error", err)
			}
		}
	}
}
