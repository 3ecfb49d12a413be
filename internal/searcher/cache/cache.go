// Package cache memoises search results in Redis. Keys include the build
// epoch, which is unique per build across every process sharing the store,
// so a rebuild or restart makes older entries unreachable without a flush;
// stale entries age out through the TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the key-value surface the cache needs; *redis.Client satisfies
// it. Get must report a missing key with an error matched by
// redis.IsNilError.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
	Breaker string  `json:"circuit_breaker"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, state resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
			}
		},
	})
	return c
}

// Get looks up a cached result. Any store failure is reported as a miss.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, limit int, epoch string) (*executor.SearchResult, bool) {
	key := buildKey(plan, limit, epoch)
	var data string
	missing := false
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.store.Get(ctx, key)
		if pkgredis.IsNilError(getErr) {
			missing = true
			return nil
		}
		return getErr
	})
	if err != nil || missing {
		if err != nil {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}

	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	// The stored entry may be for a different spelling of the same terms.
	relabel(&result, plan)
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Set stores result under the epoch that produced it. Failures are logged,
// not returned.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, limit int, result *executor.SearchResult) {
	if result.Epoch == "" {
		return
	}
	key := buildKey(plan, limit, result.Epoch)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for plan or computes it once for
// all concurrent callers with the same key. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	limit int,
	epoch string,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, plan, limit, epoch); ok {
		return result, true, nil
	}
	key := buildKey(plan, limit, epoch)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := val.(*executor.SearchResult)
	out := *shared
	relabel(&out, plan)
	return &out, false, nil
}

// Invalidate deletes every cached result and returns how many keys went.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	// A flush that reached the store proves it is back.
	c.breaker.Reset()
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	s := Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Breaker: c.breaker.GetState().String(),
	}
	s.Total = s.Hits + s.Misses
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total)
	}
	return s
}

func relabel(result *executor.SearchResult, plan *parser.QueryPlan) {
	result.Query = plan.RawQuery
	if plan.Terms != nil {
		result.Terms = plan.Terms
	}
}

func buildKey(plan *parser.QueryPlan, limit int, epoch string) string {
	raw := fmt.Sprintf("%s|limit=%d|epoch=%s", plan.Normalized(), limit, epoch)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
