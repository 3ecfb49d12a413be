package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	down bool
	gets atomic.Int32
}

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	s.gets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return "", errors.New("connection refused")
	}
	v, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errors.New("connection refused")
	}
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return 0, errors.New("connection refused")
	}
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func result(epoch string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:      "deep learning",
		Terms:      []string{"deep", "learning"},
		TotalHits:  1,
		Results:    []executor.Result{{DocID: 0, Title: "Deep Learning", Score: 1.5}},
		Generation: 1,
		Epoch:      epoch,
	}
}

func TestGetOrComputeCachesPerEpoch(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	ctx := context.Background()
	plan := parser.Parse("deep learning")
	computed := 0
	compute := func() (*executor.SearchResult, error) {
		computed++
		return result("e1"), nil
	}

	if _, hit, err := c.GetOrCompute(ctx, plan, 20, "e1", compute); err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	got, hit, err := c.GetOrCompute(ctx, parser.Parse("Learning DEEP"), 20, "e1", compute)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if got.Query != "Learning DEEP" || got.Terms[0] != "learning" {
		t.Errorf("cached result not relabelled: %+v", got)
	}
	if computed != 1 {
		t.Errorf("computed %d times, want 1", computed)
	}

	// A different limit or a new build is a different entry.
	c.GetOrCompute(ctx, plan, 10, "e1", compute)
	c.GetOrCompute(ctx, plan, 20, "e2", compute)
	if computed != 3 {
		t.Errorf("computed %d times, want 3", computed)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 3 || st.Breaker != "closed" {
		t.Errorf("stats = %+v", st)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	boom := errors.New("index not ready")
	_, _, err := c.GetOrCompute(context.Background(), parser.Parse("x ray"), 5, "", func() (*executor.SearchResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if _, ok := c.Get(context.Background(), parser.Parse("x ray"), 5, ""); ok {
		t.Error("failed computation was cached")
	}
}

func TestStoreOutageDegradesToCompute(t *testing.T) {
	store := newMemStore()
	store.down = true
	c := New(store, time.Minute, nil)
	plan := parser.Parse("graph")
	for i := 0; i < 10; i++ {
		res, hit, err := c.GetOrCompute(context.Background(), plan, 20, "e1", func() (*executor.SearchResult, error) {
			return result("e1"), nil
		})
		if err != nil || hit || res == nil {
			t.Fatalf("call %d: res=%v hit=%v err=%v", i, res, hit, err)
		}
	}
	if c.Stats().Breaker != "open" {
		t.Errorf("breaker = %s, want open", c.Stats().Breaker)
	}
	// Once open, the store is no longer called on every request.
	if store.gets.Load() >= 10 {
		t.Errorf("store Get called %d times with breaker open", store.gets.Load())
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, parser.Parse("deep"), 20, result("e1"))
	c.Set(ctx, parser.Parse("learning"), 20, result("e1"))
	store.data["unrelated"] = "keep"

	n, err := c.Invalidate(ctx)
	if err != nil || n != 2 {
		t.Errorf("Invalidate = %d, %v; want 2", n, err)
	}
	if _, ok := store.data["unrelated"]; !ok {
		t.Error("non-cache key removed")
	}
}

func TestInvalidateClosesBreaker(t *testing.T) {
	store := newMemStore()
	store.down = true
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.Get(ctx, parser.Parse("graph"), 20, "e1")
	}
	if c.Stats().Breaker != "open" {
		t.Fatalf("breaker = %s, want open", c.Stats().Breaker)
	}
	if _, err := c.Invalidate(ctx); err == nil {
		t.Fatal("Invalidate succeeded against a down store")
	}
	if c.Stats().Breaker != "open" {
		t.Errorf("failed flush closed the breaker")
	}

	store.down = false
	if _, err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if c.Stats().Breaker != "closed" {
		t.Errorf("breaker = %s after successful flush, want closed", c.Stats().Breaker)
	}
}

// Two searchers sharing Redis, or one restarted against a replaced corpus,
// both start at generation 1. Their entries must not collide.
func TestSharedStoreSeparatesBuilds(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	plan := parser.Parse("corpus")

	search := func(title string) (*executor.SearchResult, bool) {
		t.Helper()
		e := indexer.NewEngine(nil, config.IndexerConfig{}, nil)
		if _, err := e.Load(ctx, []corpus.Publication{{Title: title}, {Title: "unrelated"}}); err != nil {
			t.Fatalf("Load: %v", err)
		}
		c := New(store, time.Minute, nil)
		exec := executor.New(e)
		res, hit, err := c.GetOrCompute(ctx, plan, 20, e.Epoch(), func() (*executor.SearchResult, error) {
			return exec.Execute(ctx, plan, 20)
		})
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		return res, hit
	}

	if _, hit := search("old corpus"); hit {
		t.Fatal("first process hit an empty cache")
	}
	res, hit := search("new corpus")
	if hit || res.Generation != 1 {
		t.Fatalf("restarted process: hit=%v generation=%d", hit, res.Generation)
	}
	if len(res.Results) != 1 || res.Results[0].Title != "new corpus" {
		t.Errorf("results = %+v, want the new corpus", res.Results)
	}
}

func TestSetSkipsUnbuiltIndex(t *testing.T) {
	store := newMemStore()
	New(store, time.Minute, nil).Set(context.Background(), parser.Parse("deep"), 20, result(""))
	if len(store.data) != 0 {
		t.Errorf("stored %d entries without an epoch", len(store.data))
	}
}
