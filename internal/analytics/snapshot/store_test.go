package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/postgres"
)

func TestSaveAndLatest(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:            os.Getenv("TEST_POSTGRES_HOST"),
		Port:            5432,
		Database:        "scholarsearch_test",
		User:            "scholarsearch",
		Password:        "localdev",
		SSLMode:         "disable",
		MaxOpenConns:    2,
		ConnMaxLifetime: time.Minute,
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	client, err := postgres.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	s, err := NewStore(ctx, client)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	want := analytics.AggregatedStats{TotalSearches: 42, Rebuilds: 3, TopQueries: []analytics.QueryCount{{Query: "vision", Count: 7}}}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Latest(ctx)
	if err != nil || got == nil {
		t.Fatalf("Latest: %v, %v", got, err)
	}
	if got.TotalSearches != 42 || got.Rebuilds != 3 || len(got.TopQueries) != 1 {
		t.Errorf("got %+v", got)
	}
}
