package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/postgres"
)

func samplePublications() []Publication {
	return []Publication{
		{Title: "Deep Learning for Health", Year: "2021", Authors: []string{"A"}, PublicationURL: "https://example.org/0"},
		{Title: "Deep Learning for Finance", Year: "2022", PublicationURL: "https://example.org/1", Extra: map[string]any{"venue": "ICML"}},
		Untitled(Publication{Year: "2020", PublicationURL: "https://example.org/2"}),
		{Title: "Finance Regulation", Authors: []string{"B", "C"}},
	}
}

// exerciseStore checks the Store contract shared by every implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Replace(ctx, samplePublications()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := samplePublications()
	if len(got) != len(want) {
		t.Fatalf("List returned %d publications, want %d", len(got), len(want))
	}
	for i := range want {
		gt, gok := got[i].IndexTitle()
		wt, wok := want[i].IndexTitle()
		if gt != wt || gok != wok {
			t.Errorf("publication %d title = %q/%v, want %q/%v", i, gt, gok, wt, wok)
		}
		if got[i].PublicationURL != want[i].PublicationURL || got[i].Year != want[i].Year {
			t.Errorf("publication %d = %+v, want %+v", i, got[i], want[i])
		}
		if len(got[i].Authors) != len(want[i].Authors) {
			t.Errorf("publication %d authors = %v, want %v", i, got[i].Authors, want[i].Authors)
		}
	}
	if !reflect.DeepEqual(got[1].Extra, map[string]any{"venue": "ICML"}) {
		t.Errorf("extra = %v", got[1].Extra)
	}

	n, err := s.Count(ctx)
	if err != nil || n != len(want) {
		t.Errorf("Count = %d, %v", n, err)
	}

	if err := s.Replace(ctx, []Publication{{Title: "Only One"}}); err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	got, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Only One" {
		t.Errorf("Replace did not fully replace: %+v", got)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "docs.json"))
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "pubs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            5432,
		Database:        envOrDefault("TEST_POSTGRES_DB", "scholarsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "scholarsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	client, err := postgres.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	s, err := NewPostgresStore(context.Background(), client)
	if err != nil {
		client.Close()
		t.Fatalf("NewPostgresStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	exerciseStore(t, s)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, apperrors.ErrCorpusUnavailable) {
		t.Errorf("missing file error = %v, want ErrCorpusUnavailable", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"not": "an array"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected parse error for non-array export")
	}
}

func TestLoadFileEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	pubs, err := LoadFile(path)
	if err != nil || pubs == nil || len(pubs) != 0 {
		t.Errorf("LoadFile = %v, %v", pubs, err)
	}
}

func TestOpenSelectsSource(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Corpus.Path = filepath.Join(dir, "docs.json")
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open(file): %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open(file) = %T", s)
	}

	cfg.Corpus.Source = config.SourceSQLite
	cfg.SQLite.Path = filepath.Join(dir, "pubs.db")
	s, err = Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) = %T", s)
	}

	cfg.Corpus.Source = "mongo"
	if _, err := Open(context.Background(), cfg); !errors.Is(err, apperrors.ErrUnsupportedSource) {
		t.Errorf("Open(mongo) error = %v", err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
