package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("default limit = %d, want 20", cfg.Search.DefaultLimit)
	}
	if cfg.Corpus.Source != SourceFile || cfg.Corpus.Path != "docs.json" {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	if cfg.Kafka.Topics.CorpusRefresh != "corpus-refresh" {
		t.Errorf("refresh topic = %q", cfg.Kafka.Topics.CorpusRefresh)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Error("redis and kafka should be opt-in")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
corpus:
  source: sqlite
sqlite:
  path: /tmp/pubs.db
redis:
  enabled: true
  cacheTTL: 5m
indexer:
  reloadInterval: 10m
search:
  defaultLimit: 10
  maxResults: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Corpus.Source != SourceSQLite || cfg.SQLite.Path != "/tmp/pubs.db" {
		t.Errorf("corpus = %+v sqlite = %+v", cfg.Corpus, cfg.SQLite)
	}
	if !cfg.Redis.Enabled || cfg.Redis.CacheTTL != 5*time.Minute {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Indexer.ReloadInterval != 10*time.Minute {
		t.Errorf("reload interval = %v", cfg.Indexer.ReloadInterval)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxResults != 50 {
		t.Errorf("search = %+v", cfg.Search)
	}
	// untouched sections keep defaults
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d", cfg.Postgres.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SP_CORPUS_SOURCE", "postgres")
	t.Setenv("SP_POSTGRES_HOST", "db.internal")
	t.Setenv("SP_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SP_KAFKA_ENABLED", "true")
	t.Setenv("SP_SEARCH_DEFAULT_LIMIT", "5")
	t.Setenv("SP_INDEXER_RELOAD_INTERVAL", "30s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Corpus.Source != SourcePostgres || cfg.Postgres.Host != "db.internal" {
		t.Errorf("corpus=%+v postgres host=%q", cfg.Corpus, cfg.Postgres.Host)
	}
	if len(cfg.Kafka.Brokers) != 2 || !cfg.Kafka.Enabled {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
	if cfg.Search.DefaultLimit != 5 || cfg.Indexer.ReloadInterval != 30*time.Second {
		t.Errorf("search=%+v indexer=%+v", cfg.Search, cfg.Indexer)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown source", func(c *Config) { c.Corpus.Source = "mongo" }, "corpus.source"},
		{"file without path", func(c *Config) { c.Corpus.Path = "" }, "corpus.path"},
		{"sqlite without path", func(c *Config) { c.Corpus.Source = SourceSQLite; c.SQLite.Path = "" }, "sqlite.path"},
		{"zero limit", func(c *Config) { c.Search.DefaultLimit = 0 }, "defaultLimit"},
		{"max below default", func(c *Config) { c.Search.MaxResults = 5 }, "maxResults"},
		{"negative reload", func(c *Config) { c.Indexer.ReloadInterval = -time.Second }, "reloadInterval"},
		{"rate limit without window", func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.Window = 0 }, "rateLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
