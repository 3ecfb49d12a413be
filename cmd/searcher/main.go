package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	store, err := corpus.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening corpus store: %w", err)
	}
	defer store.Close()

	engine := indexer.NewEngine(store, cfg.Indexer, m)
	if _, err := engine.Rebuild(ctx); err != nil {
		// Keep serving; readiness stays down until a rebuild succeeds.
		slog.Error("initial index build failed", "error", err)
	}

	checker := health.NewChecker()
	checker.Register("index", health.PingCheck(engine.Ping, false))
	checker.Register("corpus_store", health.PingCheck(store.Ping, false))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		var redisClient *pkgredis.Client
		err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			var connErr error
			redisClient, connErr = pkgredis.NewClient(ctx, cfg.Redis)
			return connErr
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			checker.Register("redis", func(context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			})
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL.String())
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// Each instance keeps its own totals; cmd/analytics aggregates the fleet
	// from the Kafka topic.
	aggregator := analytics.NewAggregator()
	publishers := []kafka.Publisher{analytics.LocalPublisher{Aggregator: aggregator}}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publishers = append(publishers, producer)

		// Every searcher holds a full index, so each one needs every refresh.
		refreshCfg := cfg.Kafka
		refreshCfg.ConsumerGroup = kafka.InstanceGroup(cfg.Kafka.ConsumerGroup, "refresh")
		refresh := consumer.New(kafka.NewConsumer(refreshCfg, cfg.Kafka.Topics.CorpusRefresh, consumer.HandleMessage(engine)))
		g.Go(func() error { return refresh.Start(gctx) })
		slog.Info("kafka enabled",
			"brokers", cfg.Kafka.Brokers,
			"refresh_group", refreshCfg.ConsumerGroup,
			"refresh_topic", cfg.Kafka.Topics.CorpusRefresh,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		)
	}

	collector := analytics.NewCollector(cfg.Analytics, publishers...)
	g.Go(func() error { return collector.Run(gctx) })
	engine.OnRebuild(func(stats index.BuildStats) {
		collector.TrackRebuild(analytics.RebuildEvent{
			Generation: stats.Generation,
			Documents:  stats.Documents,
			Terms:      stats.Terms,
			Untitled:   stats.Untitled,
			Timestamp:  time.Now().UTC(),
		})
	})

	g.Go(func() error { return engine.StartReloadLoop(gctx) })

	h := handler.New(executor.New(engine), engine, cfg.Search.DefaultLimit, cfg.Search.MaxResults, handler.Options{
		Cache:     queryCache,
		Collector: collector,
		Metrics:   m,
	})
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORS.AllowOrigins
	cors.MaxAge = cfg.CORS.MaxAge

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	if cfg.RateLimit.Enabled {
		chain = middleware.RateLimit(ratelimit.New(gctx, cfg.RateLimit.Requests, cfg.RateLimit.Window))(chain)
	}
	chain = middleware.CORS(cors)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
