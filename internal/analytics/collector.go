package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/kafka"
)

const (
	maxBufferedBatches = 3
	finalFlushTimeout  = 5 * time.Second
)

// Collector buffers events and publishes them in batches, either when a
// batch fills up or every FlushInterval. Track never blocks the caller.
// Each publisher keeps its own backlog, so one failing publisher never
// causes another to receive an event twice.
type Collector struct {
	sinks         []*sink
	batchSize     int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []kafka.Event
	kick   chan struct{}
	done   chan struct{}
	logger *slog.Logger
}

// sink is one publisher and the events it has yet to accept. Only flush
// writes pending; reads go through Collector.mu.
type sink struct {
	publisher kafka.Publisher
	pending   []kafka.Event
}

func NewCollector(cfg config.AnalyticsConfig, publishers ...kafka.Publisher) *Collector {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	sinks := make([]*sink, 0, len(publishers))
	for _, p := range publishers {
		sinks = append(sinks, &sink{publisher: p})
	}
	return &Collector{
		sinks:         sinks,
		batchSize:     batchSize,
		flushInterval: interval,
		buffer:        make([]kafka.Event, 0, batchSize),
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

// Run flushes on a timer, or early when a batch fills, until ctx is
// cancelled. Whatever is buffered at that point gets one last flush.
func (c *Collector) Run(ctx context.Context) error {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	c.logger.Info("analytics collector started",
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval.String(),
	)
	for {
		select {
		case <-ticker.C:
			c.flush(ctx)
		case <-c.kick:
			c.flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			c.flush(flushCtx)
			cancel()
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// TrackSearch queues a search event keyed by query so one query's events
// share a partition.
func (c *Collector) TrackSearch(e SearchEvent) {
	if e.Type == "" {
		e.Type = EventSearch
		if e.TotalHits == 0 {
			e.Type = EventZeroResult
		}
	}
	c.track(kafka.Event{Key: e.Query, Value: e})
}

func (c *Collector) TrackRebuild(e RebuildEvent) {
	e.Type = EventRebuild
	c.track(kafka.Event{Key: "rebuild", Value: e})
}

func (c *Collector) track(event kafka.Event) {
	c.mu.Lock()
	c.buffer = append(c.buffer, event)
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()
	if full {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
}

// BufferLen returns the number of events not yet accepted by every
// publisher.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	backlog := 0
	for _, s := range c.sinks {
		backlog = max(backlog, len(s.pending))
	}
	return len(c.buffer) + backlog
}

func (c *Collector) flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	work := make([][]kafka.Event, len(c.sinks))
	for i, s := range c.sinks {
		s.pending = append(s.pending, batch...)
		work[i] = s.pending
	}
	c.mu.Unlock()

	for i, s := range c.sinks {
		if len(work[i]) == 0 {
			continue
		}
		err := s.publisher.Publish(ctx, work[i]...)

		c.mu.Lock()
		if err == nil {
			s.pending = nil
			c.mu.Unlock()
			c.logger.Debug("analytics batch published", "events", len(work[i]))
			continue
		}
		dropped := 0
		if limit := c.batchSize * maxBufferedBatches; len(s.pending) > limit {
			dropped = len(s.pending) - limit
			s.pending = s.pending[dropped:]
		}
		c.mu.Unlock()

		c.logger.Error("analytics flush failed", "events", len(work[i]), "error", err)
		if dropped > 0 {
			c.logger.Warn("analytics backlog full, oldest events dropped", "dropped", dropped)
		}
	}
}
