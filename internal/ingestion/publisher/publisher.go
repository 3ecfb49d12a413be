// Package publisher replaces the corpus store's contents with an imported
// collection and announces the change on the corpus-refresh topic.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/kafka"
)

// Options tune one import.
type Options struct {
	// Strict rejects the import when validation finds anything.
	Strict bool
	// Force writes and announces even when the store already holds the
	// same content.
	Force bool
}

type Publisher struct {
	store    corpus.Store
	producer kafka.Publisher
	source   string
	logger   *slog.Logger
}

// New returns a Publisher writing to store. producer may be nil, in which
// case searchers pick the change up on their next periodic reload.
func New(store corpus.Store, producer kafka.Publisher, source string) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		source:   source,
		logger:   slog.Default().With("component", "corpus-publisher"),
	}
}

// Import validates pubs, replaces the store contents and publishes a
// RefreshEvent. Importing content identical to what the store holds is a
// no-op unless opts.Force is set.
func (p *Publisher) Import(ctx context.Context, pubs []corpus.Publication, opts Options) (*ingestion.ImportReport, error) {
	report := &ingestion.ImportReport{Documents: len(pubs)}
	for _, pub := range pubs {
		if _, ok := pub.IndexTitle(); !ok {
			report.Untitled++
		}
	}

	if verr := validator.ValidatePublications(pubs); verr != nil {
		report.Warnings = len(verr.Issues)
		if opts.Strict {
			return report, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "%v", verr)
		}
		for _, issue := range verr.Issues {
			p.logger.Warn("publication issue", "index", issue.Index, "field", issue.Field, "message", issue.Message)
		}
	}

	hash, err := contentHash(pubs)
	if err != nil {
		return report, err
	}
	report.ContentHash = hash

	if !opts.Force {
		current, err := p.store.List(ctx)
		if err != nil {
			return report, fmt.Errorf("reading current corpus: %w", err)
		}
		if currentHash, err := contentHash(current); err == nil && currentHash == hash {
			p.logger.Info("corpus unchanged, nothing to import", "documents", len(pubs), "content_hash", hash)
			report.Unchanged = true
			return report, nil
		}
	}

	if err := p.store.Replace(ctx, pubs); err != nil {
		return report, fmt.Errorf("replacing corpus: %w", err)
	}
	stored, err := p.store.Count(ctx)
	if err != nil {
		return report, fmt.Errorf("counting stored corpus: %w", err)
	}
	if stored != len(pubs) {
		return report, apperrors.Newf(apperrors.ErrInternal, http.StatusInternalServerError,
			"store holds %d publications after replacing with %d", stored, len(pubs))
	}
	p.logger.Info("corpus replaced", "documents", len(pubs), "untitled", report.Untitled, "content_hash", hash)

	if p.producer == nil {
		return report, nil
	}
	event := kafka.Event{
		Key: p.source,
		Value: ingestion.RefreshEvent{
			Source:      p.source,
			Documents:   len(pubs),
			ContentHash: hash,
			RequestedAt: time.Now().UTC(),
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		// The store already holds the new corpus; searchers still get it on
		// their next periodic reload.
		p.logger.Error("failed to publish refresh event", "error", err)
		return report, fmt.Errorf("publishing refresh event: %w", err)
	}
	report.Published = true
	return report, nil
}

// contentHash fingerprints a collection in order.
func contentHash(pubs []corpus.Publication) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for i, pub := range pubs {
		if err := enc.Encode(pub); err != nil {
			return "", fmt.Errorf("hashing publication %d: %w", i, err)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
