// Package executor runs parsed queries against the live index and shapes
// the hits into API results.
package executor

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/errors"
)

// Result is one ranked publication.
type Result struct {
	DocID          int            `json:"doc_id"`
	Title          string         `json:"title"`
	Year           string         `json:"year"`
	Authors        []string       `json:"authors"`
	PublicationURL string         `json:"publication_url"`
	Extra          map[string]any `json:"extra,omitempty"`
	Score          float64        `json:"score"`
}

// SearchResult is the response to one query. TotalHits counts every
// publication with a positive score, before the limit is applied.
type SearchResult struct {
	Query      string   `json:"query"`
	Terms      []string `json:"terms"`
	TotalHits  int      `json:"total_hits"`
	Results    []Result `json:"results"`
	Generation uint64   `json:"generation"`
	Epoch      string   `json:"epoch"`
}

// Searcher is the read side of indexer.Engine.
type Searcher interface {
	SearchVersioned(query string) ([]index.Hit[corpus.Publication], index.Version)
	Ready() bool
}

type Executor struct {
	searcher Searcher
	logger   *slog.Logger
}

func New(searcher Searcher) *Executor {
	return &Executor{
		searcher: searcher,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Execute ranks plan against the index and keeps the best limit results.
// A non-positive limit keeps all of them.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if !e.searcher.Ready() {
		return nil, apperrors.ErrIndexNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &SearchResult{
		Query:   plan.RawQuery,
		Terms:   plan.Terms,
		Results: []Result{},
	}
	if result.Terms == nil {
		result.Terms = []string{}
	}

	hits, version := e.searcher.SearchVersioned(plan.RawQuery)
	result.Generation = version.Generation
	result.Epoch = version.Epoch
	result.TotalHits = len(hits)

	for _, hit := range ranker.Top(hits, limit) {
		authors := hit.Doc.Authors
		if authors == nil {
			authors = []string{}
		}
		result.Results = append(result.Results, Result{
			DocID:          hit.DocID,
			Title:          hit.Doc.Title,
			Year:           hit.Doc.Year,
			Authors:        authors,
			PublicationURL: hit.Doc.PublicationURL,
			Extra:          hit.Doc.Extra,
			Score:          hit.Score,
		})
	}

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"generation", version.Generation,
	)
	return result, nil
}
