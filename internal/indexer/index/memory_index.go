// Package index holds the in-memory inverted index over document titles.
// An Index is built in one shot from an ordered collection and queried many
// times; rebuilding replaces everything it held before.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/searcher/ranker"
)

// cancelCheckEvery is how many documents BuildContext indexes between
// context checks.
const cancelCheckEvery = 256

// Index is an inverted index from term to per-document frequency. The zero
// value is not usable; create one with New.
type Index[D Document] struct {
	mu         sync.RWMutex
	postings   map[string]Postings
	docs       []D
	generation uint64
	epoch      string
	logger     *slog.Logger
}

// New returns an empty index. Searching it yields no results until Build is
// called.
func New[D Document]() *Index[D] {
	return &Index[D]{
		postings: make(map[string]Postings),
		logger:   slog.Default().With("component", "inverted-index"),
	}
}

// Build replaces the index contents with docs. Document ids are positions in
// docs. A document without a title is indexed as if its title were empty.
func (ix *Index[D]) Build(docs []D) {
	// Background is never cancelled, so BuildContext cannot fail here.
	_, _ = ix.BuildContext(context.Background(), docs)
}

// BuildContext is Build with cooperative cancellation. If ctx is cancelled
// before the new postings are complete the previous contents stay in place
// and ctx's error is returned.
func (ix *Index[D]) BuildContext(ctx context.Context, docs []D) (BuildStats, error) {
	postings := make(map[string]Postings)
	var stats BuildStats
	for docID, doc := range docs {
		if docID%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return BuildStats{}, fmt.Errorf("building index: %w", err)
			}
		}
		title, ok := doc.IndexTitle()
		if !ok {
			stats.Untitled++
			ix.logger.Warn("document has no title, indexing as empty", "doc_id", docID)
			continue
		}
		for _, term := range tokenizer.Tokenize(title) {
			p, exists := postings[term]
			if !exists {
				p = make(Postings)
				postings[term] = p
			}
			p[docID]++
			stats.Tokens++
		}
	}

	retained := make([]D, len(docs))
	copy(retained, docs)

	ix.mu.Lock()
	ix.postings = postings
	ix.docs = retained
	ix.generation++
	ix.epoch = uuid.NewString()
	stats.Generation = ix.generation
	stats.Epoch = ix.epoch
	ix.mu.Unlock()

	stats.Documents = len(retained)
	stats.Terms = len(postings)
	ix.logger.Debug("index built",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"tokens", stats.Tokens,
		"untitled", stats.Untitled,
		"generation", stats.Generation,
	)
	return stats, nil
}

// Search tokenizes query and returns matching documents ordered by
// descending TF-IDF score, ties broken by ascending document id. Terms
// unknown to the index contribute nothing; an empty or entirely unknown
// query, or an index that was never built, returns an empty slice.
func (ix *Index[D]) Search(query string) []Hit[D] {
	hits, _ := ix.SearchVersioned(query)
	return hits
}

// SearchVersioned is Search that also reports which build produced the hits.
func (ix *Index[D]) SearchVersioned(query string) ([]Hit[D], Version) {
	terms := tokenizer.Tokenize(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	version := Version{Generation: ix.generation, Epoch: ix.epoch}
	if len(terms) == 0 {
		return []Hit[D]{}, version
	}

	matches := make([]ranker.TermMatch, 0, len(terms))
	for _, term := range terms {
		p, ok := ix.postings[term]
		if !ok {
			continue
		}
		matches = append(matches, ranker.TermMatch{Term: term, Frequencies: p})
	}
	if len(matches) == 0 {
		return []Hit[D]{}, version
	}

	ranked := ranker.Rank(matches, len(ix.docs))
	hits := make([]Hit[D], 0, len(ranked))
	for _, sd := range ranked {
		hits = append(hits, Hit[D]{
			DocID: sd.DocID,
			Doc:   ix.docs[sd.DocID],
			Score: sd.Score,
		})
	}
	return hits, version
}

// DocCount returns the number of documents in the current collection.
func (ix *Index[D]) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// TermCount returns the vocabulary size.
func (ix *Index[D]) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// DocFreq returns how many documents contain term. term is matched as
// given, without tokenizing.
func (ix *Index[D]) DocFreq(term string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings[term])
}

// Doc returns the document with the given id.
func (ix *Index[D]) Doc(docID int) (D, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if docID < 0 || docID >= len(ix.docs) {
		var zero D
		return zero, false
	}
	return ix.docs[docID], true
}

// Generation counts completed builds; zero means the index is still empty.
func (ix *Index[D]) Generation() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.generation
}

// Version returns the current build's generation and epoch. The epoch is
// empty until the first build.
func (ix *Index[D]) Version() Version {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Version{Generation: ix.generation, Epoch: ix.epoch}
}
