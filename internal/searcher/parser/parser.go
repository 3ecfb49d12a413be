// Package parser turns a raw query string into the term list the index
// scores against.
package parser

import (
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/indexer/tokenizer"
)

// QueryPlan is a tokenized query. Terms keeps query order and repeats:
// a term typed twice counts twice toward every score.
type QueryPlan struct {
	RawQuery string
	Terms    []string
}

func Parse(query string) *QueryPlan {
	return &QueryPlan{
		RawQuery: query,
		Terms:    tokenizer.Tokenize(query),
	}
}

// Empty reports whether the query has no indexable terms.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Normalized returns a canonical form for cache keys. Scores do not depend
// on term order, so terms are sorted; duplicates are kept because they do
// change scores.
func (p *QueryPlan) Normalized() string {
	terms := slices.Clone(p.Terms)
	slices.Sort(terms)
	return strings.Join(terms, " ")
}
