// Package ranker scores candidate documents with smoothed TF-IDF.
package ranker

import (
	"math"
	"sort"
)

// ScoredDoc is a document id with its accumulated relevance score.
type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// TermMatch carries one query term occurrence and the postings the index
// holds for it. Frequencies maps document id to term frequency.
type TermMatch struct {
	Term        string
	Frequencies map[int]int
}

// IDF returns ln((N+1)/(df+1)). The +1 smoothing keeps the value finite for
// an empty collection; it is zero when the term occurs in every document.
func IDF(totalDocs, docFreq int) float64 {
	return math.Log(float64(totalDocs+1) / float64(docFreq+1))
}

// Rank accumulates tf*idf per document over every match, drops documents
// without a positive score, and orders the rest by score descending with
// ties broken by ascending document id.
func Rank(matches []TermMatch, totalDocs int) []ScoredDoc {
	scores := make(map[int]float64)
	for _, m := range matches {
		if len(m.Frequencies) == 0 {
			continue
		}
		idf := IDF(totalDocs, len(m.Frequencies))
		for docID, tf := range m.Frequencies {
			scores[docID] += float64(tf) * idf
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Top returns at most limit leading entries of ranked. A non-positive limit
// returns ranked unchanged.
func Top[T any](ranked []T, limit int) []T {
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
