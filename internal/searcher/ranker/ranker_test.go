package ranker

import (
	"math"
	"testing"
)

const eps = 1e-12

func TestIDF(t *testing.T) {
	tests := []struct {
		n, df int
		want  float64
	}{
		{3, 1, math.Log(2)},
		{3, 2, math.Log(4.0 / 3.0)},
		{3, 3, 0},
		{0, 0, 0},
		{9, 0, math.Log(10)},
	}
	for _, tt := range tests {
		if got := IDF(tt.n, tt.df); math.Abs(got-tt.want) > eps {
			t.Errorf("IDF(%d, %d) = %v, want %v", tt.n, tt.df, got, tt.want)
		}
	}
}

func TestRankAccumulatesAcrossTerms(t *testing.T) {
	matches := []TermMatch{
		{Term: "deep", Frequencies: map[int]int{0: 1, 1: 2}},
		{Term: "health", Frequencies: map[int]int{0: 1}},
	}
	got := Rank(matches, 4)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	deepIDF := IDF(4, 2)
	healthIDF := IDF(4, 1)
	want := map[int]float64{
		0: deepIDF + healthIDF,
		1: 2 * deepIDF,
	}
	for _, sd := range got {
		if math.Abs(sd.Score-want[sd.DocID]) > eps {
			t.Errorf("doc %d: score %v, want %v", sd.DocID, sd.Score, want[sd.DocID])
		}
	}
	if got[0].Score < got[1].Score {
		t.Errorf("results not sorted descending: %+v", got)
	}
}

func TestRankTieBreakByDocID(t *testing.T) {
	matches := []TermMatch{
		{Term: "finance", Frequencies: map[int]int{7: 1, 2: 1, 5: 1}},
	}
	got := Rank(matches, 10)
	wantOrder := []int{2, 5, 7}
	if len(got) != len(wantOrder) {
		t.Fatalf("expected %d results, got %d", len(wantOrder), len(got))
	}
	for i, id := range wantOrder {
		if got[i].DocID != id {
			t.Errorf("position %d: doc %d, want %d", i, got[i].DocID, id)
		}
	}
}

func TestRankDropsZeroScores(t *testing.T) {
	// A term present in every document has idf 0.
	matches := []TermMatch{
		{Term: "the", Frequencies: map[int]int{0: 1, 1: 1}},
	}
	if got := Rank(matches, 2); len(got) != 0 {
		t.Errorf("expected no results, got %+v", got)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil, 0); len(got) != 0 {
		t.Errorf("expected empty result, got %+v", got)
	}
	if got := Rank([]TermMatch{{Term: "x"}}, 5); len(got) != 0 {
		t.Errorf("expected empty result for match without postings, got %+v", got)
	}
}

func TestTop(t *testing.T) {
	ranked := []ScoredDoc{{DocID: 0, Score: 3}, {DocID: 1, Score: 2}, {DocID: 2, Score: 1}}
	if got := Top(ranked, 2); len(got) != 2 || got[1].DocID != 1 {
		t.Errorf("Top(2) = %+v", got)
	}
	if got := Top(ranked, 0); len(got) != 3 {
		t.Errorf("Top(0) should not truncate, got %d", len(got))
	}
	if got := Top(ranked, 10); len(got) != 3 {
		t.Errorf("Top(10) = %d entries, want 3", len(got))
	}
}
