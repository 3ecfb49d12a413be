package validator

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
)

func TestValidatePublications(t *testing.T) {
	pubs := []corpus.Publication{
		{Title: "Fine", PublicationURL: "u0"},
		corpus.Untitled(corpus.Publication{PublicationURL: "u1"}),
		{Title: "   ", PublicationURL: "u2"},
		{Title: strings.Repeat("x", maxTitleLength+1), PublicationURL: "u3"},
		{Title: "No link"},
		{Title: "Copy", PublicationURL: "u0"},
	}
	err := ValidatePublications(pubs)
	if err == nil {
		t.Fatal("expected issues")
	}
	want := []Issue{
		{1, "title", "missing"},
		{2, "title", "blank"},
		{3, "title", "longer than 1024 bytes"},
		{4, "publication_url", "missing"},
		{5, "publication_url", "duplicate of #0"},
	}
	if len(err.Issues) != len(want) {
		t.Fatalf("issues = %+v", err.Issues)
	}
	for i := range want {
		if err.Issues[i] != want[i] {
			t.Errorf("issue %d = %+v, want %+v", i, err.Issues[i], want[i])
		}
	}
	if !strings.Contains(err.Error(), "5 validation issues") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidateClean(t *testing.T) {
	if err := ValidatePublications([]corpus.Publication{{Title: "A", PublicationURL: "a"}}); err != nil {
		t.Errorf("unexpected issues: %v", err)
	}
	if err := ValidatePublications(nil); err != nil {
		t.Errorf("empty collection: %v", err)
	}
}
