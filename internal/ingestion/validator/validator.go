// Package validator checks crawled publications before they replace the
// corpus. Most findings are warnings: the index copes with untitled or
// oddly shaped records, but the operator should hear about them.
package validator

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
)

const maxTitleLength = 1024

// Issue is one finding about the record at Index.
type Issue struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError holds every issue found in a collection.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	const shown = 5
	parts := make([]string, 0, shown)
	for i, issue := range e.Issues {
		if i == shown {
			break
		}
		parts = append(parts, fmt.Sprintf("#%d %s: %s", issue.Index, issue.Field, issue.Message))
	}
	msg := strings.Join(parts, "; ")
	if extra := len(e.Issues) - shown; extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return fmt.Sprintf("%d validation issues: %s", len(e.Issues), msg)
}

// ValidatePublications returns nil when pubs has no issues.
func ValidatePublications(pubs []corpus.Publication) *ValidationError {
	var issues []Issue
	seenURL := make(map[string]int, len(pubs))
	for i, p := range pubs {
		title, ok := p.IndexTitle()
		switch {
		case !ok:
			issues = append(issues, Issue{i, "title", "missing"})
		case strings.TrimSpace(title) == "":
			issues = append(issues, Issue{i, "title", "blank"})
		case len(title) > maxTitleLength:
			issues = append(issues, Issue{i, "title", fmt.Sprintf("longer than %d bytes", maxTitleLength)})
		}
		if p.PublicationURL == "" {
			issues = append(issues, Issue{i, "publication_url", "missing"})
		} else if first, dup := seenURL[p.PublicationURL]; dup {
			issues = append(issues, Issue{i, "publication_url", fmt.Sprintf("duplicate of #%d", first)})
		} else {
			seenURL[p.PublicationURL] = i
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}
