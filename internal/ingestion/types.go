// Package ingestion moves crawler output into the corpus store and tells
// running searchers to rebuild.
package ingestion

import "time"

// RefreshEvent is the corpus-refresh message published after an import.
type RefreshEvent struct {
	Source      string    `json:"source"`
	Documents   int       `json:"documents"`
	ContentHash string    `json:"content_hash"`
	RequestedAt time.Time `json:"requested_at"`
}

// ImportReport summarises one import.
type ImportReport struct {
	Documents   int    `json:"documents"`
	Untitled    int    `json:"untitled"`
	Warnings    int    `json:"warnings"`
	ContentHash string `json:"content_hash"`
	// Unchanged is set when the store already held identical content and
	// nothing was written.
	Unchanged bool `json:"unchanged"`
	Published bool `json:"published"`
}
