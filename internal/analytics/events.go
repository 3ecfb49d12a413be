// Package analytics collects search and rebuild events, ships them over
// Kafka and aggregates them into the stats served on /api/v1/analytics.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventRebuild    EventType = "index_rebuild"
)

// SearchEvent records one answered query.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyUs  int64     `json:"latency_us"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// RebuildEvent records one completed index build.
type RebuildEvent struct {
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Untitled   int       `json:"untitled"`
	Timestamp  time.Time `json:"timestamp"`
}

// decodeEvent returns a *SearchEvent or *RebuildEvent depending on the
// type field of value.
func decodeEvent(value []byte) (any, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return nil, fmt.Errorf("decoding event type: %w", err)
	}
	switch head.Type {
	case EventSearch, EventZeroResult:
		var e SearchEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("decoding search event: %w", err)
		}
		return &e, nil
	case EventRebuild:
		var e RebuildEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("decoding rebuild event: %w", err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}
