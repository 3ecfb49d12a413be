// Package corpus holds the publication records produced by the crawler and
// the stores they are read from: the crawler's JSON export, PostgreSQL and
// SQLite.
package corpus

import (
	"encoding/json"
	"fmt"
)

// Publication is one crawled listing entry. Only Title is indexed; the other
// fields, including any unknown ones kept in Extra, are returned to callers
// untouched.
type Publication struct {
	Title          string
	Year           string
	Authors        []string
	PublicationURL string
	Extra          map[string]any

	// missingTitle is set when a decoded record had no usable title key.
	missingTitle bool
}

// Untitled returns a publication that carries no title at all, as opposed
// to an empty one.
func Untitled(p Publication) Publication {
	p.Title = ""
	p.missingTitle = true
	return p
}

// IndexTitle implements index.Document.
func (p Publication) IndexTitle() (string, bool) {
	return p.Title, !p.missingTitle
}

var knownFields = map[string]struct{}{
	"title": {}, "year": {}, "authors": {}, "publication_url": {},
}

// UnmarshalJSON decodes the crawler's loose record shape. A missing, null
// or non-string title marks the publication untitled; a non-string title and
// unknown keys land in Extra.
func (p *Publication) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding publication: %w", err)
	}
	*p = Publication{}

	p.missingTitle = true
	if v, ok := raw["title"]; ok {
		var title *string
		if err := json.Unmarshal(v, &title); err == nil {
			if title != nil {
				p.Title, p.missingTitle = *title, false
			}
		} else {
			// Not a string: keep the raw value so it is written back as-is.
			var value any
			if err := json.Unmarshal(v, &value); err != nil {
				return fmt.Errorf("decoding publication title: %w", err)
			}
			p.Extra = map[string]any{"title": value}
		}
	}
	if v, ok := raw["year"]; ok {
		p.Year = decodeYear(v)
	}
	if v, ok := raw["authors"]; ok {
		if err := json.Unmarshal(v, &p.Authors); err != nil {
			return fmt.Errorf("decoding publication authors: %w", err)
		}
	}
	if v, ok := raw["publication_url"]; ok {
		if err := json.Unmarshal(v, &p.PublicationURL); err != nil {
			return fmt.Errorf("decoding publication url: %w", err)
		}
	}
	for key, v := range raw {
		if _, known := knownFields[key]; known {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return fmt.Errorf("decoding publication field %q: %w", key, err)
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[key] = value
	}
	return nil
}

// decodeYear accepts both "2021" and 2021.
func decodeYear(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

// MarshalJSON writes the known fields followed by Extra. An untitled
// publication is written without a title key so it round-trips.
func (p Publication) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		out[k] = v
	}
	if !p.missingTitle {
		out["title"] = p.Title
	}
	out["year"] = p.Year
	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	out["authors"] = authors
	out["publication_url"] = p.PublicationURL
	return json.Marshal(out)
}

// DisplayYear is how result lists show a publication year.
func DisplayYear(year string) string {
	if year == "" {
		return "Unknown"
	}
	return year
}
