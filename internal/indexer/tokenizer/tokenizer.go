// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input and splits it into runs of ASCII letters; digits,
// punctuation and single-letter runs only separate terms.
package tokenizer

import (
	"strings"
)

// MinTermLength is the shortest letter run kept as a term.
const MinTermLength = 2

// Tokenize breaks text into lowercased terms in order of appearance.
// It never fails: any input, including the empty string, yields a
// (possibly empty) slice.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	terms := make([]string, 0, len(text)/6)
	start := -1
	for i := 0; i < len(text); i++ {
		if isLetter(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			terms = appendTerm(terms, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		terms = appendTerm(terms, text[start:])
	}
	return terms
}

func appendTerm(terms []string, run string) []string {
	if len(run) < MinTermLength {
		return terms
	}
	return append(terms, run)
}

// isLetter reports whether b is a lowercase ASCII letter. Bytes of
// multi-byte UTF-8 sequences are never letters here, so non-ASCII
// characters act as separators.
func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}
