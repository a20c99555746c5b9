package phrasebook

import (
	"strings"
)

// Span is a half-open byte range [Start, End) of a query text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether offset lies in s.
func (s Span) Contains(offset int) bool {
	return s.Start <= offset && offset < s.End
}

// Match is the result of a lookup.
type Match struct {
	Span   Span   `json:"span"`
	Phrase Phrase `json:"phrase"`
	// Instances is the number of sessions open on the index.
	Instances int64 `json:"instances"`
}

// Lookup finds a phrase name occurring in text whose occurrence covers the
// byte offset. Names are matched as plain substrings, so a short name inside
// a longer word matches too; longer names are tried first. Every name is
// scanned on each call, which is fine for phrasebooks of a few thousand keys.
func (idx *Index) Lookup(text string, offset int) (Match, bool) {
	if offset < 0 || offset >= len(text) {
		return Match{}, false
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, name := range idx.keys {
		p := idx.phrases[name]
		if name == "" || len(p.Versions) == 0 {
			continue
		}
		if span, ok := findCovering(text, name, offset); ok {
			return Match{Span: span, Phrase: p.clone(), Instances: idx.sessions.Load()}, true
		}
	}
	return Match{}, false
}

// findCovering scans the non-overlapping occurrences of key in text for one
// covering offset.
func findCovering(text, key string, offset int) (Span, bool) {
	from := 0
	for from <= offset {
		i := strings.Index(text[from:], key)
		if i < 0 {
			break
		}
		span := Span{Start: from + i, End: from + i + len(key)}
		if span.Contains(offset) {
			return span, true
		}
		from = span.End
	}
	return Span{}, false
}
