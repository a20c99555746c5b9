package parser

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

// RootBlock is the name of the only root block whose contents are indexed.
const RootBlock = "Localization"

type state int

const (
	stateOutside        state = iota // depth 0
	stateInLocalization              // inside Localization
	stateInLanguage                  // inside Localization/<language>
	stateDeeper                      // below a language block
	stateElsewhere                   // inside a root block other than Localization
)

// Reducer folds the token stream of one file into entries.
type Reducer struct {
	file     string
	now      func() time.Time
	state    state
	depth    int
	language string
	pending  string
	entries  []Entry

	keepLabel bool
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// KeepLabelAcrossBlankRuns makes whitespace-only runs leave the pending
// block name alone, so a '{' on its own line opens the block named on the
// line before. By default every run replaces the name, and such a block is
// unnamed.
func KeepLabelAcrossBlankRuns() ReducerOption {
	return func(r *Reducer) { r.keepLabel = true }
}

// NewReducer returns a reducer for tokens of file. now stamps each entry's
// location; nil means time.Now.
func NewReducer(file string, now func() time.Time, opts ...ReducerOption) *Reducer {
	if now == nil {
		now = time.Now
	}
	r := &Reducer{file: file, now: now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Feed consumes one token. It fails only on a '}' that closes nothing.
func (r *Reducer) Feed(tok Token) error {
	switch {
	case tok.Text == "{":
		r.open()
	case tok.Text == "}":
		return r.close(tok)
	case strings.Contains(tok.Text, "="):
		r.assign(tok)
	default:
		r.label(tok)
	}
	return nil
}

// Entries returns the entries found so far, in source order.
func (r *Reducer) Entries() []Entry {
	return r.entries
}

func (r *Reducer) open() {
	r.depth++
	switch r.state {
	case stateOutside:
		if r.pending == RootBlock {
			r.state = stateInLocalization
		} else {
			r.state = stateElsewhere
		}
	case stateInLocalization:
		r.state = stateInLanguage
		r.language = r.pending
	case stateInLanguage:
		r.state = stateDeeper
	}
	r.pending = ""
}

func (r *Reducer) close(tok Token) error {
	if r.state == stateOutside {
		return &UnderflowError{File: r.file, Line: tok.Line, Column: tok.Column}
	}
	r.depth--
	switch {
	case r.depth == 0:
		r.state = stateOutside
	case r.state == stateElsewhere:
		// Stays elsewhere until the root block closes.
	case r.depth == 1:
		r.state = stateInLocalization
		r.language = ""
	case r.depth == 2:
		r.state = stateInLanguage
	}
	r.pending = ""
	return nil
}

func (r *Reducer) assign(tok Token) {
	if r.state != stateInLanguage {
		return
	}
	rawKey, rawValue, _ := strings.Cut(tok.Text, "=")
	r.entries = append(r.entries, Entry{
		Language: r.language,
		Key:      strings.TrimSpace(rawKey),
		Value:    strings.TrimSpace(rawValue),
		Location: Location{
			File:        r.file,
			Line:        tok.Line,
			FirstColumn: tok.Column + utf8.RuneCountInString(rawKey) + 1,
			LastColumn:  tok.Column + utf8.RuneCountInString(tok.Text),
			LastUpdated: r.now(),
		},
	})
}

func (r *Reducer) label(tok Token) {
	if r.state == stateDeeper || r.state == stateElsewhere {
		return
	}
	name := strings.TrimSpace(tok.Text)
	if name == "" && r.keepLabel {
		return
	}
	r.pending = name
}

// Parse lexes and reduces the cfg content read from r, attributing entries
// to file. On an *UnderflowError the entries found before it are returned
// along with the error.
func Parse(file string, rd io.Reader, now func() time.Time, opts ...ReducerOption) ([]Entry, error) {
	reducer := NewReducer(file, now, opts...)
	err := LexReader(rd, reducer.Feed)
	return reducer.Entries(), err
}

// ParseFile opens path and parses it.
func ParseFile(path string, opts ...ReducerOption) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cfg file: %w", err)
	}
	defer file.Close()

	return Parse(path, file, nil, opts...)
}
