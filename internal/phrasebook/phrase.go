package phrasebook

import (
	"strings"
	"time"

	"l10n-phrasebook/internal/markup"
	"l10n-phrasebook/internal/parser"
)

// SourceLocation is where one version of a phrase is defined.
type SourceLocation struct {
	File        string    `json:"file"`
	Line        int       `json:"line"`
	FirstColumn int       `json:"first_column"`
	LastColumn  int       `json:"last_column"`
	LastUpdated time.Time `json:"last_updated"`
}

// Locator is the (file, line, column range) triple used to navigate to a
// definition.
type Locator struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	FirstColumn int    `json:"first_column"`
	LastColumn  int    `json:"last_column"`
}

// Version is one language's rendering of a phrase.
type Version struct {
	// Language is the name of the block the definition was found in.
	Language string `json:"language"`
	// Parameters are the declared parameter names, nil if none were declared.
	Parameters []string `json:"parameters,omitempty"`
	// Optional marks a key suffixed with its own language.
	Optional bool `json:"optional"`
	// Content is the classified value.
	Content  []markup.Token `json:"content"`
	Location SourceLocation `json:"location"`
}

// Phrase is a translation key with every version discovered for it, in
// discovery order. Several versions may share a language.
type Phrase struct {
	Name     string    `json:"name"`
	Versions []Version `json:"versions"`
}

// Entry pairs a version with the name of its phrase.
type Entry struct {
	Name    string
	Version Version
}

func newEntries(found []parser.Entry) []Entry {
	entries := make([]Entry, 0, len(found))
	for _, e := range found {
		key := parser.ParseKey(e.Key, e.Language)
		entries = append(entries, Entry{
			Name: key.Name,
			Version: Version{
				Language:   e.Language,
				Parameters: key.Parameters,
				Optional:   key.Optional,
				Content:    markup.Parse(e.Value),
				Location: SourceLocation{
					File:        e.Location.File,
					Line:        e.Location.Line,
					FirstColumn: e.Location.FirstColumn,
					LastColumn:  e.Location.LastColumn,
					LastUpdated: e.Location.LastUpdated,
				},
			},
		})
	}
	return entries
}

func (p *Phrase) clone() Phrase {
	versions := make([]Version, len(p.Versions))
	copy(versions, p.Versions)
	return Phrase{Name: p.Name, Versions: versions}
}

// Locator returns the navigation target of v.
func (v Version) Locator() Locator {
	return Locator{
		File:        v.Location.File,
		Line:        v.Location.Line,
		FirstColumn: v.Location.FirstColumn,
		LastColumn:  v.Location.LastColumn,
	}
}

// Prefix returns the heading shown before the content of v:
// "(a,b)" when parameters are declared, "." when optional, then
// the language and ": ".
func (v Version) Prefix() []markup.Token {
	var tokens []markup.Token
	if v.Parameters != nil {
		tokens = append(tokens, markup.Token{Kind: markup.Punctuation, Text: "("})
		for i, p := range v.Parameters {
			if i > 0 {
				tokens = append(tokens, markup.Token{Kind: markup.Punctuation, Text: ","})
			}
			tokens = append(tokens, markup.Token{Kind: markup.String, Text: p})
		}
		tokens = append(tokens, markup.Token{Kind: markup.Punctuation, Text: ")"})
	}
	if v.Optional {
		tokens = append(tokens, markup.Token{Kind: markup.Operator, Text: "."})
	}
	return append(tokens,
		markup.Token{Kind: markup.String, Text: v.Language},
		markup.Token{Kind: markup.Punctuation, Text: ": "},
	)
}

// Line is one displayable row of a phrase.
type Line struct {
	Tokens  []markup.Token `json:"tokens"`
	Locator Locator        `json:"locator"`
}

// String renders the line as plain text.
func (l Line) String() string {
	return markup.Text(l.Tokens)
}

// Lines returns one row per version, prefix followed by content.
func (p Phrase) Lines() []Line {
	lines := make([]Line, 0, len(p.Versions))
	for _, v := range p.Versions {
		tokens := append(v.Prefix(), v.Content...)
		lines = append(lines, Line{Tokens: tokens, Locator: v.Locator()})
	}
	return lines
}

// Languages returns the distinct languages of p in discovery order.
func (p Phrase) Languages() []string {
	var languages []string
	seen := make(map[string]bool)
	for _, v := range p.Versions {
		if !seen[v.Language] {
			seen[v.Language] = true
			languages = append(languages, v.Language)
		}
	}
	return languages
}

// String renders p as its name followed by one indented line per version.
func (p Phrase) String() string {
	var sb strings.Builder
	sb.WriteString(p.Name)
	for _, l := range p.Lines() {
		sb.WriteString("\n  ")
		sb.WriteString(l.String())
	}
	return sb.String()
}
