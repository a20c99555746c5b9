package parser

import (
	"fmt"
	"time"
)

// Token is a literal run or a brace delimiter found on one line of a cfg file.
type Token struct {
	// Text is the token text, unmodified. Braces are tokens of their own.
	Text string
	// Line is the 1-based line number in the source file.
	Line int
	// Column is the 1-based column, in characters, at which the token starts.
	Column int
}

// Location points at the value of one key=value occurrence.
type Location struct {
	// File is the path of the source file.
	File string
	// Line is the 1-based line number of the assignment.
	Line int
	// FirstColumn is the 1-based column just after the '='.
	FirstColumn int
	// LastColumn is the 1-based column just past the end of the token.
	LastColumn int
	// LastUpdated is the time the occurrence was ingested.
	LastUpdated time.Time
}

// Entry is one key=value pair found directly inside a language block of a
// root Localization block.
type Entry struct {
	// Language is the name of the enclosing language block.
	Language string
	// Key is the raw key, trimmed of surrounding whitespace.
	Key string
	// Value is the raw value, trimmed of surrounding whitespace.
	Value string
	// Location is where the assignment was found.
	Location Location
}

// UnderflowError reports a '}' that closes no open block.
type UnderflowError struct {
	File   string
	Line   int
	Column int
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("unmatched '}' at %s:%d:%d", e.File, e.Line, e.Column)
}
