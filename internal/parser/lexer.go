package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	commentMarker = "//"
	byteOrderMark = "\ufeff"
)

// LexFile streams the tokens of the cfg file at path to emit.
// The file handle is owned by this call and closed before it returns.
func LexFile(path string, emit func(Token) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cfg file: %w", err)
	}
	defer file.Close()

	return LexReader(file, emit)
}

// LexReader splits every line read from r into brace delimiters and literal
// runs. A byte order mark at the start of the input is dropped. Everything
// from the first "//" on a line is dropped, with no regard for string
// literals. Empty runs between delimiters are emitted too. Lines have no
// length limit. Lexing stops at the first error returned by emit.
func LexReader(r io.Reader, emit func(Token) error) error {
	reader := bufio.NewReader(r)

	for lineNum := 1; ; lineNum++ {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("read cfg file: %w", readErr)
		}
		if raw == "" && readErr == io.EOF {
			return nil
		}

		text := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if lineNum == 1 {
			text = strings.TrimPrefix(text, byteOrderMark)
		}
		line, _, _ := strings.Cut(text, commentMarker)

		column := 1
		for _, run := range splitBraces(line) {
			if err := emit(Token{Text: run, Line: lineNum, Column: column}); err != nil {
				return err
			}
			column += utf8.RuneCountInString(run)
		}

		if readErr == io.EOF {
			return nil
		}
	}
}

// splitBraces splits s around '{' and '}', keeping the braces.
// The result always alternates run, brace, run, ..., run.
func splitBraces(s string) []string {
	parts := make([]string, 0, 3)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '}' {
			parts = append(parts, s[start:i], s[i:i+1])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
