// Package markup classifies the rich text of localized values: <<...>>
// placeholders, optionally prefixed with a grammar tag, and ^X grammatical
// markers embedded in text.
package markup

import (
	"regexp"
	"strings"
)

const (
	placeholderOpen  = "<<"
	placeholderClose = ">>"
	markerPrefix     = "^"
	grammarSeparator = ":"
)

var (
	placeholderDelimiter = regexp.MustCompile(`<<|>>`)
	marker               = regexp.MustCompile(`\^[PpFfMmNn][^ ]*`)
	digits               = regexp.MustCompile(`^\p{Nd}+$`)
)

// Parse splits value into classified tokens. Every byte of value ends up in
// exactly one token, so Text(Parse(v)) == v.
func Parse(value string) []Token {
	parts := splitKeep(placeholderDelimiter, value)
	tokens := make([]Token, 0, len(parts))
	for i, part := range parts {
		switch {
		case i%2 == 1:
			tokens = append(tokens, Token{Kind: Operator, Text: part})
		case i > 0 && parts[i-1] == placeholderOpen:
			tokens = appendPlaceholder(tokens, part)
		default:
			tokens = appendText(tokens, part)
		}
	}
	return tokens
}

// appendPlaceholder classifies the inside of <<...>>. Grammar tags are kept
// whole; their comma lists are not interpreted.
func appendPlaceholder(tokens []Token, placeholder string) []Token {
	body := placeholder
	if tag, rest, ok := strings.Cut(placeholder, grammarSeparator); ok {
		tokens = append(tokens,
			Token{Kind: Keyword, Text: tag},
			Token{Kind: Punctuation, Text: grammarSeparator},
		)
		body = rest
	}
	if digits.MatchString(body) {
		return append(tokens, Token{Kind: Number, Text: body})
	}
	return appendText(tokens, body)
}

// appendText classifies text outside placeholders and non-numeric
// placeholder bodies. Empty runs are kept as empty String tokens.
func appendText(tokens []Token, text string) []Token {
	for i, part := range splitKeep(marker, text) {
		if i%2 == 0 {
			tokens = append(tokens, Token{Kind: String, Text: part})
			continue
		}
		tokens = append(tokens,
			Token{Kind: Operator, Text: markerPrefix},
			Token{Kind: Keyword, Text: strings.TrimPrefix(part, markerPrefix)},
		)
	}
	return tokens
}

// splitKeep splits s around every match of re. Matches are kept at odd
// positions, so the result always has odd length.
func splitKeep(re *regexp.Regexp, s string) []string {
	locs := re.FindAllStringIndex(s, -1)
	parts := make([]string, 0, 2*len(locs)+1)
	start := 0
	for _, loc := range locs {
		parts = append(parts, s[start:loc[0]], s[loc[0]:loc[1]])
		start = loc[1]
	}
	return append(parts, s[start:])
}
