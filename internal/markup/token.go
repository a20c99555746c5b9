package markup

import (
	"fmt"
	"strings"
)

// Kind classifies a run of markup text.
type Kind int

const (
	Operator Kind = iota
	Keyword
	Number
	String
	Punctuation
)

func (k Kind) String() string {
	switch k {
	case Operator:
		return "Operator"
	case Keyword:
		return "Keyword"
	case Number:
		return "Number"
	case String:
		return "String"
	case Punctuation:
		return "Punctuation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is a classified run of a localized value.
type Token struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

// Text concatenates the text of tokens. For the output of Parse this is the
// parsed value itself.
func Text(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Format renders tokens as space separated Kind("text") terms.
func Format(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
