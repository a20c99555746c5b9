package parser

import (
	"regexp"
	"strings"
)

// Key is a raw key decomposed into a phrase name and its decorations.
type Key struct {
	// Name is the phrase name, used as the index key.
	Name string
	// Parameters lists the declared parameter names, nil when there is no list.
	Parameters []string
	// Optional is set when the key ends with "." followed by its own language.
	Optional bool
}

// parameterList matches "name(a,b,c)" with no nested parentheses.
var parameterList = regexp.MustCompile(`^([^(]*)\(([^)]*)\)$`)

// ParseKey splits key, found in a block for language, into its parts.
// The language suffix is checked first, then the parameter list.
// Anything that does not parse as a parameter list is kept as the name.
func ParseKey(key, language string) Key {
	k := Key{Name: key}

	if name, ok := strings.CutSuffix(k.Name, "."+language); ok {
		k.Name = name
		k.Optional = true
	}

	if m := parameterList.FindStringSubmatch(k.Name); m != nil {
		k.Name = m[1]
		k.Parameters = strings.Split(m[2], ",")
	}

	return k
}
