package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func parseString(t *testing.T, src string) ([]Entry, error) {
	t.Helper()
	return Parse("test.cfg", strings.NewReader(src), fixedNow)
}

func TestParse_SingleLine(t *testing.T) {
	entries, err := parseString(t, "Localization { en-us { Greeting = Hello, <<name>>! } }")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "en-us", e.Language)
	assert.Equal(t, "Greeting", e.Key)
	assert.Equal(t, "Hello, <<name>>!", e.Value)
	assert.Equal(t, "test.cfg", e.Location.File)
	assert.Equal(t, 1, e.Location.Line)
	// the token " Greeting = Hello, <<name>>! " starts at column 23
	assert.Equal(t, 34, e.Location.FirstColumn)
	assert.Equal(t, 23+len(" Greeting = Hello, <<name>>! "), e.Location.LastColumn)
	assert.Equal(t, fixedNow(), e.Location.LastUpdated)
}

const ownLineBraceSource = `Localization
{
	en-us
	{
		#autoLOC_1 = First
		#autoLOC_2 = Second
	}
	fr-fr
	{
		#autoLOC_1 = Premier
	}
}
`

func TestParse_BraceOnOwnLineOpensUnnamedBlock(t *testing.T) {
	entries, err := parseString(t, "Localization\n{ en-us { a = b } }")
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = parseString(t, ownLineBraceSource)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParse_KeepLabelAcrossBlankRuns(t *testing.T) {
	entries, err := Parse("test.cfg", strings.NewReader(ownLineBraceSource), fixedNow, KeepLabelAcrossBlankRuns())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "en-us", entries[0].Language)
	assert.Equal(t, "#autoLOC_2", entries[1].Key)
	assert.Equal(t, 6, entries[1].Location.Line)
	assert.Equal(t, "fr-fr", entries[2].Language)
	assert.Equal(t, "Premier", entries[2].Value)
}

func TestParse_ByteOrderMark(t *testing.T) {
	entries, err := parseString(t, "\ufeffLocalization { en-us { a = b } }")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "en-us", entries[0].Language)
	assert.Equal(t, "a", entries[0].Key)
	// columns are measured from the visible text
	assert.Equal(t, 27, entries[0].Location.FirstColumn)
}

func TestParse_Scoping(t *testing.T) {
	testCases := []struct {
		description string
		src         string
	}{
		{description: "depth zero", src: "a = b"},
		{description: "depth one", src: "Localization { a = b }"},
		{description: "depth three", src: "Localization { en-us { Node { a = b } } }"},
		{description: "foreign root", src: "PART { en-us { a = b } }"},
		{description: "nested localization under foreign root", src: "PART { Localization { en-us { a = b } } }"},
		{description: "commented out", src: "Localization { en-us { // a = b\n } }"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			entries, err := parseString(t, tc.src)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestParse_ResumesAfterNestedBlock(t *testing.T) {
	src := "Localization { en-us { Node { x = y } after = yes } }"
	entries, err := parseString(t, src)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "after", entries[0].Key)
	assert.Equal(t, "yes", entries[0].Value)
}

func TestParse_SecondRootBlock(t *testing.T) {
	src := "PART { name = x }\nLocalization { ru { a = б } }\nOther { ru { c = d } }"
	entries, err := parseString(t, src)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ru", entries[0].Language)
	assert.Equal(t, "б", entries[0].Value)
}

func TestParse_ValueSplitAtFirstEquals(t *testing.T) {
	entries, err := parseString(t, "Localization { en-us { a = b = c } }")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b = c", entries[0].Value)
}

func TestParse_Underflow(t *testing.T) {
	entries, err := parseString(t, "Localization { en-us { a = b } }\n}")

	var underflow *UnderflowError
	require.ErrorAs(t, err, &underflow)
	assert.Equal(t, "test.cfg", underflow.File)
	assert.Equal(t, 2, underflow.Line)
	assert.Equal(t, 1, underflow.Column)
	assert.Len(t, entries, 1)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strings.cfg")
	require.NoError(t, os.WriteFile(path, []byte("Localization { zh-cn { 你好 = 世界 } }\n"), 0644))

	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].Location.File)
	assert.Equal(t, "你好", entries[0].Key)

	_, err = ParseFile(filepath.Join(dir, "missing.cfg"))
	assert.Error(t, err)
}
