package phrasebook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupIndex(t *testing.T, content string) *Index {
	t.Helper()
	fs := newMemFS()
	path := cfgPath(t, t.TempDir(), "a.cfg")
	fs.write(path, content)
	idx := newTestIndex(t, fs)
	require.NoError(t, idx.AddFile(context.Background(), path))
	return idx
}

func TestLookup(t *testing.T) {
	idx := lookupIndex(t, "Localization { en-us {\n Greeting = Hello\n Greet = Hi\n #autoLOC_1 = One\n } }")

	testCases := []struct {
		description string
		text        string
		offset      int
		expectName  string
		expectSpan  Span
	}{
		{description: "start of key", text: "Greeting", offset: 0, expectName: "Greeting", expectSpan: Span{0, 8}},
		{description: "last byte of key", text: "x Greeting y", offset: 9, expectName: "Greeting", expectSpan: Span{2, 10}},
		{description: "longer key wins", text: "Greeting", offset: 1, expectName: "Greeting", expectSpan: Span{0, 8}},
		{description: "shorter key alone", text: "Greets", offset: 2, expectName: "Greet", expectSpan: Span{0, 5}},
		{description: "second occurrence", text: "#autoLOC_1 and #autoLOC_1", offset: 20, expectName: "#autoLOC_1", expectSpan: Span{15, 25}},
		{description: "query text is not comment stripped", text: "// Greeting shown here", offset: 5, expectName: "Greeting", expectSpan: Span{3, 11}},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			m, ok := idx.Lookup(tc.text, tc.offset)
			require.True(t, ok)
			assert.Equal(t, tc.expectName, m.Phrase.Name)
			assert.Equal(t, tc.expectSpan, m.Span)
		})
	}
}

func TestLookup_NoMatch(t *testing.T) {
	idx := lookupIndex(t, "Localization { en-us { Greeting = Hello } }")

	testCases := []struct {
		description string
		text        string
		offset      int
	}{
		{description: "offset before key", text: "say Greeting", offset: 1},
		{description: "offset just past key", text: "Greeting!", offset: 8},
		{description: "negative offset", text: "Greeting", offset: -1},
		{description: "offset past text", text: "Greeting", offset: 8},
		{description: "no key in text", text: "nothing here", offset: 3},
		{description: "empty text", text: "", offset: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, ok := idx.Lookup(tc.text, tc.offset)
			assert.False(t, ok)
		})
	}
}

func TestLookup_CommentedSourceDefinesNothing(t *testing.T) {
	idx := lookupIndex(t, "Localization { en-us {\n // Greeting = Hello\n } }")

	_, ok := idx.Lookup("Greeting shown here", 3)
	assert.False(t, ok)
}

func TestLookup_SubstringLimitation(t *testing.T) {
	idx := lookupIndex(t, "Localization { en-us { in = dans } }")

	m, ok := idx.Lookup("print", 2)
	require.True(t, ok)
	assert.Equal(t, "in", m.Phrase.Name)
}

func TestLookup_ReturnsCopy(t *testing.T) {
	idx := lookupIndex(t, "Localization { en-us { Greeting = Hello } }")

	m, ok := idx.Lookup("Greeting", 0)
	require.True(t, ok)
	m.Phrase.Versions[0].Language = "changed"

	p, _ := idx.Phrase("Greeting")
	assert.Equal(t, "en-us", p.Versions[0].Language)
}

func TestLookup_ReportsInstances(t *testing.T) {
	idx := lookupIndex(t, "Localization { en-us { Greeting = Hello } }")
	s1, s2 := idx.Open(), idx.Open()
	defer s1.Close()

	m, _ := idx.Lookup("Greeting", 0)
	assert.Equal(t, int64(2), m.Instances)

	s2.Close()
	s2.Close()
	m, _ = idx.Lookup("Greeting", 0)
	assert.Equal(t, int64(1), m.Instances)
}

func TestCompareKeys(t *testing.T) {
	idx := New()
	for _, k := range []string{"b", "aaa", "a", "cc", "bb"} {
		idx.insertKeyLocked(k)
	}
	assert.Equal(t, []string{"aaa", "bb", "cc", "a", "b"}, idx.keys)
}
