package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"l10n-phrasebook/internal/markup"
	"l10n-phrasebook/internal/phrasebook"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(name, language, value string, line int) phrasebook.Entry {
	return phrasebook.Entry{
		Name: name,
		Version: phrasebook.Version{
			Language: language,
			Content:  markup.Parse(value),
			Location: phrasebook.SourceLocation{
				File:        "/tmp/graph.cfg",
				Line:        line,
				FirstColumn: 10,
				LastColumn:  10 + len(value),
				LastUpdated: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			},
		},
	}
}

func TestVersionParams(t *testing.T) {
	entries := []phrasebook.Entry{
		testEntry("Greeting", "en-us", "Hello", 1),
		testEntry("Greeting", "fr-fr", "Bonjour", 2),
	}
	entries[1].Version.Parameters = []string{"who"}
	entries[1].Version.Optional = true

	rows := versionParams(entries)
	require.Len(t, rows, 2)

	first := rows[0].(map[string]any)
	assert.Equal(t, "Greeting", first["name"])
	assert.Equal(t, "en-us", first["language"])
	assert.Equal(t, "Hello", first["content"])
	assert.Equal(t, []string{}, first["parameters"])
	assert.Equal(t, int64(1), first["line"])

	second := rows[1].(map[string]any)
	assert.Equal(t, []string{"who"}, second["parameters"])
	assert.Equal(t, true, second["optional"])
	assert.NotEqual(t, first["hash"], second["hash"])
}

func TestGraphBuilder_SyncFile(t *testing.T) {
	uri := os.Getenv("PHRASEBOOK_TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("PHRASEBOOK_TEST_NEO4J_URI not set")
	}

	ctx := context.Background()
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(
		os.Getenv("PHRASEBOOK_TEST_NEO4J_USER"), os.Getenv("PHRASEBOOK_TEST_NEO4J_PASSWORD"), ""))
	require.NoError(t, err)
	defer driver.Close(ctx)

	gb := NewGraphBuilder(driver)
	require.NoError(t, gb.EnsureSchema(ctx))

	require.NoError(t, gb.SyncFile(ctx, "/tmp/graph.cfg", []phrasebook.Entry{
		testEntry("GraphTestGreeting", "en-us", "Hello", 1),
	}))

	gq := NewGraphQuerier(driver)
	missing, err := gq.MissingTranslations(ctx, "fr-fr")
	require.NoError(t, err)
	assert.Contains(t, missing, "GraphTestGreeting")

	require.NoError(t, gb.SyncFile(ctx, "/tmp/graph.cfg", []phrasebook.Entry{
		testEntry("GraphTestGreeting", "en-us", "Hello", 1),
		testEntry("GraphTestGreeting", "fr-fr", "Bonjour", 2),
	}))
	missing, err = gq.MissingTranslations(ctx, "fr-fr")
	require.NoError(t, err)
	assert.NotContains(t, missing, "GraphTestGreeting")

	coverage, err := gq.Coverage(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, coverage)

	require.NoError(t, gb.SyncFile(ctx, "/tmp/graph.cfg", nil))
	missing, err = gq.MissingTranslations(ctx, "fr-fr")
	require.NoError(t, err)
	assert.NotContains(t, missing, "GraphTestGreeting")
}
