package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Coverage is how many phrases have at least one version in a language.
type Coverage struct {
	Language string
	Phrases  int
}

// GraphQuerier answers translation coverage questions from the phrase graph.
type GraphQuerier struct {
	driver neo4j.DriverWithContext
}

// NewGraphQuerier creates a new graph querier.
func NewGraphQuerier(driver neo4j.DriverWithContext) *GraphQuerier {
	return &GraphQuerier{driver: driver}
}

// Coverage counts translated phrases per language, most covered first.
func (gq *GraphQuerier) Coverage(ctx context.Context) ([]Coverage, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (p:Phrase)-[:HAS_VERSION]->(:Version)-[:IN_LANGUAGE]->(l:Language)
		RETURN l.name AS language, count(DISTINCT p) AS phrases
		ORDER BY phrases DESC, language
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}

	var coverage []Coverage
	for result.Next(ctx) {
		record := result.Record()
		language, _ := record.Get("language")
		phrases, _ := record.Get("phrases")
		n, _ := phrases.(int64)
		coverage = append(coverage, Coverage{
			Language: fmt.Sprintf("%v", language),
			Phrases:  int(n),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read coverage: %w", err)
	}

	log.Debug().Int("languages", len(coverage)).Msg("Graph coverage query complete")
	return coverage, nil
}

// MissingTranslations lists phrases that have no version in language.
func (gq *GraphQuerier) MissingTranslations(ctx context.Context, language string) ([]string, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (p:Phrase)
		WHERE NOT (p)-[:HAS_VERSION]->(:Version {language: $language})
		RETURN p.name AS name
		ORDER BY name
	`, map[string]any{"language": language})
	if err != nil {
		return nil, fmt.Errorf("query missing translations: %w", err)
	}

	var names []string
	for result.Next(ctx) {
		name, _ := result.Record().Get("name")
		names = append(names, fmt.Sprintf("%v", name))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read missing translations: %w", err)
	}

	log.Info().Str("language", language).Int("missing", len(names)).Msg("Loaded missing translations")
	return names, nil
}
