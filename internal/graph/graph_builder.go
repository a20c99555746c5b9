package graph

import (
	"context"
	"fmt"

	"l10n-phrasebook/internal/markup"
	"l10n-phrasebook/internal/phrasebook"
	"l10n-phrasebook/internal/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// GraphBuilder mirrors the index into Neo4j as
// (:Phrase)-[:HAS_VERSION]->(:Version)-[:DEFINED_IN]->(:File), with each
// version also linked to its (:Language).
type GraphBuilder struct {
	driver neo4j.DriverWithContext
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(driver neo4j.DriverWithContext) *GraphBuilder {
	return &GraphBuilder{driver: driver}
}

// EnsureSchema creates constraints and indexes on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Phrase) REQUIRE p.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (f:File) REQUIRE f.path IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (l:Language) REQUIRE l.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (v:Version) REQUIRE v.hash IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// SyncFile replaces the versions defined in file. Phrases left without any
// version are removed.
func (gb *GraphBuilder) SyncFile(ctx context.Context, file string, entries []phrasebook.Entry) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	params := map[string]any{
		"file":     file,
		"versions": versionParams(entries),
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (:File {path: $file})<-[:DEFINED_IN]-(v:Version)
			DETACH DELETE v
		`, params); err != nil {
			return nil, fmt.Errorf("delete versions: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MERGE (f:File {path: $file})
			WITH f
			UNWIND $versions AS row
			MERGE (p:Phrase {name: row.name})
			MERGE (l:Language {name: row.language})
			CREATE (v:Version {
				hash: row.hash,
				language: row.language,
				parameters: row.parameters,
				optional: row.optional,
				content: row.content,
				line: row.line,
				first_column: row.first_column,
				last_column: row.last_column,
				updated_at: row.updated_at
			})
			CREATE (p)-[:HAS_VERSION]->(v)
			CREATE (v)-[:DEFINED_IN]->(f)
			CREATE (v)-[:IN_LANGUAGE]->(l)
		`, params); err != nil {
			return nil, fmt.Errorf("create versions: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (p:Phrase)
			WHERE NOT (p)-[:HAS_VERSION]->()
			DETACH DELETE p
		`, nil); err != nil {
			return nil, fmt.Errorf("prune phrases: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("sync %s to graph: %w", file, err)
	}

	log.Debug().Str("file", file).Int("versions", len(entries)).Msg("Synced phrase graph")
	return nil
}

// versionParams converts entries to Cypher parameter maps.
func versionParams(entries []phrasebook.Entry) []any {
	rows := make([]any, 0, len(entries))
	for _, e := range entries {
		v := e.Version
		parameters := v.Parameters
		if parameters == nil {
			parameters = []string{}
		}
		rows = append(rows, map[string]any{
			"hash":         store.VersionHash(e),
			"name":         e.Name,
			"language":     v.Language,
			"parameters":   parameters,
			"optional":     v.Optional,
			"content":      markup.Text(v.Content),
			"line":         int64(v.Location.Line),
			"first_column": int64(v.Location.FirstColumn),
			"last_column":  int64(v.Location.LastColumn),
			"updated_at":   v.Location.LastUpdated,
		})
	}
	return rows
}
