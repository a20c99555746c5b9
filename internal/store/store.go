// Package store mirrors indexed phrase versions into PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"l10n-phrasebook/internal/markup"
	"l10n-phrasebook/internal/phrasebook"
	"l10n-phrasebook/internal/textutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS phrase_versions (
	hash         TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	language     TEXT NOT NULL,
	parameters   TEXT[],
	optional     BOOLEAN NOT NULL DEFAULT FALSE,
	content      TEXT NOT NULL,
	markup       JSONB NOT NULL,
	file         TEXT NOT NULL,
	line         INTEGER NOT NULL,
	first_column INTEGER NOT NULL,
	last_column  INTEGER NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS phrase_versions_file_idx ON phrase_versions (file);
CREATE INDEX IF NOT EXISTS phrase_versions_name_idx ON phrase_versions (name);
`

const insertVersion = `
INSERT INTO phrase_versions
	(hash, name, language, parameters, optional, content, markup, file, line, first_column, last_column, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (hash) DO UPDATE SET
	name = EXCLUDED.name,
	language = EXCLUDED.language,
	parameters = EXCLUDED.parameters,
	optional = EXCLUDED.optional,
	content = EXCLUDED.content,
	markup = EXCLUDED.markup,
	updated_at = EXCLUDED.updated_at
`

// Row is one phrase_versions record.
type Row struct {
	Hash        string
	Name        string
	Language    string
	Parameters  []string
	Optional    bool
	Content     string
	Markup      []byte
	File        string
	Line        int
	FirstColumn int
	LastColumn  int
	UpdatedAt   time.Time
}

// PhraseStore is a phrasebook.Sink backed by PostgreSQL. Every sync
// replaces the rows of one file inside a single transaction.
type PhraseStore struct {
	pool *pgxpool.Pool
}

// NewPhraseStore creates a store on pool.
func NewPhraseStore(pool *pgxpool.Pool) *PhraseStore {
	return &PhraseStore{pool: pool}
}

// EnsureSchema creates the phrase_versions table and its indexes.
func (s *PhraseStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create phrase schema: %w", err)
	}
	log.Info().Msg("Phrase schema ensured")
	return nil
}

// SyncFile replaces every stored version defined in file with entries.
func (s *PhraseStore) SyncFile(ctx context.Context, file string, entries []phrasebook.Entry) error {
	rows, err := BuildRows(entries)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM phrase_versions WHERE file = $1", file); err != nil {
		return fmt.Errorf("delete versions of %s: %w", file, err)
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertVersion,
			r.Hash, r.Name, r.Language, r.Parameters, r.Optional, r.Content, r.Markup,
			r.File, r.Line, r.FirstColumn, r.LastColumn, r.UpdatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert versions of %s: %w", file, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}

	log.Debug().Str("file", file).Int("versions", len(rows)).Msg("Synced phrase versions")
	return nil
}

// Versions returns the stored versions of a phrase ordered by file and position.
func (s *PhraseStore) Versions(ctx context.Context, name string) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT hash, name, language, parameters, optional, content, markup,
		       file, line, first_column, last_column, updated_at
		FROM phrase_versions
		WHERE name = $1
		ORDER BY file, line, first_column
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		var r Row
		err := row.Scan(&r.Hash, &r.Name, &r.Language, &r.Parameters, &r.Optional, &r.Content, &r.Markup,
			&r.File, &r.Line, &r.FirstColumn, &r.LastColumn, &r.UpdatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan versions: %w", err)
	}
	return result, nil
}

// Count returns the number of stored versions.
func (s *PhraseStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM phrase_versions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return n, nil
}

// BuildRows converts index entries into table rows.
func BuildRows(entries []phrasebook.Entry) ([]Row, error) {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		v := e.Version
		content, err := json.Marshal(v.Content)
		if err != nil {
			return nil, fmt.Errorf("encode markup of %s: %w", e.Name, err)
		}
		rows = append(rows, Row{
			Hash:        VersionHash(e),
			Name:        e.Name,
			Language:    v.Language,
			Parameters:  v.Parameters,
			Optional:    v.Optional,
			Content:     markup.Text(v.Content),
			Markup:      content,
			File:        v.Location.File,
			Line:        v.Location.Line,
			FirstColumn: v.Location.FirstColumn,
			LastColumn:  v.Location.LastColumn,
			UpdatedAt:   v.Location.LastUpdated,
		})
	}
	return rows, nil
}

// VersionHash identifies a version by where it is defined.
func VersionHash(e phrasebook.Entry) string {
	loc := e.Version.Location
	return textutil.Hash(loc.File + ":" + strconv.Itoa(loc.Line) + ":" + strconv.Itoa(loc.FirstColumn) + ":" + e.Name)
}
