package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/groundcheck/internal/model"
)

// maxPrefilter bounds the rows read per candidate query before ranking
const maxPrefilter = 500

// SQLite persists chunks in a SQLite database using modernc.org/sqlite.
// Candidate queries are prefiltered through a term table and ranked in process.
type SQLite struct {
	db  *sql.DB
	dsn string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db, dsn: dsn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS chunks (
	id              TEXT PRIMARY KEY,
	source_document TEXT NOT NULL,
	text            TEXT NOT NULL,
	metadata        TEXT,
	entities        TEXT,
	indexed_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chunk_terms (
	term     TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	PRIMARY KEY (term, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_chunks_source_document ON chunks(source_document);
CREATE INDEX IF NOT EXISTS idx_chunk_terms_chunk_id ON chunk_terms(chunk_id);
`

// Migrate creates the schema if it does not exist
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ref identifies the store in results
func (s *SQLite) Ref() string {
	return "sqlite:" + s.dsn
}

// Put validates and upserts chunks in one transaction, rebuilding their terms
func (s *SQLite) Put(ctx context.Context, chunks ...model.DocumentChunk) error {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal metadata for %s", c.ID)
		}
		entities, err := json.Marshal(c.Entities)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal entities for %s", c.ID)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, source_document, text, metadata, entities, indexed_at) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET source_document = excluded.source_document, text = excluded.text,
			 metadata = excluded.metadata, entities = excluded.entities, indexed_at = excluded.indexed_at`,
			c.ID, c.SourceDocument, c.Text, string(metadata), string(entities), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert chunk %s", c.ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_terms WHERE chunk_id = ?`, c.ID); err != nil {
			return eris.Wrapf(err, "sqlite: clear terms %s", c.ID)
		}
		for _, term := range chunkTerms(c) {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO chunk_terms (term, chunk_id) VALUES (?, ?)`, term, c.ID); err != nil {
				return eris.Wrapf(err, "sqlite: insert term %s", c.ID)
			}
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// DeleteDocument removes every chunk of a source document and returns how many were removed
func (s *SQLite) DeleteDocument(ctx context.Context, document string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`DELETE FROM chunk_terms WHERE chunk_id IN (SELECT id FROM chunks WHERE source_document = ?)`, document)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete terms of %s", document)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_document = ?`, document)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete document %s", document)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Count returns the number of stored chunks
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count chunks")
	}
	return n, nil
}

// GetCandidates returns chunks sharing terms with the query, best first
func (s *SQLite) GetCandidates(ctx context.Context, queryText string, queryEntities []string, limit int) ([]model.DocumentChunk, error) {
	q := newQuery(queryText, queryEntities)
	lookup := lookupTerms(q)
	if len(lookup) == 0 || limit <= 0 {
		return []model.DocumentChunk{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(lookup)), ",")
	args := make([]any, 0, len(lookup)+1)
	for _, t := range lookup {
		args = append(args, t)
	}
	args = append(args, maxPrefilter)

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.source_document, c.text, c.metadata, c.entities
		 FROM chunks c JOIN (
			SELECT chunk_id, COUNT(*) AS hits FROM chunk_terms WHERE term IN (`+placeholders+`) GROUP BY chunk_id
		 ) t ON t.chunk_id = c.id
		 ORDER BY t.hits DESC, c.rowid
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.Unavailable("store.sqlite.get_candidates", eris.Wrap(err, "sqlite: query candidates"))
	}
	defer rows.Close()

	var chunks []model.DocumentChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.Unavailable("store.sqlite.get_candidates", eris.Wrap(err, "sqlite: iterate candidates"))
	}
	return rank(q, chunks, limit), nil
}

// GetChunk resolves a chunk by ID
func (s *SQLite) GetChunk(ctx context.Context, id string) (model.DocumentChunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_document, text, metadata, entities FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DocumentChunk{}, model.NotFound("store.sqlite.get_chunk", id)
	}
	return c, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanChunk(row scannable) (model.DocumentChunk, error) {
	var (
		c                  model.DocumentChunk
		metadata, entities sql.NullString
	)
	if err := row.Scan(&c.ID, &c.SourceDocument, &c.Text, &metadata, &entities); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, model.Unavailable("store.sqlite.scan", eris.Wrap(err, "sqlite: scan chunk"))
	}
	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &c.Metadata); err != nil {
			return c, model.Malformedf("store.sqlite.scan", "chunk %s metadata: %v", c.ID, err)
		}
	}
	if entities.Valid && entities.String != "" && entities.String != "null" {
		if err := json.Unmarshal([]byte(entities.String), &c.Entities); err != nil {
			return c, model.Malformedf("store.sqlite.scan", "chunk %s entities: %v", c.ID, err)
		}
	}
	return c, nil
}

// chunkTerms are the index terms of a chunk: its content tokens and the
// tokens of its annotated entities
func chunkTerms(c model.DocumentChunk) []string {
	terms := newQuery(c.Text, nil).terms
	for _, e := range c.Entities {
		terms = append(terms, newQuery(e.Text, nil).terms...)
	}
	return terms
}

// lookupTerms are the distinct terms a query looks up in the index
func lookupTerms(q query) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ts []string) {
		for _, t := range ts {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	add(q.terms)
	for _, e := range q.entities {
		add(newQuery(e, nil).terms)
	}
	return out
}
