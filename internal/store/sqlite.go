package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/docfuse/docfuse/internal/chunk"
	"github.com/docfuse/docfuse/internal/errors"
)

// SQLiteTextStore implements TextStore on SQLite FTS5. A payload table
// holds chunk attributes; the FTS5 virtual table holds the searchable
// text. Joining the two pushes attribute filters into the SQL query.
type SQLiteTextStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ TextStore = (*SQLiteTextStore)(nil)

// NewSQLiteTextStore opens or creates an FTS5 text store at path. An empty
// path builds an in-memory store. tokenizer "cjk" selects the trigram
// tokenizer, which handles unsegmented scripts; "standard" uses unicode61.
func NewSQLiteTextStore(path, tokenizer string) (*SQLiteTextStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.StoreError("create text store directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.StoreError("open sqlite text store", err)
	}

	// Single writer; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.StoreError("set sqlite pragma", err)
		}
	}

	s := &SQLiteTextStore{db: db, path: path}
	if err := s.initSchema(tokenizer); err != nil {
		_ = db.Close()
		return nil, errors.New(errors.ErrCodeCorruptIndex,
			fmt.Sprintf("cannot initialize text store %s", path), err)
	}
	return s, nil
}

func (s *SQLiteTextStore) initSchema(tokenizer string) error {
	ftsTokenizer := "unicode61"
	if tokenizer == "cjk" {
		ftsTokenizer = "trigram"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id     TEXT PRIMARY KEY,
		doc_path     TEXT NOT NULL,
		source_type  TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		chunk_index  INTEGER NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset   INTEGER NOT NULL,
		text         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_path ON chunks(doc_path);
	CREATE INDEX IF NOT EXISTS idx_chunks_source_type ON chunks(source_type);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		chunk_id UNINDEXED,
		text,
		title,
		tokenize='%s'
	);
	`, ftsTokenizer)

	_, err := s.db.Exec(schema)
	return err
}

// Index inserts or overwrites chunks in one transaction. FTS5 tables do
// not support REPLACE, so existing rows are deleted first.
func (s *SQLiteTextStore) Index(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.StoreError("text store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StoreError("begin text store transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunks_fts WHERE chunk_id = ?`, c.ID); err != nil {
			return errors.New(errors.ErrCodeWriteRejected,
				fmt.Sprintf("clear chunk %s", c.ID), err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO chunks
				(chunk_id, doc_path, source_type, title, chunk_index, start_offset, end_offset, text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocPath, c.SourceType, c.Title, c.Index, c.Start, c.End, c.Text); err != nil {
			return errors.New(errors.ErrCodeWriteRejected,
				fmt.Sprintf("store chunk %s", c.ID), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks_fts (chunk_id, text, title) VALUES (?, ?, ?)`,
			c.ID, c.Text, c.Title); err != nil {
			return errors.New(errors.ErrCodeWriteRejected,
				fmt.Sprintf("index chunk %s", c.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.New(errors.ErrCodeWriteRejected, "commit text store batch", err)
	}
	return nil
}

// ftsMatchQuery quotes each query term so user input cannot trip FTS5
// query syntax.
func ftsMatchQuery(queryStr string) string {
	terms := strings.Fields(queryStr)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, `""`)
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " ")
}

// Query returns up to limit BM25-ranked matches with filters pushed down
// into the SQL, so ranks are of the filtered candidate set.
func (s *SQLiteTextStore) Query(ctx context.Context, queryStr string, limit int, filter Filter) ([]RankedHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.StoreError("text store is closed", nil)
	}
	if strings.TrimSpace(queryStr) == "" || limit <= 0 {
		return []RankedHit{}, nil
	}

	match := ftsMatchQuery(queryStr)
	if match == "" {
		return []RankedHit{}, nil
	}

	query := `
		SELECT chunks_fts.chunk_id, bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.chunk_id = chunks_fts.chunk_id
		WHERE chunks_fts MATCH ?`
	args := []any{match}

	if filter.SourceType != "" {
		query += ` AND c.source_type = ?`
		args = append(args, filter.SourceType)
	}
	if filter.PathPrefix != "" {
		query += ` AND c.doc_path GLOB ? || '*'`
		args = append(args, filter.PathPrefix)
	}

	query += ` ORDER BY score LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		// FTS5 raises errors for queries its grammar rejects; that is an
		// empty result, not a store failure.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []RankedHit{}, nil
		}
		return nil, errors.StoreError("text search failed", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []RankedHit
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, errors.StoreError("scan search result", err)
		}
		// bm25() is negative, lower is better; negate so higher is better.
		hits = append(hits, RankedHit{ID: id, Score: -score})
	}
	if hits == nil {
		hits = []RankedHit{}
	}
	return hits, rows.Err()
}

// Fetch returns the stored chunk for an ID.
func (s *SQLiteTextStore) Fetch(ctx context.Context, id string) (*chunk.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.StoreError("text store is closed", nil)
	}

	var c chunk.Chunk
	err := s.db.QueryRowContext(ctx, `
		SELECT chunk_id, doc_path, source_type, title, chunk_index, start_offset, end_offset, text
		FROM chunks WHERE chunk_id = ?`, id).
		Scan(&c.ID, &c.DocPath, &c.SourceType, &c.Title, &c.Index, &c.Start, &c.End, &c.Text)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, errors.StoreError("fetch chunk failed", err)
	}
	return &c, nil
}

// Delete removes chunks in one transaction.
func (s *SQLiteTextStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.StoreError("text store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StoreError("begin delete transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	in := strings.Join(placeholders, ",")

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM chunks_fts WHERE chunk_id IN (%s)", in), args...); err != nil {
		return errors.New(errors.ErrCodeWriteRejected, "delete from text index", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM chunks WHERE chunk_id IN (%s)", in), args...); err != nil {
		return errors.New(errors.ErrCodeWriteRejected, "delete chunk payloads", err)
	}

	return tx.Commit()
}

// AllIDs returns every stored chunk ID in lexicographic order.
func (s *SQLiteTextStore) AllIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.StoreError("text store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id FROM chunks ORDER BY chunk_id`)
	if err != nil {
		return nil, errors.StoreError("list chunk IDs", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.StoreError("scan chunk ID", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of stored chunks.
func (s *SQLiteTextStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, errors.StoreError("text store is closed", nil)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, errors.StoreError("count chunks", err)
	}
	return count, nil
}

// Close checkpoints and closes the database. Idempotent.
func (s *SQLiteTextStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
