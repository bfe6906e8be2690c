package lexical

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dstone/memdex/pkg/types"
)

const driverName = "sqlite"

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chunk_id TEXT NOT NULL UNIQUE,
    document_path TEXT NOT NULL,
    section_path TEXT NOT NULL,
    ordinal INTEGER NOT NULL DEFAULT 0,
    content TEXT NOT NULL,
    token_count INTEGER NOT NULL DEFAULT 0,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    category TEXT NOT NULL,
    summary INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_path);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    content,
    content='chunks',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
    INSERT INTO chunks_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
    INSERT INTO chunks_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// Index is the BM25 keyword index over chunk content, backed by SQLite FTS5.
// Writes are serialized through a single connection; the indexer holds the
// process-level write lock on top of that.
type Index struct {
	db *sql.DB
}

// Hit is one keyword match with its normalized BM25 score.
type Hit struct {
	Chunk types.Chunk
	Score float64 // normalized to [matchFloor, 1), higher is better
}

// Open creates or opens the lexical index database under indexDir.
func Open(indexDir string) (*Index, error) {
	db, err := sql.Open(driverName, filepath.Join(indexDir, "lexical.db"))
	if err != nil {
		return nil, fmt.Errorf("opening lexical index: %w", err)
	}

	// WAL for concurrent readers during indexing; single writer connection.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Upsert replaces the given chunks by ID within one transaction.
func (x *Index) Upsert(ctx context.Context, chunks []*types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lexical upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	del, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("lexical upsert: %w", err)
	}
	defer func() { _ = del.Close() }()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, document_path, section_path, ordinal, content,
		                    token_count, start_line, end_line, category, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("lexical upsert: %w", err)
	}
	defer func() { _ = ins.Close() }()

	for _, ch := range chunks {
		if _, err := del.ExecContext(ctx, ch.ID); err != nil {
			return fmt.Errorf("lexical upsert delete %s: %w", ch.ID, err)
		}
		_, err := ins.ExecContext(ctx,
			ch.ID, ch.DocumentPath, encodeSectionPath(ch.SectionPath), ch.Ordinal, ch.Content,
			ch.TokenCount, ch.StartLine, ch.EndLine, string(ch.Category), boolToInt(ch.Summary))
		if err != nil {
			return fmt.Errorf("lexical upsert insert %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lexical upsert commit: %w", err)
	}
	return nil
}

// DeleteDocument removes every chunk belonging to a document path.
func (x *Index) DeleteDocument(ctx context.Context, docPath string) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_path = ?", docPath); err != nil {
		return fmt.Errorf("lexical delete document %s: %w", docPath, err)
	}
	return nil
}

// DeleteChunks removes chunks by ID. Unknown IDs are ignored.
func (x *Index) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lexical delete chunks: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE chunk_id = ?", id); err != nil {
			return fmt.Errorf("lexical delete chunk %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Search runs a BM25 query and returns up to limit hits, best first. BM25
// scores from FTS5 are negative (more negative is better); they are
// normalized so fusion can treat both retrieval sides uniformly.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.document_path, c.section_path, c.ordinal, c.content,
		       c.token_count, c.start_line, c.end_line, c.category, c.summary,
		       bm25(chunks_fts) AS score
		FROM chunks_fts
		INNER JOIN chunks c ON chunks_fts.rowid = c.id
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []Hit
	for rows.Next() {
		var (
			ch          types.Chunk
			sectionPath string
			category    string
			summary     int
			score       float64
		)
		err := rows.Scan(&ch.ID, &ch.DocumentPath, &sectionPath, &ch.Ordinal, &ch.Content,
			&ch.TokenCount, &ch.StartLine, &ch.EndLine, &category, &summary, &score)
		if err != nil {
			return nil, fmt.Errorf("lexical scan: %w", err)
		}
		ch.SectionPath = decodeSectionPath(sectionPath)
		ch.Category = types.SizeCategory(category)
		ch.Summary = summary != 0

		hits = append(hits, Hit{
			Chunk: ch,
			Score: normalizeBM25(score),
		})
	}
	return hits, rows.Err()
}

// Count returns the number of indexed chunks.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("lexical count: %w", err)
	}
	return n, nil
}

// CountDocuments returns the number of distinct indexed documents.
func (x *Index) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT document_path) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("lexical document count: %w", err)
	}
	return n, nil
}

// A row returned by FTS5 already matched every query term, so any hit is
// strong lexical evidence. Matches map onto [matchFloor, 1); bm25 magnitude
// orders hits within that band.
const matchFloor = 0.9

// normalizeBM25 maps FTS5 bm25() output (negative, more negative is a
// stronger match) onto [matchFloor, 1), increasing with match strength.
func normalizeBM25(score float64) float64 {
	s := math.Abs(score)
	return matchFloor + (1.0-matchFloor)*s/(s+50.0)
}

// sectionPathSep joins heading path elements for storage. U+001F keeps
// headings containing slashes unambiguous.
const sectionPathSep = "\x1f"

func encodeSectionPath(path []string) string {
	return strings.Join(path, sectionPathSep)
}

func decodeSectionPath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sectionPathSep)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ftsOperatorPattern matches FTS5 Boolean operators for escaping.
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery rewrites free text into a safe FTS5 match expression:
// each token is double-quoted so punctuation and Boolean operators lose
// their syntactic meaning.
func sanitizeFTSQuery(query string) string {
	stripped := ftsOperatorPattern.ReplaceAllString(query, " ")
	fields := strings.Fields(stripped)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}
