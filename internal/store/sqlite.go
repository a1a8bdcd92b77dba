package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"margin/internal/annotate"
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS texts (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS codes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    color       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS segments (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    text_id    INTEGER NOT NULL REFERENCES texts(id),
    code_id    INTEGER NOT NULL REFERENCES codes(id),
    selected   TEXT NOT NULL,
    start_off  INTEGER NOT NULL,
    end_off    INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_segments_text ON segments(text_id, start_off);
`

// SQLite implements the annotate stores on a local SQLite database in WAL
// mode. Driver and connection failures are wrapped with
// annotate.ErrUnavailable so the session layer can classify them.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at dbPath, enables WAL
// mode and busy timeout, and creates the schema tables if they do not
// exist.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", errors.Join(annotate.ErrUnavailable, err))
	}

	// Limit to one connection. SQLite only supports a single writer; using
	// one connection avoids SQLITE_BUSY contention between pooled
	// connections that each need their own PRAGMA setup. It also makes the
	// lookup-then-insert duplicate check in CreateCode race-free locally.
	db.SetMaxOpenConns(1)

	// WAL mode: readers never block writers, writers never block readers.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", errors.Join(annotate.ErrUnavailable, err))
	}

	// Busy timeout avoids SQLITE_BUSY under concurrent access from external
	// processes.
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", errors.Join(annotate.ErrUnavailable, err))
	}

	// Create tables idempotently.
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", errors.Join(annotate.ErrUnavailable, err))
	}

	return &SQLite{db: db}, nil
}

// Stores returns the store bundle backed by this database.
func (s *SQLite) Stores() annotate.Stores {
	return annotate.Stores{Texts: s, Codes: s, Segments: s}
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateText inserts a new immutable text and returns the stored record.
func (s *SQLite) CreateText(ctx context.Context, title, content string) (annotate.Text, error) {
	if content == "" {
		return annotate.Text{}, fmt.Errorf("store: text content is empty: %w", annotate.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO texts (title, content) VALUES (?, ?)", title, content)
	if err != nil {
		return annotate.Text{}, fmt.Errorf("store: insert text %q: %w", title, errors.Join(annotate.ErrUnavailable, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return annotate.Text{}, fmt.Errorf("store: text insert id: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	return s.GetText(ctx, id)
}

// GetText returns the text with the given ID, or annotate.ErrNotFound.
func (s *SQLite) GetText(ctx context.Context, id int64) (annotate.Text, error) {
	var (
		t  annotate.Text
		ts string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, content, created_at FROM texts WHERE id = ?", id).
		Scan(&t.ID, &t.Title, &t.Content, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return annotate.Text{}, fmt.Errorf("store: text %d: %w", id, annotate.ErrNotFound)
	}
	if err != nil {
		return annotate.Text{}, fmt.Errorf("store: get text %d: %w", id, errors.Join(annotate.ErrUnavailable, err))
	}
	if t.CreatedAt, err = parseTimestamp(ts); err != nil {
		return annotate.Text{}, fmt.Errorf("store: parse text timestamp: %w", err)
	}
	return t, nil
}

// ListTexts returns all texts in creation order.
func (s *SQLite) ListTexts(ctx context.Context) ([]annotate.Text, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, content, created_at FROM texts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: query texts: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	defer rows.Close()

	var out []annotate.Text
	for rows.Next() {
		var (
			t  annotate.Text
			ts string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &ts); err != nil {
			return nil, fmt.Errorf("store: scan text: %w", err)
		}
		if t.CreatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("store: parse text timestamp: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate texts: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	return out, nil
}

// CreateCode inserts a new label definition. Duplicate names fail with
// annotate.ErrValidation. The duplicate check is an explicit lookup rather
// than string-matching the driver's UNIQUE-violation error; the
// single-connection store makes it race-free locally.
func (s *SQLite) CreateCode(ctx context.Context, name, description, color string) (annotate.Code, error) {
	if name == "" {
		return annotate.Code{}, fmt.Errorf("store: code name is empty: %w", annotate.ErrValidation)
	}

	if _, err := s.GetCodeByName(ctx, name); err == nil {
		return annotate.Code{}, fmt.Errorf("store: code name %q already exists: %w", name, annotate.ErrValidation)
	} else if !errors.Is(err, annotate.ErrNotFound) {
		return annotate.Code{}, err
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO codes (name, description, color) VALUES (?, ?, ?)", name, description, color)
	if err != nil {
		return annotate.Code{}, fmt.Errorf("store: insert code %q: %w", name, errors.Join(annotate.ErrUnavailable, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return annotate.Code{}, fmt.Errorf("store: code insert id: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	return s.GetCode(ctx, id)
}

// GetCode returns the code with the given ID, or annotate.ErrNotFound.
func (s *SQLite) GetCode(ctx context.Context, id int64) (annotate.Code, error) {
	return s.scanCode(s.db.QueryRowContext(ctx,
		"SELECT id, name, description, color, created_at FROM codes WHERE id = ?", id),
		fmt.Sprintf("code %d", id))
}

// GetCodeByName returns the code with the given unique name, or
// annotate.ErrNotFound.
func (s *SQLite) GetCodeByName(ctx context.Context, name string) (annotate.Code, error) {
	return s.scanCode(s.db.QueryRowContext(ctx,
		"SELECT id, name, description, color, created_at FROM codes WHERE name = ?", name),
		fmt.Sprintf("code %q", name))
}

// scanCode is a shared helper for single-code lookups.
func (s *SQLite) scanCode(row *sql.Row, what string) (annotate.Code, error) {
	var (
		c  annotate.Code
		ts string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return annotate.Code{}, fmt.Errorf("store: %s: %w", what, annotate.ErrNotFound)
	}
	if err != nil {
		return annotate.Code{}, fmt.Errorf("store: get %s: %w", what, errors.Join(annotate.ErrUnavailable, err))
	}
	if c.CreatedAt, err = parseTimestamp(ts); err != nil {
		return annotate.Code{}, fmt.Errorf("store: parse code timestamp: %w", err)
	}
	return c, nil
}

// ListCodes returns all codes ordered by name.
func (s *SQLite) ListCodes(ctx context.Context) ([]annotate.Code, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, color, created_at FROM codes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("store: query codes: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	defer rows.Close()

	var out []annotate.Code
	for rows.Next() {
		var (
			c  annotate.Code
			ts string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &ts); err != nil {
			return nil, fmt.Errorf("store: scan code: %w", err)
		}
		if c.CreatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("store: parse code timestamp: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate codes: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	return out, nil
}

// CreateSegment validates the span invariants against the referenced text,
// then inserts the span and returns the stored record.
func (s *SQLite) CreateSegment(ctx context.Context, textID, codeID int64, selected string, start, end int) (annotate.Span, error) {
	text, err := s.GetText(ctx, textID)
	if err != nil {
		return annotate.Span{}, err
	}
	if _, err := s.GetCode(ctx, codeID); err != nil {
		return annotate.Span{}, err
	}
	if err := annotate.ValidateSpan(text.Content, start, end, selected); err != nil {
		return annotate.Span{}, fmt.Errorf("store: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO segments (text_id, code_id, selected, start_off, end_off) VALUES (?, ?, ?, ?, ?)",
		textID, codeID, selected, start, end)
	if err != nil {
		return annotate.Span{}, fmt.Errorf("store: insert segment: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return annotate.Span{}, fmt.Errorf("store: segment insert id: %w", errors.Join(annotate.ErrUnavailable, err))
	}

	spans, err := s.querySegments(ctx,
		"SELECT id, text_id, code_id, selected, start_off, end_off, created_at FROM segments WHERE id = ?", id)
	if err != nil {
		return annotate.Span{}, err
	}
	if len(spans) != 1 {
		return annotate.Span{}, fmt.Errorf("store: segment %d: %w", id, annotate.ErrNotFound)
	}
	return spans[0], nil
}

// ListSegments returns every span in creation order.
func (s *SQLite) ListSegments(ctx context.Context) ([]annotate.Span, error) {
	return s.querySegments(ctx,
		"SELECT id, text_id, code_id, selected, start_off, end_off, created_at FROM segments ORDER BY id")
}

// ListSegmentsByText returns one text's spans ordered by start offset,
// ties broken by creation order.
func (s *SQLite) ListSegmentsByText(ctx context.Context, textID int64) ([]annotate.Span, error) {
	return s.querySegments(ctx,
		"SELECT id, text_id, code_id, selected, start_off, end_off, created_at FROM segments WHERE text_id = ? ORDER BY start_off, id",
		textID)
}

// querySegments is a shared helper for scanning segment rows.
func (s *SQLite) querySegments(ctx context.Context, query string, args ...any) ([]annotate.Span, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query segments: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	defer rows.Close()

	var out []annotate.Span
	for rows.Next() {
		var (
			sp annotate.Span
			ts string
		)
		if err := rows.Scan(&sp.ID, &sp.TextID, &sp.CodeID, &sp.Selected, &sp.Start, &sp.End, &ts); err != nil {
			return nil, fmt.Errorf("store: scan segment: %w", err)
		}
		if sp.CreatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("store: parse segment timestamp: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate segments: %w", errors.Join(annotate.ErrUnavailable, err))
	}
	return out, nil
}

// timestampFormats lists the formats SQLite drivers may produce for
// CURRENT_TIMESTAMP. modernc.org/sqlite typically returns RFC 3339 (with
// "T" separator and "Z" suffix), while canonical SQLite returns the
// space-separated DateTime format.
var timestampFormats = []string{
	time.RFC3339,
	time.DateTime,
}

// parseTimestamp attempts to parse a SQLite timestamp string using known
// formats.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
