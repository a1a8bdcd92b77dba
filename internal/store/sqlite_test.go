package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"margin/internal/annotate"
)

// testDB creates a temporary SQLite store for testing and registers cleanup.
func testDB(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.margin.db")
	s, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSQLite(t *testing.T) {
	t.Parallel()

	t.Run("creates database and tables", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		// Verify WAL mode is active.
		var mode string
		if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("query journal_mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("journal_mode = %q, want %q", mode, "wal")
		}

		// Verify all three tables exist by querying sqlite_master.
		tables := map[string]bool{"texts": false, "codes": false, "segments": false}
		rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='table'")
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				t.Fatalf("scan table name: %v", err)
			}
			if _, ok := tables[name]; ok {
				tables[name] = true
			}
		}
		for name, found := range tables {
			if !found {
				t.Errorf("table %q not created", name)
			}
		}
	})

	t.Run("idempotent schema creation", func(t *testing.T) {
		t.Parallel()
		dbPath := filepath.Join(t.TempDir(), "idempotent.margin.db")

		// Open twice — second open should succeed without error.
		s1, err := OpenSQLite(context.Background(), dbPath)
		if err != nil {
			t.Fatalf("first open: %v", err)
		}
		s1.Close()

		s2, err := OpenSQLite(context.Background(), dbPath)
		if err != nil {
			t.Fatalf("second open: %v", err)
		}
		s2.Close()
	})
}

func TestSQLite_Texts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		created, err := s.CreateText(ctx, "interview-1", "The quick fox")
		if err != nil {
			t.Fatalf("CreateText: %v", err)
		}
		if created.ID == 0 {
			t.Error("expected non-zero ID")
		}
		if created.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}

		got, err := s.GetText(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetText: %v", err)
		}
		if got.Title != "interview-1" || got.Content != "The quick fox" {
			t.Errorf("GetText = %+v", got)
		}
	})

	t.Run("empty content rejected", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		if _, err := s.CreateText(ctx, "t", ""); !errors.Is(err, annotate.ErrValidation) {
			t.Fatalf("CreateText(\"\") error = %v, want ErrValidation", err)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		if _, err := s.GetText(ctx, 42); !errors.Is(err, annotate.ErrNotFound) {
			t.Fatalf("GetText(42) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list in creation order", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		for _, title := range []string{"one", "two", "three"} {
			if _, err := s.CreateText(ctx, title, "content of "+title); err != nil {
				t.Fatalf("CreateText(%q): %v", title, err)
			}
		}
		texts, err := s.ListTexts(ctx)
		if err != nil {
			t.Fatalf("ListTexts: %v", err)
		}
		want := []string{"one", "two", "three"}
		if len(texts) != len(want) {
			t.Fatalf("got %d texts, want %d", len(texts), len(want))
		}
		for i, w := range want {
			if texts[i].Title != w {
				t.Errorf("text %d title = %q, want %q", i, texts[i].Title, w)
			}
		}
	})
}

func TestSQLite_Codes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		created, err := s.CreateCode(ctx, "trust", "expressions of trust", "#00E676")
		if err != nil {
			t.Fatalf("CreateCode: %v", err)
		}

		byID, err := s.GetCode(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetCode: %v", err)
		}
		if byID.Name != "trust" || byID.Color != "#00E676" {
			t.Errorf("GetCode = %+v", byID)
		}

		byName, err := s.GetCodeByName(ctx, "trust")
		if err != nil {
			t.Fatalf("GetCodeByName: %v", err)
		}
		if byName.ID != created.ID {
			t.Errorf("GetCodeByName ID = %d, want %d", byName.ID, created.ID)
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		if _, err := s.CreateCode(ctx, "trust", "", ""); err != nil {
			t.Fatalf("first CreateCode: %v", err)
		}
		if _, err := s.CreateCode(ctx, "trust", "other", "#FFFFFF"); !errors.Is(err, annotate.ErrValidation) {
			t.Fatalf("duplicate CreateCode error = %v, want ErrValidation", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		if _, err := s.CreateCode(ctx, "", "", ""); !errors.Is(err, annotate.ErrValidation) {
			t.Fatalf("CreateCode(\"\") error = %v, want ErrValidation", err)
		}
	})

	t.Run("list ordered by name", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)

		for _, name := range []string{"zeta", "alpha", "mid"} {
			if _, err := s.CreateCode(ctx, name, "", ""); err != nil {
				t.Fatalf("CreateCode(%q): %v", name, err)
			}
		}
		codes, err := s.ListCodes(ctx)
		if err != nil {
			t.Fatalf("ListCodes: %v", err)
		}
		want := []string{"alpha", "mid", "zeta"}
		for i, w := range want {
			if codes[i].Name != w {
				t.Errorf("code %d = %q, want %q", i, codes[i].Name, w)
			}
		}
	})
}

func TestSQLite_Segments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// fixtures creates a text and a code to hang segments off.
	fixtures := func(t *testing.T, s *SQLite) (annotate.Text, annotate.Code) {
		t.Helper()
		text, err := s.CreateText(ctx, "t", "The quick brown fox")
		if err != nil {
			t.Fatalf("CreateText: %v", err)
		}
		code, err := s.CreateCode(ctx, "animal", "", "")
		if err != nil {
			t.Fatalf("CreateCode: %v", err)
		}
		return text, code
	}

	t.Run("create valid span", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)
		text, code := fixtures(t, s)

		span, err := s.CreateSegment(ctx, text.ID, code.ID, "quick", 4, 9)
		if err != nil {
			t.Fatalf("CreateSegment: %v", err)
		}
		if span.ID == 0 || span.TextID != text.ID || span.CodeID != code.ID {
			t.Errorf("span = %+v", span)
		}
		if span.Start != 4 || span.End != 9 || span.Selected != "quick" {
			t.Errorf("span range = %+v, want quick at [4,9)", span)
		}
		if span.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("invariant violations rejected", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)
		text, code := fixtures(t, s)

		cases := []struct {
			name     string
			selected string
			start    int
			end      int
		}{
			{"start after end", "quick", 9, 4},
			{"end past content", "quick", 4, 99},
			{"mismatched text", "brown", 4, 9},
			{"empty selection", "", 4, 4},
		}
		for _, tc := range cases {
			if _, err := s.CreateSegment(ctx, text.ID, code.ID, tc.selected, tc.start, tc.end); !errors.Is(err, annotate.ErrValidation) {
				t.Errorf("%s: error = %v, want ErrValidation", tc.name, err)
			}
		}
	})

	t.Run("missing referents rejected", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)
		text, code := fixtures(t, s)

		if _, err := s.CreateSegment(ctx, 999, code.ID, "quick", 4, 9); !errors.Is(err, annotate.ErrNotFound) {
			t.Errorf("unknown text error = %v, want ErrNotFound", err)
		}
		if _, err := s.CreateSegment(ctx, text.ID, 999, "quick", 4, 9); !errors.Is(err, annotate.ErrNotFound) {
			t.Errorf("unknown code error = %v, want ErrNotFound", err)
		}
	})

	t.Run("overlapping spans allowed", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)
		text, code := fixtures(t, s)

		if _, err := s.CreateSegment(ctx, text.ID, code.ID, "The quick", 0, 9); err != nil {
			t.Fatalf("first span: %v", err)
		}
		if _, err := s.CreateSegment(ctx, text.ID, code.ID, "quick brown", 4, 15); err != nil {
			t.Fatalf("overlapping span: %v", err)
		}
		if _, err := s.CreateSegment(ctx, text.ID, code.ID, "quick brown", 4, 15); err != nil {
			t.Fatalf("identical span: %v", err)
		}
	})

	t.Run("list by text ordered by start then id", func(t *testing.T) {
		t.Parallel()
		s := testDB(t)
		text, code := fixtures(t, s)

		// Insert out of positional order, with two spans sharing a start.
		inserts := []struct {
			selected string
			start    int
			end      int
		}{
			{"brown", 10, 15},
			{"The", 0, 3},
			{"The quick", 0, 9},
		}
		for _, in := range inserts {
			if _, err := s.CreateSegment(ctx, text.ID, code.ID, in.selected, in.start, in.end); err != nil {
				t.Fatalf("CreateSegment(%q): %v", in.selected, err)
			}
		}

		spans, err := s.ListSegmentsByText(ctx, text.ID)
		if err != nil {
			t.Fatalf("ListSegmentsByText: %v", err)
		}
		want := []string{"The", "The quick", "brown"}
		if len(spans) != len(want) {
			t.Fatalf("got %d spans, want %d", len(spans), len(want))
		}
		for i, w := range want {
			if spans[i].Selected != w {
				t.Errorf("span %d = %q, want %q", i, spans[i].Selected, w)
			}
		}
		// Shared start 0: creation order breaks the tie.
		if spans[0].ID > spans[1].ID {
			t.Errorf("tie not broken by creation order: %d before %d", spans[0].ID, spans[1].ID)
		}
	})
}
