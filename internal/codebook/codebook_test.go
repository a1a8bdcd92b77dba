package codebook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"margin/internal/annotate"
	"margin/internal/store"
)

// writeCodebook writes TOML content to a temp file and returns its path.
func writeCodebook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codebook.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write codebook: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("parses entries", func(t *testing.T) {
		t.Parallel()
		path := writeCodebook(t, `
[[code]]
name = "trust"
description = "expressions of trust"
color = "#00E676"

[[code]]
name = "doubt"
`)
		cb, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(cb.Codes) != 2 {
			t.Fatalf("got %d codes, want 2", len(cb.Codes))
		}
		if cb.Codes[0].Name != "trust" || cb.Codes[0].Color != "#00E676" {
			t.Errorf("code 0 = %+v", cb.Codes[0])
		}
		if cb.Codes[1].Name != "doubt" || cb.Codes[1].Color != "" {
			t.Errorf("code 1 = %+v", cb.Codes[1])
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); !errors.Is(err, ErrNoCodebook) {
			t.Fatalf("Load error = %v, want ErrNoCodebook", err)
		}
	})

	t.Run("malformed TOML", func(t *testing.T) {
		t.Parallel()
		path := writeCodebook(t, "[[code]\nname = broken")
		if _, err := Load(path); err == nil {
			t.Fatal("expected parse error, got nil")
		}
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cb       Codebook
		wantErrs int
	}{
		{
			name: "clean",
			cb: Codebook{Codes: []Entry{
				{Name: "a", Color: "#112233"},
				{Name: "b"},
			}},
		},
		{
			name:     "missing name",
			cb:       Codebook{Codes: []Entry{{Name: "  "}}},
			wantErrs: 1,
		},
		{
			name: "duplicate name",
			cb: Codebook{Codes: []Entry{
				{Name: "a"},
				{Name: "a"},
			}},
			wantErrs: 1,
		},
		{
			name:     "bad color",
			cb:       Codebook{Codes: []Entry{{Name: "a", Color: "red"}}},
			wantErrs: 1,
		},
		{
			name:     "short hex",
			cb:       Codebook{Codes: []Entry{{Name: "a", Color: "#123"}}},
			wantErrs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := Validate(tt.cb)
			if len(errs) != tt.wantErrs {
				t.Errorf("Validate = %d error(s), want %d: %v", len(errs), tt.wantErrs, errs)
			}
		})
	}
}

func TestImport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates new and skips existing", func(t *testing.T) {
		t.Parallel()
		m := store.NewMemory()
		if _, err := m.CreateCode(ctx, "trust", "already here", "#FFFFFF"); err != nil {
			t.Fatalf("seed code: %v", err)
		}

		cb := Codebook{Codes: []Entry{
			{Name: "trust", Description: "from codebook"},
			{Name: "doubt", Color: "#FF5252"},
		}}
		res, err := Import(ctx, m, cb)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if len(res.Created) != 1 || res.Created[0] != "doubt" {
			t.Errorf("Created = %v, want [doubt]", res.Created)
		}
		if len(res.Skipped) != 1 || res.Skipped[0] != "trust" {
			t.Errorf("Skipped = %v, want [trust]", res.Skipped)
		}

		// The stored definition wins over the codebook's.
		got, err := m.GetCodeByName(ctx, "trust")
		if err != nil {
			t.Fatalf("GetCodeByName: %v", err)
		}
		if got.Description != "already here" {
			t.Errorf("existing code overwritten: %+v", got)
		}
	})

	t.Run("refuses invalid codebook", func(t *testing.T) {
		t.Parallel()
		m := store.NewMemory()

		cb := Codebook{Codes: []Entry{{Name: "a"}, {Name: "a"}}}
		if _, err := Import(ctx, m, cb); !errors.Is(err, annotate.ErrValidation) {
			t.Fatalf("Import error = %v, want ErrValidation", err)
		}

		codes, err := m.ListCodes(ctx)
		if err != nil {
			t.Fatalf("ListCodes: %v", err)
		}
		if len(codes) != 0 {
			t.Errorf("broken codebook imported %d code(s)", len(codes))
		}
	})
}

func TestExportSaveRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := store.NewMemory()
	for _, c := range []struct{ name, desc, color string }{
		{"doubt", "", "#FF5252"},
		{"trust", "expressions of trust", "#00E676"},
	} {
		if _, err := m.CreateCode(ctx, c.name, c.desc, c.color); err != nil {
			t.Fatalf("CreateCode(%q): %v", c.name, err)
		}
	}

	cb, err := Export(ctx, m)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.toml")
	if err := Save(path, cb); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Codes) != 2 {
		t.Fatalf("got %d codes, want 2", len(loaded.Codes))
	}
	// Export follows the store's name ordering.
	if loaded.Codes[0].Name != "doubt" || loaded.Codes[1].Name != "trust" {
		t.Errorf("codes = %+v, want doubt then trust", loaded.Codes)
	}
	if loaded.Codes[1].Description != "expressions of trust" {
		t.Errorf("description lost in round trip: %+v", loaded.Codes[1])
	}
}
