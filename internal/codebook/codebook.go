// Package codebook reads and writes TOML codebook files: reusable sets of
// code definitions an analyst carries between projects. A codebook can be
// imported into the code store (existing names are skipped, not
// overwritten) and exported back out of it.
package codebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"margin/internal/annotate"
)

// ErrNoCodebook indicates the codebook file was not found.
var ErrNoCodebook = errors.New("codebook file not found")

// Entry is one code definition in a codebook file.
type Entry struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
	Color       string `toml:"color,omitempty"`
}

// Codebook is the parsed form of a codebook TOML file:
//
//	[[code]]
//	name = "animal"
//	description = "mentions of animals"
//	color = "#FFD700"
type Codebook struct {
	Codes []Entry `toml:"code"`
}

// ValidationError describes one problem found in a codebook file.
type ValidationError struct {
	Index int // position of the offending [[code]] entry
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("code[%d].%s: %v", e.Index, e.Field, e.Err)
}

// hexColor matches the only color format the display layer understands.
var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Load reads and parses a codebook file.
func Load(path string) (Codebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Codebook{}, ErrNoCodebook
		}
		return Codebook{}, fmt.Errorf("codebook: read %s: %w", path, err)
	}

	var cb Codebook
	if err := toml.Unmarshal(data, &cb); err != nil {
		return Codebook{}, fmt.Errorf("codebook: parse %s: %w", path, err)
	}
	return cb, nil
}

// Validate checks a codebook for structural correctness: non-empty unique
// names and well-formed colors.
func Validate(cb Codebook) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]int) // name → first index
	for i, e := range cb.Codes {
		if strings.TrimSpace(e.Name) == "" {
			errs = append(errs, ValidationError{
				Index: i,
				Field: "name",
				Err:   errors.New("name is required"),
			})
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, ValidationError{
				Index: i,
				Field: "name",
				Err:   fmt.Errorf("%q already defined at code[%d]", e.Name, prev),
			})
		} else {
			seen[e.Name] = i
		}
		if e.Color != "" && !hexColor.MatchString(e.Color) {
			errs = append(errs, ValidationError{
				Index: i,
				Field: "color",
				Err:   fmt.Errorf("%q is not #RRGGBB", e.Color),
			})
		}
	}
	return errs
}

// ImportResult reports what an Import did.
type ImportResult struct {
	Created []string // code names newly created
	Skipped []string // names that already existed in the store
}

// Import creates every codebook entry that does not already exist in the
// code store. The codebook must validate cleanly first; a structurally
// broken file imports nothing.
func Import(ctx context.Context, codes annotate.CodeStore, cb Codebook) (ImportResult, error) {
	if errs := Validate(cb); len(errs) > 0 {
		return ImportResult{}, fmt.Errorf("codebook: %d validation error(s), first: %v: %w",
			len(errs), errs[0], annotate.ErrValidation)
	}

	var res ImportResult
	for _, e := range cb.Codes {
		_, err := codes.CreateCode(ctx, e.Name, e.Description, e.Color)
		switch {
		case err == nil:
			res.Created = append(res.Created, e.Name)
		case errors.Is(err, annotate.ErrValidation):
			// Duplicate name: the store already has it. Keep the stored
			// definition; codebooks never overwrite.
			res.Skipped = append(res.Skipped, e.Name)
		default:
			return res, err
		}
	}
	return res, nil
}

// Export builds a codebook from every code in the store, in the store's
// name ordering.
func Export(ctx context.Context, codes annotate.CodeStore) (Codebook, error) {
	list, err := codes.ListCodes(ctx)
	if err != nil {
		return Codebook{}, err
	}

	cb := Codebook{Codes: make([]Entry, 0, len(list))}
	for _, c := range list {
		cb.Codes = append(cb.Codes, Entry{
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
		})
	}
	return cb, nil
}

// Save writes a codebook to path as TOML.
func Save(path string, cb Codebook) error {
	data, err := toml.Marshal(cb)
	if err != nil {
		return fmt.Errorf("codebook: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("codebook: write %s: %w", path, err)
	}
	return nil
}
