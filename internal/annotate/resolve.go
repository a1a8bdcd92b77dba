package annotate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Offsets is a half-open rune range [Start, End) into a text's content.
type Offsets struct {
	Start int
	End   int
}

// Len returns the number of runes covered by the range.
func (o Offsets) Len() int {
	return o.End - o.Start
}

// Slice returns content[Start:End] in rune terms. The range must have been
// validated against content first.
func (o Offsets) Slice(content string) string {
	return string([]rune(content)[o.Start:o.End])
}

// Resolve locates selection within source and returns its rune offsets.
//
// When the selection occurs more than once, the first occurrence wins
// (lowest start index). This is a documented approximation: the true
// position lives in the caller's live cursor range, and callers that have
// exact offsets should pass them to Session.SelectAt instead of
// re-searching here.
//
// An empty selection, or one that is not a contiguous substring of source
// (for example when the hosting UI normalized whitespace differently),
// fails with ErrNotFound. Pure function; identical inputs always produce
// identical offsets.
func Resolve(source, selection string) (Offsets, error) {
	if selection == "" {
		return Offsets{}, fmt.Errorf("resolve: empty selection: %w", ErrNotFound)
	}

	byteIdx := strings.Index(source, selection)
	if byteIdx < 0 {
		return Offsets{}, fmt.Errorf("resolve: selection %q not present in source: %w", truncate(selection, 40), ErrNotFound)
	}

	start := utf8.RuneCountInString(source[:byteIdx])
	return Offsets{
		Start: start,
		End:   start + utf8.RuneCountInString(selection),
	}, nil
}

// ValidateSpan checks the span invariants against the owning text's
// content: offsets in range, non-empty selection, and the stored selection
// equal to the content slice it claims to cover. Both store
// implementations call this before persisting.
func ValidateSpan(content string, start, end int, selected string) error {
	if start < 0 {
		return fmt.Errorf("span start %d is negative: %w", start, ErrValidation)
	}
	if start > end {
		return fmt.Errorf("span start %d exceeds end %d: %w", start, end, ErrValidation)
	}
	if n := utf8.RuneCountInString(content); end > n {
		return fmt.Errorf("span end %d exceeds content length %d: %w", end, n, ErrValidation)
	}
	if selected == "" {
		return fmt.Errorf("span selection is empty: %w", ErrValidation)
	}
	if got := string([]rune(content)[start:end]); got != selected {
		return fmt.Errorf("span text %q does not match content slice %q at [%d,%d): %w",
			truncate(selected, 40), truncate(got, 40), start, end, ErrValidation)
	}
	return nil
}

// truncate shortens s for error messages.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
