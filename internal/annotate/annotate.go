// Package annotate implements the span-annotation engine: the data model
// for labeled substrings over immutable source text, offset resolution for
// raw selections, overlap-aware fragment rendering, and the coding session
// state machine that ties them together.
//
// All offsets are zero-based rune offsets. Byte offsets would drift under
// multi-byte UTF-8 input, so every slice into text content goes through
// []rune conversion.
package annotate

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy. Every error returned by the engine or a store wraps
// exactly one of these sentinels, so callers can classify with errors.Is.
var (
	// ErrNotFound marks a missing referent: an unknown text or code ID,
	// or a selection that does not occur in the source text.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks an invariant violation: offsets out of range,
	// selected text that disagrees with the content slice, duplicate
	// code names, empty required fields.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable marks an unreachable persistence layer. The engine
	// never retries; retry policy belongs to the caller.
	ErrUnavailable = errors.New("store unavailable")
)

// Text is an immutable source document. Annotation offsets are only valid
// against an unchanged Content, so no mutation operation exists.
type Text struct {
	ID        int64
	Title     string
	Content   string
	CreatedAt time.Time
}

// Code is a named, colored label definition, independent of any text.
type Code struct {
	ID          int64
	Name        string
	Description string
	Color       string // display hint, "#RRGGBB" or empty
	CreatedAt   time.Time
}

// Span ties a contiguous rune range of one text to one code. The Selected
// field redundantly stores the covered text as an integrity check against
// offset drift. Spans are immutable after creation; overlapping, nested,
// and identical spans are all legal.
type Span struct {
	ID        int64
	TextID    int64
	CodeID    int64
	Selected  string
	Start     int
	End       int
	CreatedAt time.Time
}

// Fragment is a maximal contiguous run of a text's characters sharing an
// identical set of covering codes. CodeIDs is sorted and deduplicated, and
// empty for unlabeled runs. The full set is always exposed; presentation
// decides how to display multi-code fragments.
type Fragment struct {
	Text    string
	CodeIDs []int64
}

// Labeled reports whether any code covers the fragment.
func (f Fragment) Labeled() bool {
	return len(f.CodeIDs) > 0
}

// TextStore persists source documents.
type TextStore interface {
	// CreateText stores a new immutable text. Empty content is rejected
	// with ErrValidation.
	CreateText(ctx context.Context, title, content string) (Text, error)

	// GetText returns the text with the given ID, or ErrNotFound.
	GetText(ctx context.Context, id int64) (Text, error)

	// ListTexts returns all texts in creation order.
	ListTexts(ctx context.Context) ([]Text, error)
}

// CodeStore persists label definitions. Names are unique; a duplicate
// create fails with ErrValidation.
type CodeStore interface {
	CreateCode(ctx context.Context, name, description, color string) (Code, error)

	// GetCode returns the code with the given ID, or ErrNotFound.
	GetCode(ctx context.Context, id int64) (Code, error)

	// GetCodeByName returns the code with the given name, or ErrNotFound.
	GetCodeByName(ctx context.Context, name string) (Code, error)

	// ListCodes returns all codes ordered by name.
	ListCodes(ctx context.Context) ([]Code, error)
}

// SegmentStore persists spans. Implementations validate every create
// against the span invariants (see ValidateSpan) and the existence of the
// referenced text and code.
type SegmentStore interface {
	CreateSegment(ctx context.Context, textID, codeID int64, selected string, start, end int) (Span, error)

	// ListSegments returns every span, in creation order.
	ListSegments(ctx context.Context) ([]Span, error)

	// ListSegmentsByText returns the spans of one text ordered by Start
	// ascending, ties broken by creation order.
	ListSegmentsByText(ctx context.Context, textID int64) ([]Span, error)
}

// Stores bundles the three collaborator stores the session consumes.
type Stores struct {
	Texts    TextStore
	Codes    CodeStore
	Segments SegmentStore
}
