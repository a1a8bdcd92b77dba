package annotate

import (
	"context"
	"fmt"
	"sync"

	"margin/internal/telemetry"
)

// State identifies the coding session's position in its lifecycle.
type State int

const (
	// StateEmpty is the initial state: no text loaded.
	StateEmpty State = iota
	// StateTextLoaded means a text is loaded and no selection is pending.
	StateTextLoaded
	// StateSelectionActive means a resolved selection awaits a code.
	StateSelectionActive
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateTextLoaded:
		return "text_loaded"
	case StateSelectionActive:
		return "selection_active"
	default:
		return "unknown"
	}
}

// Selection is a resolved, pending selection held by the session.
type Selection struct {
	Start int
	End   int
	Text  string
}

// SessionView is a read-only snapshot of the session for display.
type SessionView struct {
	State     State
	Text      Text      // zero value when State == StateEmpty
	Selection Selection // zero value unless State == StateSelectionActive
}

// Session is the coding workflow state machine:
//
//	Empty → TextLoaded ⇄ SelectionActive
//
// It owns the current text and the pending selection, resolves raw
// selections into offsets, and persists applied codes through the segment
// store. A mutex serializes all transitions, so a Select can never
// interleave with an in-flight ApplyCode on the same session.
//
// Store errors are surfaced to the caller unchanged; a failed operation
// never leaves the session in a partial state.
type Session struct {
	stores  Stores
	emitter *telemetry.Emitter

	mu        sync.Mutex
	state     State
	text      Text
	selection Selection
}

// NewSession creates a session in the Empty state. The emitter may be nil
// to disable telemetry.
func NewSession(stores Stores, emitter *telemetry.Emitter) *Session {
	return &Session{
		stores:  stores,
		emitter: emitter,
		state:   StateEmpty,
	}
}

// Current returns a snapshot of the session state.
func (s *Session) Current() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{State: s.state, Text: s.text, Selection: s.selection}
}

// LoadText persists a new text and makes it the session's current text.
// Loading while a selection is pending is a destructive reset: the
// unpersisted selection is dropped silently. That is documented behavior,
// not a bug — a new document always starts a clean coding pass.
func (s *Session) LoadText(ctx context.Context, title, content string) (Text, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.stores.Texts.CreateText(ctx, title, content)
	if err != nil {
		return Text{}, err
	}

	s.text = text
	s.selection = Selection{}
	s.state = StateTextLoaded

	_ = s.emitter.Emit(telemetry.Event{
		Kind:   telemetry.KindTextLoaded,
		TextID: text.ID,
		Data:   map[string]any{"title": text.Title, "length": len([]rune(text.Content))},
	})
	return text, nil
}

// Adopt makes an already-persisted text the session's current text without
// creating a new record. Used when resuming coding on a stored document.
// Same destructive-reset semantics as LoadText.
func (s *Session) Adopt(ctx context.Context, textID int64) (Text, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.stores.Texts.GetText(ctx, textID)
	if err != nil {
		return Text{}, err
	}

	s.text = text
	s.selection = Selection{}
	s.state = StateTextLoaded

	_ = s.emitter.Emit(telemetry.Event{
		Kind:   telemetry.KindTextLoaded,
		TextID: text.ID,
		Data:   map[string]any{"title": text.Title, "resumed": true},
	})
	return text, nil
}

// Select resolves a raw selection string against the loaded text and holds
// the resulting offsets as the pending selection. Valid in TextLoaded and
// SelectionActive (re-selecting replaces the pending selection). On a
// failed resolution the session state is unchanged and nothing is
// recorded.
func (s *Session) Select(ctx context.Context, raw string) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return Selection{}, fmt.Errorf("session: select without a loaded text: %w", ErrValidation)
	}

	offs, err := Resolve(s.text.Content, raw)
	if err != nil {
		_ = s.emitter.Emit(telemetry.Event{
			Kind:   telemetry.KindSelectionRejected,
			TextID: s.text.ID,
			Data:   map[string]any{"error": err.Error()},
		})
		return Selection{}, err
	}

	return s.hold(offs), nil
}

// SelectAt accepts exact offsets from a caller that has them (the hosting
// UI's live cursor range), skipping the substring re-search that Select
// falls back to. The range is validated against the loaded content and the
// selected text is derived from it.
func (s *Session) SelectAt(ctx context.Context, start, end int) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return Selection{}, fmt.Errorf("session: select without a loaded text: %w", ErrValidation)
	}

	offs := Offsets{Start: start, End: end}
	if start < 0 || start >= end || end > len([]rune(s.text.Content)) {
		err := fmt.Errorf("session: offsets [%d,%d) out of range: %w", start, end, ErrValidation)
		_ = s.emitter.Emit(telemetry.Event{
			Kind:   telemetry.KindSelectionRejected,
			TextID: s.text.ID,
			Data:   map[string]any{"error": err.Error()},
		})
		return Selection{}, err
	}

	return s.hold(offs), nil
}

// hold records a resolved selection and transitions to SelectionActive.
// Caller holds s.mu.
func (s *Session) hold(offs Offsets) Selection {
	s.selection = Selection{
		Start: offs.Start,
		End:   offs.End,
		Text:  offs.Slice(s.text.Content),
	}
	s.state = StateSelectionActive

	_ = s.emitter.Emit(telemetry.Event{
		Kind:   telemetry.KindSelectionMade,
		TextID: s.text.ID,
		Data:   map[string]any{"start": offs.Start, "end": offs.End},
	})
	return s.selection
}

// ApplyCode persists the pending selection as a span carrying the given
// code, then clears the selection. Only valid in SelectionActive. On any
// store error the selection is kept and the error returned unchanged, so
// the caller can retry or correct.
func (s *Session) ApplyCode(ctx context.Context, codeID int64) (Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelectionActive {
		return Span{}, fmt.Errorf("session: apply code without an active selection: %w", ErrValidation)
	}

	span, err := s.stores.Segments.CreateSegment(ctx, s.text.ID, codeID, s.selection.Text, s.selection.Start, s.selection.End)
	if err != nil {
		return Span{}, err
	}

	s.selection = Selection{}
	s.state = StateTextLoaded

	_ = s.emitter.Emit(telemetry.Event{
		Kind:   telemetry.KindCodeApplied,
		TextID: span.TextID,
		CodeID: span.CodeID,
		Data:   map[string]any{"span": span.ID, "start": span.Start, "end": span.End},
	})
	return span, nil
}

// ClearSelection abandons the pending selection without persisting
// anything. Valid only in SelectionActive.
func (s *Session) ClearSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelectionActive {
		return fmt.Errorf("session: no selection to clear: %w", ErrValidation)
	}

	s.selection = Selection{}
	s.state = StateTextLoaded

	_ = s.emitter.Emit(telemetry.Event{
		Kind:   telemetry.KindSelectionCleared,
		TextID: s.text.ID,
	})
	return nil
}
