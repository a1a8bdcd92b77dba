// Package store provides the persistence backends for texts, codes, and
// coded segments: a SQLite database for normal runs and an in-memory
// implementation for tests and ephemeral sessions.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"margin/internal/annotate"
)

// Memory implements all three annotate stores in process memory. It is
// safe for concurrent use and assigns IDs the same way the SQLite backend
// does (monotonically increasing per table), so ID-based ordering
// contracts hold in both.
type Memory struct {
	mu       sync.Mutex
	texts    map[int64]annotate.Text
	codes    map[int64]annotate.Code
	segments []annotate.Span
	nextText int64
	nextCode int64
	nextSpan int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		texts:    make(map[int64]annotate.Text),
		codes:    make(map[int64]annotate.Code),
		nextText: 1,
		nextCode: 1,
		nextSpan: 1,
	}
}

// Stores returns the store bundle backed by this instance.
func (m *Memory) Stores() annotate.Stores {
	return annotate.Stores{Texts: m, Codes: m, Segments: m}
}

// CreateText stores a new immutable text.
func (m *Memory) CreateText(ctx context.Context, title, content string) (annotate.Text, error) {
	if content == "" {
		return annotate.Text{}, fmt.Errorf("store: text content is empty: %w", annotate.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := annotate.Text{
		ID:        m.nextText,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	m.nextText++
	m.texts[t.ID] = t
	return t, nil
}

// GetText returns the text with the given ID.
func (m *Memory) GetText(ctx context.Context, id int64) (annotate.Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.texts[id]
	if !ok {
		return annotate.Text{}, fmt.Errorf("store: text %d: %w", id, annotate.ErrNotFound)
	}
	return t, nil
}

// ListTexts returns all texts in creation order.
func (m *Memory) ListTexts(ctx context.Context) ([]annotate.Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]annotate.Text, 0, len(m.texts))
	for _, t := range m.texts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateCode stores a new label definition. Names are unique.
func (m *Memory) CreateCode(ctx context.Context, name, description, color string) (annotate.Code, error) {
	if strings.TrimSpace(name) == "" {
		return annotate.Code{}, fmt.Errorf("store: code name is empty: %w", annotate.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.codes {
		if c.Name == name {
			return annotate.Code{}, fmt.Errorf("store: code name %q already exists: %w", name, annotate.ErrValidation)
		}
	}

	c := annotate.Code{
		ID:          m.nextCode,
		Name:        name,
		Description: description,
		Color:       color,
		CreatedAt:   time.Now().UTC(),
	}
	m.nextCode++
	m.codes[c.ID] = c
	return c, nil
}

// GetCode returns the code with the given ID.
func (m *Memory) GetCode(ctx context.Context, id int64) (annotate.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[id]
	if !ok {
		return annotate.Code{}, fmt.Errorf("store: code %d: %w", id, annotate.ErrNotFound)
	}
	return c, nil
}

// GetCodeByName returns the code with the given unique name.
func (m *Memory) GetCodeByName(ctx context.Context, name string) (annotate.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.codes {
		if c.Name == name {
			return c, nil
		}
	}
	return annotate.Code{}, fmt.Errorf("store: code %q: %w", name, annotate.ErrNotFound)
}

// ListCodes returns all codes ordered by name.
func (m *Memory) ListCodes(ctx context.Context) ([]annotate.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]annotate.Code, 0, len(m.codes))
	for _, c := range m.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateSegment validates and persists a span.
func (m *Memory) CreateSegment(ctx context.Context, textID, codeID int64, selected string, start, end int) (annotate.Span, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	text, ok := m.texts[textID]
	if !ok {
		return annotate.Span{}, fmt.Errorf("store: text %d: %w", textID, annotate.ErrNotFound)
	}
	if _, ok := m.codes[codeID]; !ok {
		return annotate.Span{}, fmt.Errorf("store: code %d: %w", codeID, annotate.ErrNotFound)
	}
	if err := annotate.ValidateSpan(text.Content, start, end, selected); err != nil {
		return annotate.Span{}, fmt.Errorf("store: %w", err)
	}

	s := annotate.Span{
		ID:        m.nextSpan,
		TextID:    textID,
		CodeID:    codeID,
		Selected:  selected,
		Start:     start,
		End:       end,
		CreatedAt: time.Now().UTC(),
	}
	m.nextSpan++
	m.segments = append(m.segments, s)
	return s, nil
}

// ListSegments returns every span in creation order.
func (m *Memory) ListSegments(ctx context.Context) ([]annotate.Span, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]annotate.Span, len(m.segments))
	copy(out, m.segments)
	return out, nil
}

// ListSegmentsByText returns one text's spans ordered by start offset,
// ties broken by creation order.
func (m *Memory) ListSegmentsByText(ctx context.Context, textID int64) ([]annotate.Span, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []annotate.Span
	for _, s := range m.segments {
		if s.TextID == textID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
