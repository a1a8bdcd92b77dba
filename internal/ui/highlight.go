package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"margin/internal/annotate"
)

// fallbackPalette colors codes that carry no color hint of their own.
// Assignment is by code ID so it is stable across renders.
var fallbackPalette = []lipgloss.Color{
	lipgloss.Color("#5B8DEF"), // blue
	lipgloss.Color("#00E676"), // green
	lipgloss.Color("#FFD700"), // gold
	lipgloss.Color("#FF5252"), // red
	lipgloss.Color("#B388FF"), // violet
	lipgloss.Color("#00BFA5"), // teal
}

// Highlighter renders overlap-renderer fragments with per-code colors.
// Fragments covered by a single code get that code's background color;
// multi-code fragments keep the first code's background and are annotated
// with a stacked swatch marker per covering code, so no code is ever
// silently dropped.
type Highlighter struct {
	colors  map[int64]lipgloss.Color
	names   map[int64]string
	noColor bool
}

// NewHighlighter builds a highlighter for the given code set. With noColor
// set, highlighting degrades to bracketed code-name markers.
func NewHighlighter(codes []annotate.Code, noColor bool) *Highlighter {
	h := &Highlighter{
		colors:  make(map[int64]lipgloss.Color, len(codes)),
		names:   make(map[int64]string, len(codes)),
		noColor: noColor,
	}
	for _, c := range codes {
		h.names[c.ID] = c.Name
		if c.Color != "" {
			h.colors[c.ID] = lipgloss.Color(c.Color)
		} else {
			h.colors[c.ID] = fallbackPalette[int(c.ID)%len(fallbackPalette)]
		}
	}
	return h
}

// Render returns the fragments as one styled string reconstructing the
// source content, with labeled runs highlighted.
func (h *Highlighter) Render(fragments []annotate.Fragment) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(h.fragment(f))
	}
	return b.String()
}

// fragment styles one fragment.
func (h *Highlighter) fragment(f annotate.Fragment) string {
	if !f.Labeled() {
		return f.Text
	}

	if h.noColor {
		return "[" + f.Text + "]{" + strings.Join(h.codeNames(f.CodeIDs), ",") + "}"
	}

	style := lipgloss.NewStyle().
		Background(h.colors[f.CodeIDs[0]]).
		Foreground(lipgloss.Color("#1E1E2E"))
	out := style.Render(f.Text)

	// Stacked swatches make every covering code visible even though only
	// one background can win.
	if len(f.CodeIDs) > 1 {
		out += h.swatches(f.CodeIDs)
	}
	return out
}

// swatches renders one colored block per covering code.
func (h *Highlighter) swatches(codeIDs []int64) string {
	var b strings.Builder
	for _, id := range codeIDs {
		b.WriteString(lipgloss.NewStyle().Foreground(h.colors[id]).Render("▰"))
	}
	return b.String()
}

// Legend returns one line per code used in the fragments, swatch plus
// name, for display under a highlighted text.
func (h *Highlighter) Legend(fragments []annotate.Fragment) string {
	seen := make(map[int64]bool)
	var order []int64
	for _, f := range fragments {
		for _, id := range f.CodeIDs {
			if !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
		}
	}
	if len(order) == 0 {
		return ""
	}

	var b strings.Builder
	for _, id := range order {
		name := h.names[id]
		if name == "" {
			name = "(unknown code)"
		}
		if h.noColor {
			b.WriteString("  " + name + "\n")
			continue
		}
		b.WriteString("  " + lipgloss.NewStyle().Foreground(h.colors[id]).Render("▰") + " " + name + "\n")
	}
	return b.String()
}

// codeNames maps IDs to names, in the given order.
func (h *Highlighter) codeNames(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := h.names[id]; n != "" {
			out = append(out, n)
		} else {
			out = append(out, "?")
		}
	}
	return out
}
