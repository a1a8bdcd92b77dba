// Package tui implements the interactive coding session: the loaded text
// with live highlights in a viewport, the code list, and a selection input,
// all driven by the annotate.Session state machine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"margin/internal/annotate"
	"margin/internal/codebook"
	"margin/internal/ui"
)

// Model is the root BubbleTea model for the coding session.
type Model struct {
	Session *annotate.Session
	Stores  annotate.Stores
	Keys    KeyMap

	Codes    []annotate.Code
	Cursor   int // index into Codes
	Viewport viewport.Model
	Input    textinput.Model
	Entering bool // selection input has focus

	Watcher *codebook.Watcher // nil when no codebook is watched

	Width   int
	Height  int
	Message string
	IsErr   bool
}

// NewModel creates the coding model. The session must already have a text
// loaded; codes is the current code list shown for applying.
func NewModel(session *annotate.Session, stores annotate.Stores, codes []annotate.Code, watcher *codebook.Watcher) Model {
	in := textinput.New()
	in.Placeholder = "type or paste the exact passage to select"
	in.CharLimit = 0

	vp := viewport.New(80, 20)

	m := Model{
		Session:  session,
		Stores:   stores,
		Keys:     DefaultKeyMap(),
		Codes:    codes,
		Viewport: vp,
		Input:    in,
		Watcher:  watcher,
	}
	m.refreshViewport()
	return m
}

// Init wires the codebook watcher into the message loop.
func (m Model) Init() tea.Cmd {
	if m.Watcher == nil {
		return nil
	}
	return watchCmd(m.Watcher)
}

// watchCmd blocks on the watcher channel and converts changes to messages.
func watchCmd(w *codebook.Watcher) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-w.Changes
		if !ok {
			return MsgWatcherClosed{}
		}
		return MsgCodebookChanged{Change: change}
	}
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Viewport.Width = msg.Width
		m.Viewport.Height = max(3, msg.Height-m.chromeHeight())
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case MsgCodebookChanged:
		return m.handleCodebook(msg.Change)

	case MsgWatcherClosed:
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// handleKey routes key presses depending on whether the selection input
// has focus.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Entering {
		switch msg.String() {
		case "enter":
			m.Entering = false
			m.Input.Blur()
			raw := m.Input.Value()
			m.Input.SetValue("")
			return m.doSelect(raw), nil
		case "esc":
			m.Entering = false
			m.Input.Blur()
			m.Input.SetValue("")
			return m, nil
		default:
			var cmd tea.Cmd
			m.Input, cmd = m.Input.Update(msg)
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Select):
		m.Entering = true
		m.Input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil

	case key.Matches(msg, m.Keys.Down):
		if m.Cursor < len(m.Codes)-1 {
			m.Cursor++
		}
		return m, nil

	case key.Matches(msg, m.Keys.Apply):
		return m.doApply(), nil

	case key.Matches(msg, m.Keys.Clear):
		if err := m.Session.ClearSelection(); err == nil {
			m.setMessage("selection cleared", false)
			m.refreshViewport()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// doSelect resolves a typed selection through the session.
func (m Model) doSelect(raw string) Model {
	sel, err := m.Session.Select(context.Background(), raw)
	if err != nil {
		if errors.Is(err, annotate.ErrNotFound) {
			m.setMessage("selection not found in text", true)
		} else {
			m.setMessage(err.Error(), true)
		}
		return m
	}
	m.setMessage(fmt.Sprintf("selected [%d,%d) — pick a code and press enter", sel.Start, sel.End), false)
	m.refreshViewport()
	return m
}

// doApply persists the pending selection under the highlighted code.
func (m Model) doApply() Model {
	if len(m.Codes) == 0 {
		m.setMessage("no codes defined — import a codebook first", true)
		return m
	}
	code := m.Codes[m.Cursor]

	span, err := m.Session.ApplyCode(context.Background(), code.ID)
	if err != nil {
		// Session keeps the selection on store errors; show and let the
		// analyst retry or clear.
		m.setMessage(err.Error(), true)
		return m
	}
	m.setMessage(fmt.Sprintf("coded %q → %s", truncate(span.Selected, 30), code.Name), false)
	m.refreshViewport()
	return m
}

// handleCodebook re-imports a changed codebook and refreshes the code list.
func (m Model) handleCodebook(change codebook.Change) (tea.Model, tea.Cmd) {
	next := watchCmd(m.Watcher)

	if change.Err != nil {
		m.setMessage("codebook reload failed: "+change.Err.Error(), true)
		return m, next
	}

	res, err := codebook.Import(context.Background(), m.Stores.Codes, change.Book)
	if err != nil {
		m.setMessage("codebook import failed: "+err.Error(), true)
		return m, next
	}

	codes, err := m.Stores.Codes.ListCodes(context.Background())
	if err != nil {
		m.setMessage(err.Error(), true)
		return m, next
	}
	m.Codes = codes
	if m.Cursor >= len(m.Codes) {
		m.Cursor = max(0, len(m.Codes)-1)
	}
	m.setMessage(fmt.Sprintf("codebook reloaded — %d new code(s)", len(res.Created)), false)
	return m, next
}

// setMessage updates the message line shown below the code list.
func (m *Model) setMessage(msg string, isErr bool) {
	m.Message = msg
	m.IsErr = isErr
}

// refreshViewport re-renders the loaded text with current highlights.
func (m *Model) refreshViewport() {
	view := m.Session.Current()
	if view.State == annotate.StateEmpty {
		m.Viewport.SetContent("(no text loaded)")
		return
	}

	spans, err := m.Stores.Segments.ListSegmentsByText(context.Background(), view.Text.ID)
	if err != nil {
		m.Viewport.SetContent(view.Text.Content)
		return
	}

	// A pending selection is previewed as an unpersisted span with a
	// sentinel code ID so it highlights distinctly.
	if view.State == annotate.StateSelectionActive {
		spans = append(spans, annotate.Span{
			CodeID:   previewCodeID,
			Selected: view.Selection.Text,
			Start:    view.Selection.Start,
			End:      view.Selection.End,
		})
	}

	h := ui.NewHighlighter(append(m.Codes, previewCode()), false)
	fragments := annotate.Render(view.Text.Content, spans)
	m.Viewport.SetContent(h.Render(fragments))
}

// previewCodeID marks the pending-selection preview span. Negative so it
// can never collide with a stored code.
const previewCodeID int64 = -1

func previewCode() annotate.Code {
	return annotate.Code{ID: previewCodeID, Name: "(pending)", Color: "#FFD700"}
}

// View renders the full screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.statusBar())
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.codeList())

	if m.Entering {
		b.WriteString("\nselect> " + m.Input.View())
	} else if m.Message != "" {
		style := styleMessageOK
		if m.IsErr {
			style = styleMessageErr
		}
		b.WriteString("\n" + style.Render(m.Message))
	}

	b.WriteString("\n" + m.footer())
	return b.String()
}

// statusBar shows the loaded text and session state.
func (m Model) statusBar() string {
	view := m.Session.Current()
	title := "(none)"
	if view.State != annotate.StateEmpty {
		title = fmt.Sprintf("#%d %s", view.Text.ID, view.Text.Title)
	}

	left := styleStatusState.Render(view.State.String()) + "  " + title
	if view.State == annotate.StateSelectionActive {
		left += "  " + styleSelection.Render(fmt.Sprintf("[%d,%d) %q",
			view.Selection.Start, view.Selection.End, truncate(view.Selection.Text, 30)))
	}
	return styleStatusBar.Width(m.Width).Render(left)
}

// codeList renders the selectable code list, one row per code.
func (m Model) codeList() string {
	if len(m.Codes) == 0 {
		return styleCodeNormal.Render("  (no codes — import a codebook)")
	}

	rows := make([]string, 0, len(m.Codes))
	for i, c := range m.Codes {
		label := c.Name
		if c.Description != "" {
			label += "  " + styleCodeNormal.Render(truncate(c.Description, 40))
		}
		if i == m.Cursor {
			rows = append(rows, selectionIndicator+styleCodeSelected.Render(label))
		} else {
			rows = append(rows, " "+styleCodeNormal.Render(c.Name))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// footer shows the keybinding help line.
func (m Model) footer() string {
	help := "/ select · ↑/↓ code · enter apply · esc clear · q quit"
	return styleFooter.Width(m.Width).Render(help)
}

// chromeHeight is the number of rows used by everything except the
// viewport: status bar, code list, message line, footer.
func (m Model) chromeHeight() int {
	return 4 + len(m.Codes)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "…"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
