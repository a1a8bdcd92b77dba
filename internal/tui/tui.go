package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"margin/internal/annotate"
	"margin/internal/codebook"
)

// Program is an alias for tea.Program, exposed so callers don't need to
// import bubbletea directly.
type Program = tea.Program

// NewProgram creates a BubbleTea program for a coding session. The program
// uses the alternate screen buffer for a clean TUI experience.
func NewProgram(session *annotate.Session, stores annotate.Stores, codes []annotate.Code, watcher *codebook.Watcher, opts ...tea.ProgramOption) *Program {
	model := NewModel(session, stores, codes, watcher)

	allOpts := []tea.ProgramOption{
		tea.WithAltScreen(),
	}
	allOpts = append(allOpts, opts...)

	return tea.NewProgram(model, allOpts...)
}

// Run creates and runs a coding TUI, blocking until it exits.
func Run(session *annotate.Session, stores annotate.Stores, codes []annotate.Code, watcher *codebook.Watcher) error {
	p := NewProgram(session, stores, codes, watcher)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// WithOutput returns a program option that directs TUI output to the given
// writer. Useful for testing or redirecting output.
func WithOutput(w io.Writer) tea.ProgramOption {
	return tea.WithOutput(w)
}
