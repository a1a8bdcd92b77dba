// Package ui renders engine output for the terminal: a stderr printer for
// status and errors, plus highlighted fragment and review-table rendering.
package ui

import (
	"fmt"
	"os"
	"strings"

	"margin/internal/annotate"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

// Printer writes human-facing status output to stderr, keeping stdout
// clean for data (listings, exports).
type Printer struct{}

func New() *Printer {
	return &Printer{}
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(os.Stderr, red+bold+"error: "+reset+"%s\n", msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintf(os.Stderr, dim+"%s"+reset+"\n", msg)
}

func (p *Printer) TextLoaded(t annotate.Text) {
	fmt.Fprintf(os.Stderr, green+"◆ text loaded"+reset+" #%d %q "+dim+"(%d chars)"+reset+"\n",
		t.ID, t.Title, len([]rune(t.Content)))
}

func (p *Printer) CodeCreated(c annotate.Code) {
	swatch := ""
	if c.Color != "" {
		swatch = " " + c.Color
	}
	fmt.Fprintf(os.Stderr, green+"◆ code created"+reset+" #%d %s%s\n", c.ID, c.Name, swatch)
}

func (p *Printer) SpanRecorded(span annotate.Span, codeName string) {
	fmt.Fprintf(os.Stderr, green+"✓ coded"+reset+" [%d,%d) %q "+cyan+"→ %s"+reset+"\n",
		span.Start, span.End, truncate(span.Selected, 40), codeName)
}

func (p *Printer) SelectionRejected(raw string) {
	fmt.Fprintf(os.Stderr, yellow+"⚠ selection not found"+reset+" — %q does not occur in the loaded text\n",
		truncate(raw, 60))
}

func (p *Printer) ImportSummary(created, skipped []string) {
	fmt.Fprintf(os.Stderr, green+"✓ codebook imported"+reset+" — %d created, %d already present\n",
		len(created), len(skipped))
	if len(skipped) > 0 {
		fmt.Fprintf(os.Stderr, dim+"  kept existing: %s"+reset+"\n", strings.Join(skipped, ", "))
	}
}

// TextTable writes a listing of loaded texts to stdout.
func (p *Printer) TextTable(texts []annotate.Text) {
	if len(texts) == 0 {
		fmt.Println("(no texts loaded)")
		return
	}
	for _, t := range texts {
		fmt.Printf("%-6d %-30s %s\n", t.ID, truncate(t.Title, 30), t.CreatedAt.Format("2006-01-02 15:04"))
	}
}

// CodeTable writes a listing of codes to stdout.
func (p *Printer) CodeTable(codes []annotate.Code) {
	if len(codes) == 0 {
		fmt.Println("(no codes defined)")
		return
	}
	for _, c := range codes {
		color := c.Color
		if color == "" {
			color = "-"
		}
		fmt.Printf("%-6d %-20s %-9s %s\n", c.ID, c.Name, color, truncate(c.Description, 50))
	}
}

// ReviewTable writes the aggregator's flat listing to stdout, newest
// first (the ordering is the aggregator's contract; this only formats).
func (p *Printer) ReviewTable(rows []annotate.ReviewRow) {
	if len(rows) == 0 {
		fmt.Println("(no coded segments)")
		return
	}
	fmt.Printf("%-30s %-20s %-40s %s\n", "TEXT", "CODE", "SEGMENT", "CODED AT")
	for _, r := range rows {
		fmt.Printf("%-30s %-20s %-40s %s\n",
			truncate(r.TextTitle, 30),
			truncate(r.CodeName, 20),
			truncate(r.Selected, 40),
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
}

// truncate shortens s to max runes for column display.
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", "⏎")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
