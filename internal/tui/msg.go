package tui

import "margin/internal/codebook"

// MsgCodebookChanged arrives when the watched codebook file is rewritten.
type MsgCodebookChanged struct {
	Change codebook.Change
}

// MsgWatcherClosed arrives when the codebook watcher channel closes.
type MsgWatcherClosed struct{}
