package codebook

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change signals that the watched codebook file was rewritten and parsed.
// Err is set when the new contents failed to load, in which case Book is
// the zero value and the previous import stays in effect.
type Change struct {
	Book Codebook
	Err  error
}

// Watcher monitors a codebook file and emits a Change whenever it is
// rewritten, so a live coding session can pick up new codes without
// restarting. Editors replace files with rename-then-create, so the parent
// directory is watched rather than the file itself.
type Watcher struct {
	Path    string
	Changes <-chan Change

	changes chan Change
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the codebook at path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 4)
	w := &Watcher{
		Path:    path,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}
	return w, nil
}

// Start begins watching the codebook's directory for changes.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: editors fire several events per save.
	const debounce = 100 * time.Millisecond
	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if !pending.IsZero() {
					w.emit()
				}
				return
			}

			if filepath.Clean(event.Name) != filepath.Clean(w.Path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				w.emit()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next save retriggers.
		}
	}
}

func (w *Watcher) emit() {
	cb, err := Load(w.Path)
	w.changes <- Change{Book: cb, Err: err}
}
