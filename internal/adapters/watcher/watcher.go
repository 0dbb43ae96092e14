// Package watcher reloads catalogs when connected geodatabase files change on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jobrunner/gdbee/internal/ports/output"
)

// Event represents a change to a tracked file.
type Event struct {
	Path      string
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler is called once per debounced event.
type Handler func(ctx context.Context, event Event) error

// pendingEvent holds a debounced event with its operation.
type pendingEvent struct {
	timestamp time.Time
	op        Operation
}

// Watcher watches the directories of tracked geodatabase files.
// fsnotify cannot watch a file across atomic replacement, so the parent
// directory is watched and events are filtered by tracked path.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	debounce  time.Duration

	mu      sync.Mutex
	files   map[string]int // tracked file -> reference count
	dirs    map[string]int // watched directory -> tracked files inside
	pending map[string]*pendingEvent
}

var _ output.FileWatcher = (*Watcher)(nil)

// Config holds watcher configuration.
type Config struct {
	Debounce time.Duration
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		debounce:  cfg.Debounce,
		files:     make(map[string]int),
		dirs:      make(map[string]int),
		pending:   make(map[string]*pendingEvent),
	}, nil
}

// Start starts the event and debounce loops.
func (w *Watcher) Start(ctx context.Context) {
	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Track starts watching path. Calls for the same path are reference counted.
func (w *Watcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[abs] > 0 {
		w.files[abs]++
		return nil
	}

	if w.dirs[dir] == 0 {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
		w.logger.Info("watching directory", "path", dir)
	}
	w.dirs[dir]++
	w.files[abs] = 1
	return nil
}

// Untrack releases one reference to path.
func (w *Watcher) Untrack(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.files[abs] {
	case 0:
		return nil
	case 1:
		delete(w.files, abs)
		delete(w.pending, abs)
	default:
		w.files[abs]--
		return nil
	}

	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	w.logger.Info("stopped watching directory", "path", dir)
	return w.fsWatcher.Remove(dir)
}

// Tracked reports whether path is tracked.
func (w *Watcher) Tracked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs] > 0
}

// eventLoop processes fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFsEvent queues an event for a tracked file.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	op := fsnotifyOpToOperation(event.Op)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] == 0 {
		return
	}

	w.logger.Debug("file event", "path", path, "op", event.Op.String())

	existing, exists := w.pending[path]
	if !exists {
		w.pending[path] = &pendingEvent{timestamp: time.Now(), op: op}
		return
	}
	updatePendingEvent(existing, op)
}

// updatePendingEvent merges a new operation into a pending event.
func updatePendingEvent(existing *pendingEvent, newOp Operation) {
	existing.timestamp = time.Now()

	switch {
	case existing.op == OpDelete && newOp != OpDelete:
		// Replaced by rename or recreate; the file is there again.
		existing.op = OpCreate
	case newOp == OpDelete:
		existing.op = OpDelete
	}
}

// debounceLoop processes debounced events.
func (w *Watcher) debounceLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.processPending(ctx, time.Now())
		}
	}
}

// processPending dispatches events that have been quiet for the debounce interval.
func (w *Watcher) processPending(ctx context.Context, now time.Time) []Event {
	w.mu.Lock()
	var ready []Event
	for path, pending := range w.pending {
		if now.Sub(pending.timestamp) < w.debounce {
			continue
		}
		delete(w.pending, path)
		ready = append(ready, Event{Path: path, Operation: pending.op})
	}
	w.mu.Unlock()

	for _, event := range ready {
		w.logger.Info("geodatabase changed",
			"path", event.Path,
			"operation", event.Operation.String(),
		)

		go func(e Event) {
			if err := w.handler(ctx, e); err != nil {
				w.logger.Error("handler error",
					"path", e.Path,
					"operation", e.Operation.String(),
					"error", err,
				)
			}
		}(event)
	}
	return ready
}

// fsnotifyOpToOperation converts fsnotify.Op to our Operation type.
func fsnotifyOpToOperation(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove):
		return OpDelete
	case op.Has(fsnotify.Rename):
		// The file is gone from its original location
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpModify
	}
}
