// Package watcher observes source roots for changes and triggers
// re-ingestion after a quiet period. Events within the debounce window
// are coalesced per path so a burst of editor saves produces one batch.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceWindow is how long the watcher waits after the last
// event before firing the callback.
const DefaultDebounceWindow = 500 * time.Millisecond

// OnChange receives the coalesced set of changed paths, sorted.
type OnChange func(paths []string)

// Watcher watches directories recursively and reports batched changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	window   time.Duration
	onChange OnChange

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
}

// New creates a watcher. A window of zero or less uses the default.
func New(window time.Duration, onChange OnChange) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		window:   window,
		onChange: onChange,
		pending:  make(map[string]struct{}),
	}, nil
}

// Watch registers the roots and blocks processing events until ctx is
// done. Directory roots are walked and watched recursively; directories
// created later are added as they appear.
func (w *Watcher) Watch(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	slog.Info("watching for changes",
		slog.Int("roots", len(roots)),
		slog.Duration("debounce", w.window))

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// Close releases the underlying file system watcher.
func (w *Watcher) Close() error {
	w.stop()
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return
	}

	// New directories enter the watch set immediately so files created
	// inside them are seen.
	if ev.Op.Has(fsnotify.Create) {
		if err := w.addRecursive(ev.Name); err == nil {
			slog.Debug("watching new path", slog.String("path", ev.Name))
		}
	}

	if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		w.record(ev.Name)
	}
}

func (w *Watcher) record(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.window, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(paths)
	slog.Debug("changes detected", slog.Int("paths", len(paths)))
	w.onChange(paths)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
