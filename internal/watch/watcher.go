// Package watch observes a local directory tree and reports settled
// file changes so a sync run can be triggered after edits stop.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TheMichaelB/remarksync/internal/events"
)

var (
	// ErrWatcherClosed indicates the watcher was already stopped.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrDirNotExist indicates the watched root is missing.
	ErrDirNotExist = errors.New("directory to watch does not exist")
)

// Change reports a file event after its debounce window elapsed.
type Change struct {
	Path string
	Op   fsnotify.Op
}

// Watcher wraps fsnotify with recursive directory tracking and a
// per-path debounce, so editors that write in bursts produce a single
// change per file.
type Watcher struct {
	fs       *fsnotify.Watcher
	logger   *events.Logger
	debounce time.Duration

	changes chan Change
	errors  chan error

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// Config for the watcher.
type Config struct {
	// DebounceDelay is how long a path must stay quiet before its
	// change is reported. Zero disables debouncing.
	DebounceDelay time.Duration
}

// New creates a watcher over the directory tree rooted at dir.
func New(dir string, cfg Config, logger *events.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirNotExist, dir)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fs,
		logger:   logger.WithField("service", "watch"),
		debounce: cfg.DebounceDelay,
		changes:  make(chan Change, 64),
		errors:   make(chan error, 16),
		timers:   make(map[string]*time.Timer),
	}

	if err := w.addTree(dir); err != nil {
		fs.Close()
		return nil, err
	}

	return w, nil
}

// Changes delivers debounced file changes.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Errors delivers watcher errors that did not stop the loop.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Run processes events until the context is cancelled or the watcher
// is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return ErrWatcherClosed
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.reportError(err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true

	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}

	return w.fs.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.WithError(err).WithField("path", event.Name).
					Warn("Failed to watch new directory")
			}
			return
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if err := w.fs.Remove(event.Name); err != nil &&
			!errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger.WithError(err).WithField("path", event.Name).
				Debug("Failed to remove watch")
		}
	}

	w.schedule(Change{Path: event.Name, Op: event.Op})
}

// schedule arms the debounce timer for a path, resetting it if the
// path changes again before the window elapses.
func (w *Watcher) schedule(change Change) {
	if w.debounce <= 0 {
		w.emit(change)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if timer, ok := w.timers[change.Path]; ok {
		timer.Stop()
	}

	w.timers[change.Path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, change.Path)
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.emit(change)
		}
	})
}

func (w *Watcher) emit(change Change) {
	select {
	case w.changes <- change:
	default:
		w.logger.WithField("path", change.Path).Warn("Dropped change, channel full")
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.WithError(err).Warn("Dropped watcher error, channel full")
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fs.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			w.logger.WithField("dir", path).Debug("Watching directory")
		}
		return nil
	})
}
