package watcher

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotify is a Source backed by fsnotify. Watches are not recursive.
type FSNotify struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	ignore  ignoreSet
	logger  *slog.Logger
	dirs    map[string]bool

	events chan Event
	errors chan error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewFSNotify creates an fsnotify source and starts its event loop.
func NewFSNotify(logger *slog.Logger, opts ...Option) (*FSNotify, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ignore, err := newIgnoreSet(cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 100
	}

	w := &FSNotify{
		watcher: fsw,
		ignore:  ignore,
		logger:  logger.With("component", "watcher"),
		dirs:    make(map[string]bool),
		events:  make(chan Event, size),
		errors:  make(chan error, size),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch starts watching dir.
func (w *FSNotify) Watch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.dirs[abs] {
		return ErrAlreadyWatching
	}
	if err := w.watcher.Add(abs); err != nil {
		return err
	}
	w.dirs[abs] = true
	w.logger.Debug("watching directory", "dir", abs)
	return nil
}

// Unwatch stops watching dir.
func (w *FSNotify) Unwatch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if !w.dirs[abs] {
		return ErrNotWatching
	}
	delete(w.dirs, abs)
	if err := w.watcher.Remove(abs); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return err
	}
	return nil
}

// IsWatching reports whether dir is watched.
func (w *FSNotify) IsWatching(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[abs]
}

// Events returns the event channel.
func (w *FSNotify) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel.
func (w *FSNotify) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and closes its channels.
func (w *FSNotify) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return err
}

func (w *FSNotify) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
			w.sendError(err)
		}
	}
}

func (w *FSNotify) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 || w.ignore.Match(fsEvent.Name) {
		return
	}
	w.sendEvent(Event{
		Path:      filepath.Clean(fsEvent.Name),
		Op:        op,
		Timestamp: time.Now(),
	})
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

func (w *FSNotify) sendEvent(event Event) {
	select {
	case w.events <- event:
	case <-w.closeCh:
	default:
		w.logger.Warn("event channel full, dropping event", "path", event.Path, "op", event.Op.String())
	}
}

func (w *FSNotify) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

var _ Source = (*FSNotify)(nil)
