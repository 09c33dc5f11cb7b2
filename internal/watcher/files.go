package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
)

// Files narrows a Source to an explicit set of files. The directory of
// each tracked file is watched for as long as at least one file in it is
// tracked.
type Files struct {
	src    Source
	ignore ignoreSet
	logger *slog.Logger

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]int
}

// NewFiles creates a tracker on top of src. Only the IgnorePatterns of
// the options are consulted.
func NewFiles(src Source, logger *slog.Logger, opts ...Option) (*Files, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ignore, err := newIgnoreSet(cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Files{
		src:    src,
		ignore: ignore,
		logger: logger.With("component", "watcher"),
		files:  make(map[string]bool),
		dirs:   make(map[string]int),
	}, nil
}

// Track starts reporting changes to path. Tracking a file twice is a no-op.
func (f *Files) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if f.ignore.Match(abs) {
		return ErrIgnored
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files[abs] {
		return nil
	}
	dir := filepath.Dir(abs)
	if f.dirs[dir] == 0 {
		if err := f.src.Watch(dir); err != nil && !errors.Is(err, ErrAlreadyWatching) {
			return err
		}
	}
	f.dirs[dir]++
	f.files[abs] = true
	return nil
}

// Untrack stops reporting changes to path.
func (f *Files) Untrack(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.files[abs] {
		return ErrNotWatching
	}
	delete(f.files, abs)
	dir := filepath.Dir(abs)
	f.dirs[dir]--
	if f.dirs[dir] > 0 {
		return nil
	}
	delete(f.dirs, dir)
	if err := f.src.Unwatch(dir); err != nil && !errors.Is(err, ErrNotWatching) {
		return err
	}
	return nil
}

// IsTracked reports whether path is tracked.
func (f *Files) IsTracked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[abs]
}

// Tracked returns the tracked files in sorted order.
func (f *Files) Tracked() []string {
	f.mu.Lock()
	out := make([]string, 0, len(f.files))
	for path := range f.files {
		out = append(out, path)
	}
	f.mu.Unlock()
	sort.Strings(out)
	return out
}

// Run calls fn for each event that may have changed a tracked file's
// content. It returns when ctx is done or the source is closed.
func (f *Files) Run(ctx context.Context, fn func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-f.src.Events():
			if !ok {
				return nil
			}
			if !event.Op.Changed() || !f.IsTracked(event.Path) {
				continue
			}
			f.logger.Debug("tracked file changed", "path", event.Path, "op", event.Op.String())
			fn(event)
		case err, ok := <-f.src.Errors():
			if !ok {
				return nil
			}
			f.logger.Warn("watch error", "error", err)
		}
	}
}
