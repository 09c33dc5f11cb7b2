package watcher

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Errors returned by watchers.
var (
	ErrClosed          = errors.New("watcher: closed")
	ErrPathNotExist    = errors.New("watcher: path does not exist")
	ErrAlreadyWatching = errors.New("watcher: already watching path")
	ErrNotWatching     = errors.New("watcher: path not watched")
	ErrIgnored         = errors.New("watcher: path matches an ignore pattern")
	ErrBadPattern      = errors.New("watcher: invalid ignore pattern")
)

// Op is a set of filesystem operations.
type Op uint8

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// String returns a "|"-joined list of the operations in op.
func (op Op) String() string {
	if op == 0 {
		return "NONE"
	}
	var parts []string
	for _, named := range []struct {
		op   Op
		name string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
	} {
		if op.Has(named.op) {
			parts = append(parts, named.name)
		}
	}
	return strings.Join(parts, "|")
}

// Has reports whether op includes every operation in o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Changed reports whether op can have altered the file's content.
func (op Op) Changed() bool {
	return op&(OpCreate|OpWrite) != 0
}

// Event is a filesystem change for a single path.
type Event struct {
	Path      string
	Op        Op
	Timestamp time.Time
}

// Source produces filesystem events for watched directories.
type Source interface {
	Watch(dir string) error
	Unwatch(dir string) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Config holds watcher settings.
type Config struct {
	// DebounceDelay is how long a path must be quiet before its
	// coalesced event is delivered.
	DebounceDelay time.Duration

	// BufferSize is the capacity of the event and error channels.
	BufferSize int

	// IgnorePatterns are doublestar globs for paths never reported.
	IgnorePatterns []string
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		BufferSize:    100,
		IgnorePatterns: []string{
			"**/.git/**",
			"*.swp",
			"*~",
		},
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounceDelay sets the debounce delay.
func WithDebounceDelay(d time.Duration) Option {
	return func(c *Config) {
		c.DebounceDelay = d
	}
}

// WithBufferSize sets the channel capacity.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithIgnorePatterns replaces the ignore globs.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Config) {
		c.IgnorePatterns = patterns
	}
}

// ignoreSet matches paths against doublestar globs.
type ignoreSet []string

func newIgnoreSet(patterns []string) (ignoreSet, error) {
	set := make(ignoreSet, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Join(ErrBadPattern, errors.New(p))
		}
		set = append(set, p)
	}
	return set, nil
}

// Match reports whether path, or its base name, matches any pattern.
func (s ignoreSet) Match(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, p := range s {
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}
