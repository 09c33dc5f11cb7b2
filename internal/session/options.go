package session

import (
	"log/slog"

	"github.com/dshills/scriptnav/internal/analyzer"
	"github.com/dshills/scriptnav/internal/engine"
	"github.com/dshills/scriptnav/internal/engine/versioncache"
	"github.com/dshills/scriptnav/internal/fuzzy"
	"github.com/dshills/scriptnav/internal/metrics"
	"github.com/dshills/scriptnav/internal/watcher"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records command and document metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithAnalyzer replaces the built-in lexical analyzer.
func WithAnalyzer(a analyzer.Analyzer) Option {
	return func(s *Session) {
		s.analyzer = a
	}
}

// WithMatcher sets the matcher used by navto.
func WithMatcher(m *fuzzy.Matcher) Option {
	return func(s *Session) {
		s.matcher = m
	}
}

// WithMaxResults caps navto results when the client gives no limit.
func WithMaxResults(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithFileSystem sets where open and reload read files from. When fsys
// also implements fs.FS, glob patterns are expanded against it.
func WithFileSystem(fsys engine.FileSystem) Option {
	return func(s *Session) {
		s.fsys = fsys
	}
}

// WithCacheOptions configures the version cache of every document.
func WithCacheOptions(opts ...versioncache.Option) Option {
	return func(s *Session) {
		s.cacheOpts = append(s.cacheOpts, opts...)
	}
}

// WithWatcher reloads open files that change on disk. Serve runs the
// watcher loop; the caller owns its Source.
func WithWatcher(files *watcher.Files) Option {
	return func(s *Session) {
		s.files = files
	}
}
