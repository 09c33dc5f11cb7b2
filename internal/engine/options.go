package engine

import (
	"io/fs"
	"log/slog"
	"os"

	"github.com/dshills/scriptnav/internal/engine/versioncache"
	"github.com/dshills/scriptnav/internal/metrics"
)

// FileSystem reads document content.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)

	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Option configures a Document during creation.
type Option func(*Document)

// WithFileSystem sets the file system used by Open and ReloadFromFile.
func WithFileSystem(fsys FileSystem) Option {
	return func(d *Document) {
		if fsys != nil {
			d.fs = fsys
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithCacheOptions sets the options for the document's version cache.
func WithCacheOptions(opts ...versioncache.Option) Option {
	return func(d *Document) {
		d.cacheOpts = append(d.cacheOpts, opts...)
	}
}

// WithMetrics sets the metrics sink. A nil value disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Document) {
		d.metrics = m
	}
}
