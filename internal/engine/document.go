package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/scriptnav/internal/engine/versioncache"
	"github.com/dshills/scriptnav/internal/metrics"
)

// Document is one open file and its version history.
type Document struct {
	mu sync.RWMutex

	name      string
	cache     *versioncache.ScriptVersionCache
	cacheOpts []versioncache.Option

	fs      FileSystem
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newDocument(name string, opts []Option) *Document {
	d := &Document{
		name:   name,
		fs:     OSFS{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(slog.String("component", "document"), slog.String("file", name))
	return d
}

// Open reads path and creates a document holding its content.
func Open(path string, opts ...Option) (*Document, error) {
	d := newDocument(path, opts)
	data, err := d.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}
	d.cache = d.newCache(string(data), 0)
	d.logger.Debug("document opened",
		slog.Int("bytes", len(data)),
		slog.Int("lines", d.cache.Latest().LineCount()))
	return d, nil
}

// OpenText creates a document named name holding text. Nothing is read
// from disk.
func OpenText(name, text string, opts ...Option) *Document {
	d := newDocument(name, opts)
	d.cache = d.newCache(text, 0)
	return d
}

func (d *Document) newCache(text string, start int) *versioncache.ScriptVersionCache {
	opts := make([]versioncache.Option, 0, len(d.cacheOpts)+2)
	opts = append(opts, d.cacheOpts...)
	opts = append(opts, versioncache.WithStartVersion(start), versioncache.WithConsolidateHook(d.onConsolidate))
	return versioncache.New(text, opts...)
}

func (d *Document) onConsolidate(info versioncache.ConsolidationInfo) {
	d.metrics.IncConsolidations()
	d.logger.Debug("version cache consolidated",
		slog.Int("version", info.Version),
		slog.Int("changes", info.Changes),
		slog.Int("length", info.Length),
		slog.Int("lines", info.Lines))
}

// Name returns the document's file name.
func (d *Document) Name() string {
	return d.name
}

// Latest returns the current snapshot.
func (d *Document) Latest() *versioncache.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.Latest()
}

// LatestVersion returns the current version number.
func (d *Document) LatestVersion() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.LatestVersion()
}

// Snapshot returns a retained snapshot by version.
func (d *Document) Snapshot(version int) (*versioncache.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.Snapshot(version)
}

// Edit replaces deleteLength bytes at pos with text.
func (d *Document) Edit(pos, deleteLength int, text string) (*versioncache.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.cache.Edit(pos, deleteLength, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}
	d.metrics.IncEdits()
	return s, nil
}

// EditToEnd replaces everything from pos to the end with text.
func (d *Document) EditToEnd(pos int, text string) (*versioncache.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.cache.EditToEnd(pos, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}
	d.metrics.IncEdits()
	return s, nil
}

// Reload replaces the content with text. Change ranges do not reach back
// past the reload.
func (d *Document) Reload(text string) *versioncache.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.cache.Reload(text)
	d.metrics.ObserveReload(true)
	d.logger.Debug("document reloaded", slog.Int("version", s.Version()))
	return s
}

// ReloadFromFile replaces the content with the content of path, or of the
// document's own file when path is empty. If the file cannot be read the
// document is left unchanged and the error wraps ErrReloadFailed.
func (d *Document) ReloadFromFile(path string) (*versioncache.Snapshot, error) {
	if path == "" {
		path = d.name
	}
	data, err := d.fs.ReadFile(path)
	if err != nil {
		d.metrics.ObserveReload(false)
		d.logger.Warn("reload failed", slog.String("source", path), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s: %w", ErrReloadFailed, path, err)
	}
	return d.Reload(string(data)), nil
}

// ReloadNoHistory discards the version cache and starts a new one holding
// text. The new cache's first version follows the old latest version.
func (d *Document) ReloadNoHistory(text string) *versioncache.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = d.newCache(text, d.cache.LatestVersion()+1)
	s := d.cache.Latest()
	d.metrics.ObserveReload(true)
	d.logger.Debug("document reloaded without history", slog.Int("version", s.Version()))
	return s
}

// ChangesSince returns the net change range from version to the latest
// version.
func (d *Document) ChangesSince(version int) (versioncache.ChangeRange, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	latest := d.cache.Latest()
	prior, err := d.cache.Snapshot(version)
	switch {
	case err == nil:
		return latest.GetChangeRange(prior)
	case errors.Is(err, versioncache.ErrVersionEvicted):
		return d.cache.GetTextChangesBetweenVersions(version, latest.Version())
	default:
		return versioncache.ChangeRange{}, err
	}
}

// PositionOf converts an offset in the latest version to a line and column.
func (d *Document) PositionOf(offset int) (versioncache.Position, error) {
	return d.Latest().PositionOf(offset)
}

// OffsetOf converts a line and column in the latest version to an offset.
func (d *Document) OffsetOf(line, column int) (int, error) {
	return d.Latest().OffsetOf(line, column)
}
