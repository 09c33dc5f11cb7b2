package versioncache

import (
	"fmt"

	"github.com/dshills/scriptnav/internal/engine/lineindex"
)

// ScriptVersionCache holds the version history of one document.
type ScriptVersionCache struct {
	opts Options

	// ring holds the most recent snapshots; version v lives at v % len(ring).
	ring    []*Snapshot
	latest  *Snapshot
	minimum int

	// reloadVersion is the version published by the last load or reload.
	// No change range reaches back past it.
	reloadVersion int

	pending       []TextChange
	pendingLength int

	consolidations int
}

// New creates a cache whose first version holds text.
func New(text string, opts ...Option) *ScriptVersionCache {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &ScriptVersionCache{
		opts: o,
		ring: make([]*Snapshot, o.MaxVersions),
	}
	c.reset(o.StartVersion, lineindex.Load(text))
	return c
}

// reset starts a new history at version v.
func (c *ScriptVersionCache) reset(v int, index *lineindex.LineIndex) {
	clear(c.ring)
	c.pending = nil
	c.pendingLength = 0
	c.reloadVersion = v
	c.minimum = v
	c.publish(&Snapshot{version: v, index: index, cache: c})
}

func (c *ScriptVersionCache) publish(s *Snapshot) {
	c.ring[s.version%len(c.ring)] = s
	c.latest = s
	if oldest := s.version - len(c.ring) + 1; oldest > c.minimum {
		c.minimum = oldest
	}
}

// Edit replaces deleteLength bytes at pos with text in the latest version
// and publishes the result as a new version.
func (c *ScriptVersionCache) Edit(pos, deleteLength int, text string) (*Snapshot, error) {
	index, err := c.latest.index.Edit(pos, deleteLength, text)
	if err != nil {
		return nil, fmt.Errorf("edit version %d: %w", c.latest.version, err)
	}

	change := TextChange{Pos: pos, DeleteLength: deleteLength, InsertedText: text}
	c.pending = append(c.pending, change)
	c.pendingLength += deleteLength + len(text)

	version := c.latest.version + 1
	if len(c.pending) > c.opts.ChangeNumberThreshold || c.pendingLength > c.opts.ChangeLengthThreshold {
		index = c.consolidate(version, index)
	}

	s := &Snapshot{version: version, index: index, cache: c, change: &change}
	c.publish(s)
	return s, nil
}

// EditToEnd replaces everything from pos to the end of the latest version
// with text.
func (c *ScriptVersionCache) EditToEnd(pos int, text string) (*Snapshot, error) {
	length := c.latest.index.Len()
	if pos < 0 || pos > length {
		return nil, fmt.Errorf("edit version %d: %w: position %d", c.latest.version, ErrRangeInvalid, pos)
	}
	return c.Edit(pos, length-pos, text)
}

// consolidate rebuilds the tree balanced and discards the pending changes.
// The per-version changes kept with retained snapshots are unaffected, so
// change ranges across a consolidation stay exact.
func (c *ScriptVersionCache) consolidate(version int, index *lineindex.LineIndex) *lineindex.LineIndex {
	info := ConsolidationInfo{
		Version: version,
		Changes: len(c.pending),
		Length:  c.pendingLength,
	}

	rebuilt := index.Rebuild()
	c.pending = nil
	c.pendingLength = 0
	c.consolidations++

	if c.opts.OnConsolidate != nil {
		info.Lines = rebuilt.LineCount()
		c.opts.OnConsolidate(info)
	}
	return rebuilt
}

// Reload replaces the content with text and publishes it as a new version.
// The history is discarded: snapshots taken earlier stay valid, but change
// ranges that reach back past the reload fail with ErrReloadDiscontinuity.
func (c *ScriptVersionCache) Reload(text string) *Snapshot {
	c.reset(c.latest.version+1, lineindex.Load(text))
	return c.latest
}

// Latest returns the most recent snapshot.
func (c *ScriptVersionCache) Latest() *Snapshot {
	return c.latest
}

// LatestVersion returns the most recent version number.
func (c *ScriptVersionCache) LatestVersion() int {
	return c.latest.version
}

// ReloadVersion returns the version published by the last load or reload.
func (c *ScriptVersionCache) ReloadVersion() int {
	return c.reloadVersion
}

// MinVersion returns the oldest version still retained.
func (c *ScriptVersionCache) MinVersion() int {
	return c.minimum
}

// Snapshot returns the retained snapshot of version v.
func (c *ScriptVersionCache) Snapshot(v int) (*Snapshot, error) {
	if err := c.checkRetained(v); err != nil {
		return nil, err
	}
	return c.ring[v%len(c.ring)], nil
}

func (c *ScriptVersionCache) checkRetained(v int) error {
	switch {
	case v > c.latest.version || v < 0:
		return fmt.Errorf("%w: %d (latest %d)", ErrUnknownVersion, v, c.latest.version)
	case v < c.minimum:
		return fmt.Errorf("%w: %d (oldest %d)", ErrVersionEvicted, v, c.minimum)
	}
	return nil
}

// PendingChanges returns a copy of the changes applied since the last
// consolidation or reload.
func (c *ScriptVersionCache) PendingChanges() []TextChange {
	out := make([]TextChange, len(c.pending))
	copy(out, c.pending)
	return out
}

// PendingLength returns the inserted plus deleted byte count of the pending
// changes.
func (c *ScriptVersionCache) PendingLength() int {
	return c.pendingLength
}

// Consolidations returns how many times the cache has consolidated.
func (c *ScriptVersionCache) Consolidations() int {
	return c.consolidations
}

// Options returns the options the cache was created with.
func (c *ScriptVersionCache) Options() Options {
	return c.opts
}

// GetTextChangesBetweenVersions returns the net change range that turns
// version oldVersion into version newVersion. The ranges of the individual
// edits in between are composed into one covering span.
func (c *ScriptVersionCache) GetTextChangesBetweenVersions(oldVersion, newVersion int) (ChangeRange, error) {
	if oldVersion > newVersion {
		return ChangeRange{}, fmt.Errorf("%w: %d > %d", ErrVersionOrder, oldVersion, newVersion)
	}
	if newVersion > c.latest.version {
		return ChangeRange{}, fmt.Errorf("%w: %d (latest %d)", ErrUnknownVersion, newVersion, c.latest.version)
	}
	if oldVersion == newVersion {
		return Unchanged, nil
	}
	if oldVersion < c.reloadVersion {
		if newVersion >= c.reloadVersion {
			return ChangeRange{}, fmt.Errorf("%w: %d precedes reload at %d", ErrReloadDiscontinuity, oldVersion, c.reloadVersion)
		}
		return ChangeRange{}, fmt.Errorf("%w: %d precedes reload at %d", ErrVersionEvicted, oldVersion, c.reloadVersion)
	}
	if oldVersion+1 < c.minimum {
		return ChangeRange{}, fmt.Errorf("%w: %d (oldest %d)", ErrVersionEvicted, oldVersion, c.minimum)
	}

	ranges := make([]ChangeRange, 0, newVersion-oldVersion)
	for v := oldVersion + 1; v <= newVersion; v++ {
		ranges = append(ranges, c.ring[v%len(c.ring)].change.ChangeRange())
	}
	return ComposeAll(ranges), nil
}
