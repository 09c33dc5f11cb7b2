package versioncache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/scriptnav/internal/engine/lineindex"
)

// Position is a 1-based line and 0-based byte column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Snapshot is an immutable view of one version of a document.
// It is safe for concurrent use.
type Snapshot struct {
	version int
	index   *lineindex.LineIndex
	cache   *ScriptVersionCache

	// change produced this version from the previous one; nil for a load
	// or reload.
	change *TextChange

	startsOnce sync.Once
	starts     []int
}

// Version returns the snapshot's version number.
func (s *Snapshot) Version() int {
	return s.version
}

// Index returns the underlying tree.
func (s *Snapshot) Index() *lineindex.LineIndex {
	return s.index
}

// Change returns the edit that produced this version, and false for a
// version created by a load or reload.
func (s *Snapshot) Change() (TextChange, bool) {
	if s.change == nil {
		return TextChange{}, false
	}
	return *s.change, true
}

// GetLength returns the byte length of the text.
func (s *Snapshot) GetLength() int {
	return s.index.Len()
}

// GetText returns the bytes in [start, end).
func (s *Snapshot) GetText(start, end int) (string, error) {
	if end < start {
		return "", fmt.Errorf("%w: end %d before start %d", ErrRangeInvalid, end, start)
	}
	return s.index.GetText(start, end-start)
}

// String returns the whole text.
func (s *Snapshot) String() string {
	return s.index.String()
}

// GetLineStartPositions returns the byte offset of the start of every line.
// The table is built once per snapshot and must not be modified.
func (s *Snapshot) GetLineStartPositions() []int {
	s.startsOnce.Do(func() {
		s.starts = s.index.LineStarts()
	})
	return s.starts
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() int {
	return s.index.LineCount()
}

// LineText returns the text of a 1-based line, terminator included.
func (s *Snapshot) LineText(line int) (string, error) {
	info, err := s.index.LineInfo(line)
	if err != nil {
		return "", err
	}
	return info.Leaf.Text(), nil
}

// Lines returns the text of every line, terminators included.
func (s *Snapshot) Lines() []string {
	leaves := s.index.Leaves()
	lines := make([]string, len(leaves))
	for i, l := range leaves {
		lines[i] = l.Text()
	}
	return lines
}

// PositionOf converts a byte offset to a line and column.
func (s *Snapshot) PositionOf(offset int) (Position, error) {
	p, err := s.index.PositionAt(offset)
	if err != nil {
		return Position{}, err
	}
	return Position{Line: p.Line, Column: p.Column}, nil
}

// OffsetOf converts a line and column to a byte offset. The column may be
// at most the byte length of the line including its terminator.
func (s *Snapshot) OffsetOf(line, column int) (int, error) {
	info, err := s.index.LineInfo(line)
	if err != nil {
		return 0, err
	}
	if column < 0 || column > info.Leaf.Chars() {
		return 0, fmt.Errorf("%w: column %d on line %d of length %d", ErrOffsetOutOfRange, column, line, info.Leaf.Chars())
	}
	return info.Offset + column, nil
}

// CountLines returns the number of lines the range [start, start+length)
// touches.
func (s *Snapshot) CountLines(start, length int) (int, error) {
	return s.index.CountLines(start, length)
}

// LeafAt returns the leaf holding the line that contains offset. Callers
// may attach data to it with SetAnnotation.
func (s *Snapshot) LeafAt(offset int) (*lineindex.Leaf, error) {
	p, err := s.index.PositionAt(offset)
	if err != nil {
		return nil, err
	}
	return p.Leaf, nil
}

// GetChangeRange returns the span that differs between prior and s.
//
// It fails with ErrReloadDiscontinuity when prior belongs to another cache
// or precedes a reload, and with ErrVersionOrder when prior is newer than s.
// When the edits in between are no longer retained the whole document is
// reported as changed.
func (s *Snapshot) GetChangeRange(prior *Snapshot) (ChangeRange, error) {
	if prior == nil || prior.cache != s.cache {
		return ChangeRange{}, fmt.Errorf("%w: snapshot from another document history", ErrReloadDiscontinuity)
	}
	r, err := s.cache.GetTextChangesBetweenVersions(prior.version, s.version)
	if errors.Is(err, ErrVersionEvicted) {
		return ChangeRange{Start: 0, OldLength: prior.GetLength(), NewLength: s.GetLength()}, nil
	}
	return r, err
}
