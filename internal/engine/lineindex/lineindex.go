package lineindex

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by LineIndex operations.
var (
	// ErrOffsetOutOfRange indicates an offset outside [0, Len()].
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrLineOutOfRange indicates a line number outside [1, LineCount()].
	ErrLineOutOfRange = errors.New("line out of range")

	// ErrRangeInvalid indicates a negative length or a range past the end.
	ErrRangeInvalid = errors.New("invalid range")
)

// Position is the line/column location of a byte offset.
type Position struct {
	// Line is the 1-based line number.
	Line int

	// Column is the 0-based byte column within the line.
	Column int

	// Leaf is the leaf holding the line.
	Leaf *Leaf
}

// LineInfo describes where a line starts.
type LineInfo struct {
	// Offset is the byte offset of the first byte of the line.
	Offset int

	// Leaf is the leaf holding the line.
	Leaf *Leaf
}

// LineIndex is an immutable tree of lines.
// The zero value is not usable; create indexes with Load or Edit.
type LineIndex struct {
	root *Node
}

// Load builds an index over text. A full-range GetText returns text
// byte for byte.
func Load(text string) *LineIndex {
	return &LineIndex{root: buildTreeFromBottom(leavesFromText(text))}
}

// Len returns the byte length of the document.
func (li *LineIndex) Len() int {
	return li.root.totalChars
}

// LineCount returns the number of lines. An empty document has one line.
func (li *LineIndex) LineCount() int {
	return li.root.totalLines
}

// Root returns the root node.
func (li *LineIndex) Root() *Node {
	return li.root
}

// Depth returns the number of node levels above the leaves.
func (li *LineIndex) Depth() int {
	return li.root.height() + 1
}

// Walk traverses the tree against the range [start, start+length).
func (li *LineIndex) Walk(start, length int, v Visitor) error {
	if err := li.checkRange(start, length); err != nil {
		return err
	}
	li.root.walk(start, length, v)
	return nil
}

func (li *LineIndex) checkRange(start, length int) error {
	if start < 0 || length < 0 || start+length > li.Len() {
		return fmt.Errorf("%w: [%d, %d) in document of length %d", ErrRangeInvalid, start, start+length, li.Len())
	}
	return nil
}

// String returns the whole document.
func (li *LineIndex) String() string {
	s, _ := li.GetText(0, li.Len())
	return s
}

// GetText returns the bytes in [start, start+length).
func (li *LineIndex) GetText(start, length int) (string, error) {
	if err := li.checkRange(start, length); err != nil {
		return "", err
	}
	tc := &textCollector{}
	tc.sb.Grow(length)
	li.root.walk(start, length, tc)
	return tc.sb.String(), nil
}

// CountLines returns the number of lines that the range [start, start+length)
// touches. An empty range touches the one line that owns start.
func (li *LineIndex) CountLines(start, length int) (int, error) {
	if err := li.checkRange(start, length); err != nil {
		return 0, err
	}
	lc := &lineCounter{}
	li.root.walk(start, length, lc)
	return lc.lines, nil
}

// LineStarts returns the byte offset at which every line starts.
func (li *LineIndex) LineStarts() []int {
	ls := &lineStartCollector{starts: make([]int, 0, li.LineCount())}
	li.root.walk(0, li.Len(), ls)
	return ls.starts
}

// Leaves returns the leaves in document order.
func (li *LineIndex) Leaves() []*Leaf {
	lv := &leafCollector{leaves: make([]*Leaf, 0, li.LineCount())}
	li.root.walk(0, li.Len(), lv)
	return lv.leaves
}

// PositionAt converts a byte offset to a line and column. The offset equal
// to Len() maps to the end of the last line.
func (li *LineIndex) PositionAt(offset int) (Position, error) {
	if offset < 0 || offset > li.Len() {
		return Position{}, fmt.Errorf("%w: %d not in [0, %d]", ErrOffsetOutOfRange, offset, li.Len())
	}

	line := 1
	var cur Collection = li.root
	for {
		n, ok := cur.(*Node)
		if !ok {
			break
		}
		last := len(n.children) - 1
		for i, c := range n.children {
			if offset < c.Chars() || i == last {
				cur = c
				break
			}
			offset -= c.Chars()
			line += c.Lines()
		}
	}
	return Position{Line: line, Column: offset, Leaf: cur.(*Leaf)}, nil
}

// LineInfo returns the start offset and leaf of a 1-based line.
func (li *LineIndex) LineInfo(line int) (LineInfo, error) {
	if line < 1 || line > li.LineCount() {
		return LineInfo{}, fmt.Errorf("%w: %d not in [1, %d]", ErrLineOutOfRange, line, li.LineCount())
	}

	rem := line - 1
	offset := 0
	var cur Collection = li.root
	for {
		n, ok := cur.(*Node)
		if !ok {
			break
		}
		last := len(n.children) - 1
		for i, c := range n.children {
			if rem < c.Lines() || i == last {
				cur = c
				break
			}
			rem -= c.Lines()
			offset += c.Chars()
		}
	}
	return LineInfo{Offset: offset, Leaf: cur.(*Leaf)}, nil
}

// Rebuild returns an index over the same leaves, regrouped into a balanced
// tree. Leaf identity, and with it every annotation, is preserved.
func (li *LineIndex) Rebuild() *LineIndex {
	leaves := li.Leaves()
	layer := make([]Collection, len(leaves))
	for i, l := range leaves {
		layer[i] = l
	}
	return &LineIndex{root: buildTreeFromBottom(layer)}
}

// byteAt returns the byte at offset, which must be below Len().
func (li *LineIndex) byteAt(offset int) byte {
	pos, _ := li.PositionAt(offset)
	return pos.Leaf.text[pos.Column]
}

// textCollector concatenates the touched part of every leaf.
type textCollector struct {
	sb strings.Builder
}

func (t *textCollector) Pre(Collection, int, int, Section) Control { return Continue }
func (t *textCollector) Post(*Node, Section) Control               { return Continue }

func (t *textCollector) Leaf(l *Leaf, relStart, relLen int, _ Section) Control {
	t.sb.WriteString(l.text[relStart : relStart+relLen])
	return Continue
}

// lineCounter counts touched leaves.
type lineCounter struct {
	lines int
}

func (c *lineCounter) Pre(Collection, int, int, Section) Control { return Continue }
func (c *lineCounter) Post(*Node, Section) Control               { return Continue }

func (c *lineCounter) Leaf(*Leaf, int, int, Section) Control {
	c.lines++
	return Continue
}

// lineStartCollector records the absolute start of every touched leaf of a
// walk that begins at offset 0.
type lineStartCollector struct {
	starts []int
	offset int
}

func (c *lineStartCollector) Pre(Collection, int, int, Section) Control { return Continue }
func (c *lineStartCollector) Post(*Node, Section) Control               { return Continue }

func (c *lineStartCollector) Leaf(l *Leaf, _, _ int, _ Section) Control {
	c.starts = append(c.starts, c.offset)
	c.offset += l.Chars()
	return Continue
}

// leafCollector records every touched leaf.
type leafCollector struct {
	leaves []*Leaf
}

func (c *leafCollector) Pre(Collection, int, int, Section) Control { return Continue }
func (c *leafCollector) Post(*Node, Section) Control               { return Continue }

func (c *leafCollector) Leaf(l *Leaf, _, _ int, _ Section) Control {
	c.leaves = append(c.leaves, l)
	return Continue
}
