package lineindex

// Edit returns a new index with deleteLength bytes at pos replaced by
// newText. The receiver is left untouched; subtrees outside the edited
// range are shared between the two indexes.
//
// Only the lines the edit touches are rebuilt. The range is widened when
// needed so that "\r\n" is never split across lines and every line but the
// last keeps its terminator.
func (li *LineIndex) Edit(pos, deleteLength int, newText string) (*LineIndex, error) {
	if err := li.checkRange(pos, deleteLength); err != nil {
		return nil, err
	}
	if deleteLength == 0 && newText == "" {
		return li, nil
	}

	pos, deleteLength, newText = li.widen(pos, deleteLength, newText)

	ev := &editVisitor{}
	root := &editFrame{insertAt: -1}
	ev.stack = []*editFrame{root}
	li.root.walk(pos, deleteLength, ev)

	ev.leaves = leavesFromText(ev.prefix + newText + ev.suffix)
	out := ev.build(root)
	switch len(out) {
	case 0:
		return &LineIndex{root: emptyRoot()}, nil
	case 1:
		return &LineIndex{root: out[0].(*Node)}, nil
	default:
		return &LineIndex{root: buildTreeFromBottom(out)}, nil
	}
}

// widen grows the edited range where the rebuilt lines would otherwise break
// the line invariants: a "\r\n" pair split across two lines, or a line left
// without its terminator in the middle of the document.
func (li *LineIndex) widen(pos, d int, text string) (int, int, string) {
	// A "\r" just before pos could pair with a "\n" that follows it.
	if pos > 0 && li.byteAt(pos-1) == '\r' {
		pos--
		d++
		text = "\r" + text
	}

	// A range that ends on a line boundary leaves the next line untouched, so
	// the rebuilt text must end with a terminator that stays on its own.
	end := pos + d
	if d == 0 || end == li.Len() {
		return pos, d, text
	}
	next, _ := li.PositionAt(end)
	if next.Column != 0 {
		return pos, d, text
	}

	var tail byte
	switch {
	case text != "":
		tail = text[len(text)-1]
	default:
		start, _ := li.PositionAt(pos)
		if start.Column == 0 {
			// The rebuilt text is empty.
			return pos, d, text
		}
		tail = li.byteAt(pos - 1)
	}
	if tail == '\n' || (tail == '\r' && next.Leaf.text[0] != '\n') {
		return pos, d, text
	}
	return pos, d + next.Leaf.Chars(), text + next.Leaf.text
}

// editFrame collects the new children of one node on the edited path.
type editFrame struct {
	slots []editSlot

	// insertAt is the slot index before which the rebuilt lines go, or -1
	// when they belong to another frame.
	insertAt int
}

// editSlot is either a shared untouched child or a child being rebuilt.
type editSlot struct {
	shared Collection
	frame  *editFrame
}

// editVisitor records the shape of the edited path during a walk over the
// edited range.
type editVisitor struct {
	stack     []*editFrame
	seenFirst bool
	prefix    string
	suffix    string
	leaves    []Collection
}

func (e *editVisitor) top() *editFrame {
	return e.stack[len(e.stack)-1]
}

func (e *editVisitor) Pre(c Collection, relStart, relLen int, sec Section) Control {
	if !sec.Touched() {
		e.top().slots = append(e.top().slots, editSlot{shared: c})
		return SkipSubtree
	}
	if c.IsLeaf() {
		return Continue
	}
	if e.seenFirst && relStart == 0 && relLen == c.Chars() {
		// Wholly deleted.
		e.suffix = ""
		return SkipSubtree
	}
	f := &editFrame{insertAt: -1}
	e.top().slots = append(e.top().slots, editSlot{frame: f})
	e.stack = append(e.stack, f)
	return Continue
}

func (e *editVisitor) Leaf(l *Leaf, relStart, relLen int, _ Section) Control {
	if !e.seenFirst {
		e.seenFirst = true
		e.prefix = l.text[:relStart]
		e.top().insertAt = len(e.top().slots)
	}
	e.suffix = l.text[relStart+relLen:]
	return Continue
}

func (e *editVisitor) Post(*Node, Section) Control {
	e.stack = e.stack[:len(e.stack)-1]
	return Continue
}

// build turns a frame into its replacement nodes: none when everything under
// it was deleted, one in the common case, several when it overflowed.
func (e *editVisitor) build(f *editFrame) []Collection {
	var out []Collection
	for i, s := range f.slots {
		if i == f.insertAt {
			out = append(out, e.leaves...)
		}
		if s.frame != nil {
			out = append(out, e.build(s.frame)...)
		} else {
			out = append(out, s.shared)
		}
	}
	if f.insertAt == len(f.slots) {
		out = append(out, e.leaves...)
	}

	switch {
	case len(out) == 0:
		return nil
	case len(out) <= MaxChildren:
		return []Collection{newNode(out)}
	default:
		return group(out)
	}
}
