package lineindex

// Section describes how a child relates to the range being walked.
type Section uint8

const (
	// SectionPreStart marks a child that lies wholly before the range.
	SectionPreStart Section = iota

	// SectionStart marks the child in which the range starts and which the
	// range runs past.
	SectionStart

	// SectionEntire marks a child that contains the whole range.
	SectionEntire

	// SectionMid marks a child wholly covered by the range.
	SectionMid

	// SectionEnd marks the child in which a multi-child range ends.
	SectionEnd

	// SectionPostEnd marks a child that lies wholly after the range.
	SectionPostEnd
)

// String returns the section name.
func (s Section) String() string {
	switch s {
	case SectionPreStart:
		return "pre-start"
	case SectionStart:
		return "start"
	case SectionEntire:
		return "entire"
	case SectionMid:
		return "mid"
	case SectionEnd:
		return "end"
	case SectionPostEnd:
		return "post-end"
	default:
		return "unknown"
	}
}

// Touched reports whether a child in this section intersects the range.
func (s Section) Touched() bool {
	return s != SectionPreStart && s != SectionPostEnd
}

// Control tells Walk how to proceed after a visitor callback.
type Control uint8

const (
	// Continue descends into the current child (if touched) and goes on.
	Continue Control = iota

	// SkipSubtree does not descend into the current child.
	SkipSubtree

	// Stop ends the walk immediately.
	Stop
)

// Visitor receives the callbacks of a walk.
//
// Pre is called for every child of every visited node, in order, with the
// child's section. Children outside the range are never descended into.
// For a touched child, Leaf is called if it is a leaf; otherwise the walk
// descends into it and calls Post when its subtree is done.
//
// relStart and relLen locate the intersection of the range with the child,
// relative to the child's first byte. They are zero for untouched children.
type Visitor interface {
	Pre(c Collection, relStart, relLen int, sec Section) Control
	Leaf(l *Leaf, relStart, relLen int, sec Section) Control
	Post(n *Node, sec Section) Control
}

// walk visits the children of n against the range [start, start+length).
// The range must lie within [0, n.Chars()]. It returns false when the
// visitor stopped the walk.
func (n *Node) walk(start, length int, v Visitor) bool {
	last := len(n.children) - 1

	// The child owning start; a start at the very end belongs to the last child.
	first, off := last, 0
	for i, c := range n.children {
		if start < off+c.Chars() {
			first = i
			break
		}
		off += c.Chars()
	}
	if first == last {
		off = n.totalChars - n.children[last].Chars()
	}

	end := first
	if length > 0 {
		end = last
		for i := first; i <= last; i++ {
			cl := n.children[i].Chars()
			if start+length <= off+cl {
				end = i
				break
			}
			off += cl
		}
	}

	off = 0
	for i, c := range n.children {
		cl := c.Chars()
		var sec Section
		relStart, relLen := 0, 0
		switch {
		case i < first:
			sec = SectionPreStart
		case i > end:
			sec = SectionPostEnd
		case first == end:
			sec = SectionEntire
			relStart, relLen = start-off, length
		case i == first:
			sec = SectionStart
			relStart = start - off
			relLen = cl - relStart
		case i == end:
			sec = SectionEnd
			relLen = start + length - off
		default:
			sec = SectionMid
			relLen = cl
		}
		if !visit(c, relStart, relLen, sec, v) {
			return false
		}
		off += cl
	}
	return true
}

func visit(c Collection, relStart, relLen int, sec Section, v Visitor) bool {
	ctl := v.Pre(c, relStart, relLen, sec)
	if ctl == Stop {
		return false
	}
	if ctl == SkipSubtree || !sec.Touched() {
		return true
	}

	switch c := c.(type) {
	case *Leaf:
		return v.Leaf(c, relStart, relLen, sec) != Stop
	case *Node:
		if !c.walk(relStart, relLen, v) {
			return false
		}
		return v.Post(c, sec) != Stop
	}
	return true
}
