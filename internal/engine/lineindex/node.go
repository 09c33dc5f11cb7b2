package lineindex

// MaxChildren is the maximum number of children of an internal node.
// Nodes that overflow during an edit are split; nothing is ever merged.
const MaxChildren = 8

// Collection is an element of the tree: either a *Node or a *Leaf.
type Collection interface {
	// Chars returns the byte length of the text under this element.
	Chars() int

	// Lines returns the number of lines (leaves) under this element.
	Lines() int

	// IsLeaf reports whether the element is a *Leaf.
	IsLeaf() bool
}

// Leaf holds the text of a single line, terminator included.
// The text is immutable. The annotation slot lets callers attach data to a
// line; it lives exactly as long as the leaf and is never interpreted here.
type Leaf struct {
	text       string
	annotation any
}

func newLeaf(text string) *Leaf {
	return &Leaf{text: text}
}

// Text returns the line text including its terminator.
func (l *Leaf) Text() string {
	return l.text
}

// Chars returns the byte length of the line.
func (l *Leaf) Chars() int {
	return len(l.text)
}

// Lines always returns 1.
func (l *Leaf) Lines() int {
	return 1
}

// IsLeaf returns true.
func (l *Leaf) IsLeaf() bool {
	return true
}

// Annotation returns the value attached with SetAnnotation, or nil.
func (l *Leaf) Annotation() any {
	return l.annotation
}

// SetAnnotation attaches an opaque value to the leaf.
// Leaves are shared between versions, so the value is visible from every
// snapshot that still contains this leaf.
func (l *Leaf) SetAnnotation(v any) {
	l.annotation = v
}

// Node is an internal tree node. Its children are either all leaves or all
// nodes of the same height.
type Node struct {
	children   []Collection
	totalChars int
	totalLines int
}

func newNode(children []Collection) *Node {
	n := &Node{children: children}
	n.updateCounts()
	return n
}

// updateCounts recomputes the aggregates from the immediate children.
func (n *Node) updateCounts() {
	n.totalChars = 0
	n.totalLines = 0
	for _, c := range n.children {
		n.totalChars += c.Chars()
		n.totalLines += c.Lines()
	}
}

// Chars returns the byte length of the subtree.
func (n *Node) Chars() int {
	return n.totalChars
}

// Lines returns the number of leaves in the subtree.
func (n *Node) Lines() int {
	return n.totalLines
}

// IsLeaf returns false.
func (n *Node) IsLeaf() bool {
	return false
}

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []Collection {
	return n.children
}

// height returns the number of node levels below n, 0 when n holds leaves.
func (n *Node) height() int {
	h := 0
	for cur := n; ; h++ {
		next, ok := cur.children[0].(*Node)
		if !ok {
			return h
		}
		cur = next
	}
}
