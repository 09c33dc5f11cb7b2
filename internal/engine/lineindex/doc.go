// Package lineindex provides the versioned line index that backs every open
// script: an immutable tree of line leaves addressable by byte offset or by
// line number.
//
// Each Leaf holds exactly one line of text including its terminator bytes
// ("\n", "\r\n" or a lone "\r"); only the last leaf of a document may lack a
// terminator. Internal Nodes cache the total byte and line counts of their
// children, so locating an offset or a line descends the tree in O(log n).
//
// A LineIndex is never modified after construction. Edit returns a new index
// that copies only the nodes along the edited path and shares every untouched
// subtree with the original:
//
//	li := lineindex.Load("abc\ndef\n")
//	next, _ := li.Edit(4, 3, "xyz")  // "abc\nxyz\n"
//	pos, _ := next.PositionAt(4)     // line 2, column 0
//	text, _ := li.GetText(0, li.Len()) // still "abc\ndef\n"
//
// Range operations (GetText, CountLines, LineStarts and Edit) are built on a
// single traversal, Walk, which classifies every child of a visited node by
// its relation to the requested range and reports it to a Visitor.
//
// Offsets, lengths and columns are byte counts. Line numbers start at 1.
package lineindex
