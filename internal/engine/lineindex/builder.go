package lineindex

// splitLines cuts text after every line terminator. "\r\n", "\n" and a lone
// "\r" are all honored and kept with the line they end. No empty trailing
// line is produced, so splitLines("") is empty.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i+1])
			start = i + 1
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// leavesFromText returns one leaf per line of text.
func leavesFromText(text string) []Collection {
	lines := splitLines(text)
	leaves := make([]Collection, len(lines))
	for i, line := range lines {
		leaves[i] = newLeaf(line)
	}
	return leaves
}

// group packs a layer of siblings into parent nodes of at most MaxChildren
// children each.
func group(layer []Collection) []Collection {
	parents := make([]Collection, 0, (len(layer)+MaxChildren-1)/MaxChildren)
	for i := 0; i < len(layer); i += MaxChildren {
		end := min(i+MaxChildren, len(layer))
		children := make([]Collection, end-i)
		copy(children, layer[i:end])
		parents = append(parents, newNode(children))
	}
	return parents
}

// buildTreeFromBottom builds a balanced tree over a layer of leaves (or of
// equal-height nodes) by grouping it repeatedly until a single root remains.
// An empty layer yields the root of an empty document.
func buildTreeFromBottom(layer []Collection) *Node {
	if len(layer) == 0 {
		return emptyRoot()
	}
	if len(layer) == 1 {
		if n, ok := layer[0].(*Node); ok {
			return n
		}
	}
	for {
		layer = group(layer)
		if len(layer) == 1 {
			return layer[0].(*Node)
		}
	}
}

// emptyRoot is the tree of an empty document: one node holding one empty leaf.
func emptyRoot() *Node {
	return newNode([]Collection{newLeaf("")})
}
