package filetree

// Find resolves a path in the forest (depth-first).
func Find(nodes []*Node, path string) *Node {
	for _, n := range nodes {
		if n.Path == path {
			return n
		}
		if found := Find(n.Children, path); found != nil {
			return found
		}
	}
	return nil
}

// ReplaceChildren locates the directory at path and replaces its children
// wholesale, marking it loaded. It returns false when no directory with
// that path is present, in which case nothing is changed.
func ReplaceChildren(nodes []*Node, path string, children []*Node) bool {
	target := Find(nodes, path)
	if target == nil || !target.IsDir() {
		return false
	}
	if children == nil {
		children = []*Node{}
	}
	target.Children = children
	target.IsLoaded = true
	return true
}

// Removal records where a node sat before Remove took it out, so the
// removal can be undone with Reinsert.
type Removal struct {
	Node       *Node
	ParentPath string // "" when the node was a top-level entry
	Index      int
}

// Remove takes the node at path out of the forest. The returned slice
// replaces nodes (top-level removals shrink it); ok is false when the
// path is not present.
func Remove(nodes []*Node, path string) (roots []*Node, removal Removal, ok bool) {
	for i, n := range nodes {
		if n.Path == path {
			removal = Removal{Node: n, Index: i}
			return without(nodes, i), removal, true
		}
	}
	parent := findParentOf(nodes, path)
	if parent == nil {
		return nodes, Removal{}, false
	}
	for i, child := range parent.Children {
		if child.Path == path {
			parent.Children = without(parent.Children, i)
			return nodes, Removal{Node: child, ParentPath: parent.Path, Index: i}, true
		}
	}
	return nodes, Removal{}, false
}

// Reinsert puts a removed node back at its recorded position. The index
// is clamped when siblings changed in the meantime. It refuses (ok false)
// when the original parent is gone or the path is already present again.
func Reinsert(nodes []*Node, removal Removal) (roots []*Node, ok bool) {
	if removal.Node == nil || Find(nodes, removal.Node.Path) != nil {
		return nodes, false
	}
	if removal.ParentPath == "" {
		return insertAt(nodes, removal.Index, removal.Node), true
	}
	parent := Find(nodes, removal.ParentPath)
	if parent == nil || !parent.IsDir() || parent.Children == nil {
		return nodes, false
	}
	parent.Children = insertAt(parent.Children, removal.Index, removal.Node)
	return nodes, true
}

func findParentOf(nodes []*Node, path string) *Node {
	for _, n := range nodes {
		for _, child := range n.Children {
			if child.Path == path {
				return n
			}
		}
		if found := findParentOf(n.Children, path); found != nil {
			return found
		}
	}
	return nil
}

func without(nodes []*Node, i int) []*Node {
	out := make([]*Node, 0, len(nodes)-1)
	out = append(out, nodes[:i]...)
	return append(out, nodes[i+1:]...)
}

func insertAt(nodes []*Node, i int, n *Node) []*Node {
	if i < 0 {
		i = 0
	}
	if i > len(nodes) {
		i = len(nodes)
	}
	out := make([]*Node, 0, len(nodes)+1)
	out = append(out, nodes[:i]...)
	out = append(out, n)
	return append(out, nodes[i:]...)
}
