// Package filetree holds the partially-loaded project tree model and the
// path-addressed primitives used to patch it.
//
// All lookups are depth-first by exact path equality. Every structural
// edit in the workspace goes through ReplaceChildren, Remove and Reinsert,
// so a path index can be introduced here later without touching callers.
package filetree

import (
	"path/filepath"
	"sort"
	"time"
)

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Node is a file or directory in the project tree.
//
// Children is nil for a directory that has not been loaded yet; a loaded
// empty directory has a non-nil, zero-length slice. IsLoaded is only
// meaningful for directories.
type Node struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Kind         Kind      `json:"type"`
	Size         *int64    `json:"size,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Children     []*Node   `json:"children,omitempty"`
	IsLoaded     bool      `json:"isLoaded"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Kind == KindDirectory
}

// Clone returns a deep copy of the node and its loaded subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Size != nil {
		size := *n.Size
		c.Size = &size
	}
	if n.Children != nil {
		c.Children = CloneAll(n.Children)
	}
	return &c
}

// CloneAll deep-copies a node sequence, preserving nil.
func CloneAll(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// NewDirectory builds an unloaded directory node.
func NewDirectory(path string, modTime time.Time) *Node {
	return &Node{
		Name:         filepath.Base(path),
		Path:         path,
		Kind:         KindDirectory,
		LastModified: modTime,
	}
}

// NewFile builds a file node.
func NewFile(path string, size int64, modTime time.Time) *Node {
	return &Node{
		Name:         filepath.Base(path),
		Path:         path,
		Kind:         KindFile,
		Size:         &size,
		LastModified: modTime,
	}
}

// ParentPath returns the directory containing path.
func ParentPath(path string) string {
	return filepath.Dir(path)
}

// IsWithin reports whether path equals root or lies below it.
func IsWithin(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !hasDotDotPrefix(rel))
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}

// Sort orders nodes directories first, then by case-sensitive name.
func Sort(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsDir() != nodes[j].IsDir() {
			return nodes[i].IsDir()
		}
		return nodes[i].Name < nodes[j].Name
	})
}

// Count returns the number of loaded nodes in the forest.
func Count(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total++
		total += Count(n.Children)
	}
	return total
}
