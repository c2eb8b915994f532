// Package buffer holds open editable documents keyed by path, in the order
// they were opened. Insertion order decides which buffer becomes active
// when the active one is closed, and it survives persistence.
package buffer

import (
	"github.com/zeebo/blake3"
)

// Cursor is a zero-based caret position.
type Cursor struct {
	Line   int `json:"line" cbor:"line"`
	Column int `json:"column" cbor:"column"`
}

// Hash fingerprints buffer content.
type Hash [32]byte

// Fingerprint returns the BLAKE3 hash of content.
func Fingerprint(content string) Hash {
	return Hash(blake3.Sum256([]byte(content)))
}

// OpenFile is one open document. Language is fixed when the buffer is
// created. SavedHash fingerprints the content last known to match the
// backing file, so edits can tell whether they restore it.
type OpenFile struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	IsDirty   bool   `json:"isDirty"`
	Language  string `json:"language"`
	Cursor    Cursor `json:"cursor"`
	Virtual   bool   `json:"virtual,omitempty"`
	SavedHash Hash   `json:"-"`
}

// New builds a clean buffer whose saved fingerprint matches content.
func New(path, content, language string) OpenFile {
	return OpenFile{
		Path:      path,
		Content:   content,
		Language:  language,
		SavedHash: Fingerprint(content),
	}
}

// Registry is an insertion-ordered map of path to OpenFile. It is not safe
// for concurrent use; the workspace store guards it.
type Registry struct {
	order []string
	files map[string]*OpenFile
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{files: make(map[string]*OpenFile)}
}

// Len returns the number of open buffers.
func (r *Registry) Len() int {
	return len(r.order)
}

// Has reports whether path is open.
func (r *Registry) Has(path string) bool {
	_, ok := r.files[path]
	return ok
}

// Get returns a copy of the buffer at path.
func (r *Registry) Get(path string) (OpenFile, bool) {
	f, ok := r.files[path]
	if !ok {
		return OpenFile{}, false
	}
	return *f, true
}

// Add inserts a buffer at the end of the order. It returns false and
// leaves the registry unchanged when the path is already open.
func (r *Registry) Add(f OpenFile) bool {
	if r.Has(f.Path) {
		return false
	}
	stored := f
	r.files[f.Path] = &stored
	r.order = append(r.order, f.Path)
	return true
}

// Update applies fn to the buffer at path in place. It returns false when
// the path is not open.
func (r *Registry) Update(path string, fn func(f *OpenFile)) bool {
	f, ok := r.files[path]
	if !ok {
		return false
	}
	fn(f)
	f.Path = path
	return true
}

// Remove deletes the buffer at path.
func (r *Registry) Remove(path string) bool {
	if !r.Has(path) {
		return false
	}
	delete(r.files, path)
	for i, p := range r.order {
		if p == path {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Rekey moves the buffer at oldPath to newPath, keeping its position.
// It refuses when oldPath is not open or newPath already is.
func (r *Registry) Rekey(oldPath, newPath string) bool {
	f, ok := r.files[oldPath]
	if !ok || r.Has(newPath) {
		return false
	}
	delete(r.files, oldPath)
	f.Path = newPath
	r.files[newPath] = f
	for i, p := range r.order {
		if p == oldPath {
			r.order[i] = newPath
			break
		}
	}
	return true
}

// RemoveFunc deletes every buffer for which drop returns true and
// returns the removed paths in order.
func (r *Registry) RemoveFunc(drop func(f OpenFile) bool) []string {
	var removed []string
	kept := r.order[:0:0]
	for _, p := range r.order {
		f := r.files[p]
		if drop(*f) {
			delete(r.files, p)
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	r.order = kept
	return removed
}

// First returns the earliest-opened path, or "" when empty.
func (r *Registry) First() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// Paths returns the open paths in insertion order.
func (r *Registry) Paths() []string {
	return append([]string(nil), r.order...)
}

// Entries returns copies of every buffer in insertion order.
func (r *Registry) Entries() []OpenFile {
	out := make([]OpenFile, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, *r.files[p])
	}
	return out
}

// DirtyCount returns how many buffers hold unsaved edits.
func (r *Registry) DirtyCount() int {
	n := 0
	for _, f := range r.files {
		if f.IsDirty {
			n++
		}
	}
	return n
}

// Clear drops every buffer.
func (r *Registry) Clear() {
	r.order = nil
	r.files = make(map[string]*OpenFile)
}
