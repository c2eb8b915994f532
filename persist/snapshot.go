// Package persist stores the durable part of the workspace between runs:
// the project path, the active buffer and every open buffer in insertion
// order. The tree is never persisted; it is re-fetched after a restore.
package persist

// Key is the fixed storage identifier for the workspace snapshot.
const Key = "workspace-state"

// Snapshot is the persisted workspace. Buffers is an explicit ordered
// list so the registry's insertion order survives a round trip.
type Snapshot struct {
	ProjectPath    string        `cbor:"project,omitempty"`
	ActiveFilePath string        `cbor:"active,omitempty"`
	Buffers        []BufferEntry `cbor:"buffers"`
}

// BufferEntry is one persisted open buffer.
type BufferEntry struct {
	Path         string `cbor:"path"`
	Content      string `cbor:"content"`
	IsDirty      bool   `cbor:"dirty"`
	Language     string `cbor:"language"`
	CursorLine   int    `cbor:"line"`
	CursorColumn int    `cbor:"column"`
	Virtual      bool   `cbor:"virtual,omitempty"`
	SavedHash    []byte `cbor:"saved,omitempty"`
}
