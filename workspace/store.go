// Package workspace is the synchronization engine: the project tree, the
// open buffer registry and their persistence, kept consistent with a
// remote collaborator that performs the real filesystem work.
//
// Store is the single owner of this state. Every transition runs under
// its mutex; collaborator calls are made with the lock released, so other
// operations may run while a call is in flight. Results that arrive for a
// target which has since disappeared are dropped.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lexandro/workspace-mcp/buffer"
	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/language"
	"github.com/lexandro/workspace-mcp/metrics"
	"github.com/lexandro/workspace-mcp/persist"
	"github.com/lexandro/workspace-mcp/remote"
)

var (
	ErrNoProject   = errors.New("no project selected")
	ErrNotOpen     = errors.New("file is not open")
	ErrVirtual     = errors.New("virtual buffer has no backing file")
	ErrPathOpen    = errors.New("path is open as a file buffer")
	ErrNoSearch    = errors.New("search is not available")
	ErrInvalidKind = errors.New("invalid entry kind")
)

// Options configures a Store.
type Options struct {
	Filesystem remote.Filesystem
	Searcher   remote.Searcher
	// Snapshots receives a snapshot after every transition. Nil disables
	// persistence.
	Snapshots *persist.Snapshots
	Logger    *slog.Logger
	// Detect derives a buffer's language from its path. Defaults to
	// language.Detect.
	Detect           func(path string) string
	MaxSearchResults int
}

// Store owns the workspace state.
type Store struct {
	fs         remote.Filesystem
	searcher   remote.Searcher
	snapshots  *persist.Snapshots
	logger     *slog.Logger
	detect     func(string) string
	maxResults int

	mu      sync.Mutex
	roots   []*filetree.Node
	buffers *buffer.Registry
	active  string
	project string
	loading int
	errMsg  string
}

// State is a point-in-time copy of the workspace.
type State struct {
	Roots              []*filetree.Node  `json:"roots"`
	ActiveFilePath     string            `json:"activeFilePath,omitempty"`
	CurrentProjectPath string            `json:"currentProjectPath,omitempty"`
	Buffers            []buffer.OpenFile `json:"openFiles"`
	Loading            bool              `json:"loading"`
	Error              string            `json:"error,omitempty"`
}

// New creates an empty store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	detect := opts.Detect
	if detect == nil {
		detect = language.Detect
	}
	maxResults := opts.MaxSearchResults
	if maxResults <= 0 {
		maxResults = 50
	}
	return &Store{
		fs:         opts.Filesystem,
		searcher:   opts.Searcher,
		snapshots:  opts.Snapshots,
		logger:     logger,
		detect:     detect,
		maxResults: maxResults,
		buffers:    buffer.NewRegistry(),
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Roots:              filetree.CloneAll(s.roots),
		ActiveFilePath:     s.active,
		CurrentProjectPath: s.project,
		Buffers:            s.buffers.Entries(),
		Loading:            s.loading > 0,
		Error:              s.errMsg,
	}
}

// ProjectPath returns the current project root, or "".
func (s *Store) ProjectPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// ActiveFilePath returns the active buffer path, or "".
func (s *Store) ActiveFilePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Restore rehydrates the persisted snapshot, if any. The tree is not
// persisted; callers reload it with LoadRoot when a project comes back.
func (s *Store) Restore() error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load()
	if err != nil {
		return fmt.Errorf("restoring workspace: %w", err)
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = snap.ProjectPath
	s.roots = nil
	s.buffers.Clear()
	for _, e := range snap.Buffers {
		f := buffer.OpenFile{
			Path:     e.Path,
			Content:  e.Content,
			IsDirty:  e.IsDirty,
			Language: e.Language,
			Cursor:   buffer.Cursor{Line: e.CursorLine, Column: e.CursorColumn},
			Virtual:  e.Virtual,
		}
		if len(e.SavedHash) == len(f.SavedHash) {
			copy(f.SavedHash[:], e.SavedHash)
		} else if !e.IsDirty {
			f.SavedHash = buffer.Fingerprint(e.Content)
		}
		s.buffers.Add(f)
	}
	s.active = snap.ActiveFilePath
	if s.active != "" && !s.buffers.Has(s.active) {
		s.active = s.buffers.First()
	}
	s.logger.Info("workspace restored", "project", s.project, "buffers", s.buffers.Len(), "active", s.active)
	s.observeLocked()
	return nil
}

// Reset clears all state and removes the persisted snapshot.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = nil
	s.buffers.Clear()
	s.active = ""
	s.project = ""
	s.errMsg = ""
	s.observeLocked()
	if s.snapshots == nil {
		return nil
	}
	if err := s.snapshots.Clear(); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}

func (s *Store) snapshotLocked() *persist.Snapshot {
	snap := &persist.Snapshot{
		ProjectPath:    s.project,
		ActiveFilePath: s.active,
		Buffers:        make([]persist.BufferEntry, 0, s.buffers.Len()),
	}
	for _, f := range s.buffers.Entries() {
		snap.Buffers = append(snap.Buffers, persist.BufferEntry{
			Path:         f.Path,
			Content:      f.Content,
			IsDirty:      f.IsDirty,
			Language:     f.Language,
			CursorLine:   f.Cursor.Line,
			CursorColumn: f.Cursor.Column,
			Virtual:      f.Virtual,
			SavedHash:    append([]byte(nil), f.SavedHash[:]...),
		})
	}
	return snap
}

// commitLocked persists the durable part of the state. A failed write is
// logged and counted but never fails the transition that caused it.
func (s *Store) commitLocked() {
	s.observeLocked()
	if s.snapshots == nil {
		return
	}
	size, err := s.snapshots.Save(s.snapshotLocked())
	metrics.RecordSnapshotWrite(size, err)
	if err != nil {
		s.logger.Error("snapshot write failed", "error", err)
	}
}

func (s *Store) observeLocked() {
	metrics.SetBuffers(s.buffers.Len(), s.buffers.DirtyCount())
	metrics.SetTreeNodesLoaded(filetree.Count(s.roots))
}

// fail records a failed operation in the error field and returns it
// wrapped with the action that failed.
func (s *Store) fail(action string, err error) error {
	wrapped := fmt.Errorf("%s: %w", action, err)
	s.mu.Lock()
	s.errMsg = wrapped.Error()
	s.mu.Unlock()
	s.logger.Warn("workspace operation failed", "action", action, "error", err)
	return wrapped
}

// failFor is fail for a call issued while project was current. The error
// is still returned but not recorded once another project was selected.
func (s *Store) failFor(project, action string, err error) error {
	s.mu.Lock()
	current := s.project
	s.mu.Unlock()
	if current == project {
		return s.fail(action, err)
	}
	s.logger.Debug("discarding stale failure", "action", action, "project", project, "current", current, "error", err)
	return fmt.Errorf("%s: %w", action, err)
}
