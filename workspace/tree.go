package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lexandro/workspace-mcp/buffer"
	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/metrics"
	"github.com/lexandro/workspace-mcp/remote"
)

// SetProject switches the workspace to a new project root. Buffers outside
// the new root are evicted without prompting, the tree is cleared and the
// root is reloaded. Selecting the current project again does nothing.
//
// A reload failure is recorded in the error field and logged but not
// returned: the switch itself has happened.
func (s *Store) SetProject(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("set project: %w", ErrNoProject)
	}
	path = filepath.Clean(path)

	s.mu.Lock()
	if s.project == path {
		s.mu.Unlock()
		return nil
	}
	previous := s.project
	s.project = path
	s.roots = nil
	s.errMsg = ""
	evicted := s.buffers.RemoveFunc(func(f buffer.OpenFile) bool {
		return !filetree.IsWithin(f.Path, path)
	})
	if s.active == "" || !s.buffers.Has(s.active) {
		s.active = s.buffers.First()
	}
	s.commitLocked()
	s.mu.Unlock()

	s.logger.Info("project selected", "project", path, "previous", previous, "evicted", len(evicted))

	if err := s.LoadRoot(ctx); err != nil {
		s.logger.Warn("project load failed", "project", path, "error", err)
	}
	return nil
}

// LoadRoot fetches the project root and replaces the whole tree with its
// children. On failure the existing tree is kept. A result that arrives
// after the project changed is discarded.
func (s *Store) LoadRoot(ctx context.Context) error {
	s.mu.Lock()
	project := s.project
	if project == "" {
		s.mu.Unlock()
		return ErrNoProject
	}
	s.loading++
	s.errMsg = ""
	s.mu.Unlock()

	root, err := remote.CallResult(ctx, "fetch_tree", project, func(ctx context.Context) (*filetree.Node, error) {
		return s.fs.FetchTree(ctx, project)
	})

	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
	if err != nil {
		return s.failFor(project, "load project", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project != project {
		s.logger.Debug("discarding stale project load", "project", project, "current", s.project)
		return nil
	}
	s.roots = loadedChildren(root)
	s.observeLocked()
	s.logger.Info("project loaded", "project", project, "entries", len(s.roots))
	return nil
}

// RefreshTree reloads the current project from scratch. Without a project
// it does nothing.
func (s *Store) RefreshTree(ctx context.Context) error {
	if s.ProjectPath() == "" {
		return nil
	}
	return s.LoadRoot(ctx)
}

// ExpandDirectory loads the children of one directory and patches them
// into the tree. If the directory is no longer in the tree when the
// response arrives the result is dropped without error.
func (s *Store) ExpandDirectory(ctx context.Context, path string) error {
	s.mu.Lock()
	project := s.project
	s.loading++
	s.errMsg = ""
	s.mu.Unlock()

	node, err := remote.CallResult(ctx, "fetch_directory", path, func(ctx context.Context) (*filetree.Node, error) {
		return s.fs.FetchDirectory(ctx, path)
	})

	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
	if err != nil {
		return s.failFor(project, "load directory contents", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchLocked(path, loadedChildren(node))
	return nil
}

// CreateEntry creates a file or directory remotely, then refreshes its
// parent directory.
func (s *Store) CreateEntry(ctx context.Context, path string, kind filetree.Kind) error {
	if s.ProjectPath() == "" {
		return ErrNoProject
	}
	path = filepath.Clean(path)

	var err error
	switch kind {
	case filetree.KindFile:
		err = remote.Call(ctx, "create_file", path, func(ctx context.Context) error {
			return s.fs.CreateFile(ctx, path)
		})
	case filetree.KindDirectory:
		err = remote.Call(ctx, "create_directory", path, func(ctx context.Context) error {
			return s.fs.CreateDirectory(ctx, path)
		})
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if err != nil {
		return s.fail("create "+string(kind), err)
	}
	s.logger.Info("entry created", "path", path, "kind", kind)

	if err := s.refetch(ctx, filetree.ParentPath(path)); err != nil {
		return s.fail("create "+string(kind), err)
	}
	return nil
}

// RenameOrMove renames or moves an entry remotely, then refreshes the old
// parent and, when different, the new parent. Open buffers at or below
// oldPath follow the entry to its new path.
func (s *Store) RenameOrMove(ctx context.Context, oldPath, newPath string) error {
	if s.ProjectPath() == "" {
		return ErrNoProject
	}
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)

	err := remote.Call(ctx, "rename", oldPath, func(ctx context.Context) error {
		return s.fs.Rename(ctx, oldPath, newPath)
	})
	if err != nil {
		return s.fail("rename/move", err)
	}
	s.logger.Info("entry renamed", "from", oldPath, "to", newPath)

	s.mu.Lock()
	s.rekeyBuffersLocked(oldPath, newPath)
	s.commitLocked()
	s.mu.Unlock()

	oldParent, newParent := filetree.ParentPath(oldPath), filetree.ParentPath(newPath)
	if err := s.refetch(ctx, oldParent); err != nil {
		return s.fail("rename/move", err)
	}
	if newParent != oldParent {
		if err := s.refetch(ctx, newParent); err != nil {
			return s.fail("rename/move", err)
		}
	}
	return nil
}

// Delete removes an entry. The node is taken out of the tree before the
// remote call so the view updates immediately. If the remote delete fails
// the node is put back where it was. The parent directory is refreshed in
// either case. Buffers at or below path are closed once the delete
// succeeds.
func (s *Store) Delete(ctx context.Context, path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	if s.project == "" {
		s.mu.Unlock()
		return ErrNoProject
	}
	var removal filetree.Removal
	var removed bool
	s.roots, removal, removed = filetree.Remove(s.roots, path)
	s.observeLocked()
	s.mu.Unlock()

	deleteErr := remote.Call(ctx, "delete", path, func(ctx context.Context) error {
		return s.fs.Delete(ctx, path)
	})
	if deleteErr != nil && removed {
		s.mu.Lock()
		if roots, ok := filetree.Reinsert(s.roots, removal); ok {
			s.roots = roots
			s.logger.Debug("restored node after failed delete", "path", path, "index", removal.Index)
		}
		s.mu.Unlock()
	}

	refetchErr := s.refetch(ctx, filetree.ParentPath(path))

	if deleteErr != nil {
		return s.fail("delete", deleteErr)
	}
	s.logger.Info("entry deleted", "path", path)

	s.mu.Lock()
	closed := s.buffers.RemoveFunc(func(f buffer.OpenFile) bool {
		return filetree.IsWithin(f.Path, path)
	})
	if len(closed) > 0 {
		if s.active != "" && !s.buffers.Has(s.active) {
			s.active = s.buffers.First()
		}
		s.commitLocked()
	}
	s.mu.Unlock()

	if refetchErr != nil {
		return s.fail("delete", refetchErr)
	}
	return nil
}

// refetch re-reads one directory and patches it into the tree.
func (s *Store) refetch(ctx context.Context, dir string) error {
	node, err := remote.CallResult(ctx, "fetch_directory", dir, func(ctx context.Context) (*filetree.Node, error) {
		return s.fs.FetchDirectory(ctx, dir)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchLocked(dir, loadedChildren(node))
	return nil
}

// patchLocked replaces the children of dir. The project root is not a node
// in the tree, so patching it replaces the top-level list. A target that is
// no longer present is dropped.
func (s *Store) patchLocked(dir string, children []*filetree.Node) {
	if s.project != "" && dir == s.project {
		s.roots = children
		s.observeLocked()
		return
	}
	if !filetree.ReplaceChildren(s.roots, dir, children) {
		metrics.RecordTreePatchMiss()
		s.logger.Debug("patch target not in tree", "path", dir)
		return
	}
	s.observeLocked()
}

func (s *Store) rekeyBuffersLocked(oldPath, newPath string) {
	for _, p := range s.buffers.Paths() {
		if !filetree.IsWithin(p, oldPath) {
			continue
		}
		target := newPath + strings.TrimPrefix(p, oldPath)
		if !s.buffers.Rekey(p, target) {
			s.logger.Warn("buffer not moved, target already open", "from", p, "to", target)
			continue
		}
		if s.active == p {
			s.active = target
		}
	}
}

// loadedChildren copies a fetched directory's children so the tree never
// shares nodes with the collaborator's response. A nil node or nil
// children become an empty loaded list.
func loadedChildren(node *filetree.Node) []*filetree.Node {
	if node == nil || node.Children == nil {
		return []*filetree.Node{}
	}
	return filetree.CloneAll(node.Children)
}
