package workspace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/persist"
	"github.com/lexandro/workspace-mcp/remote"
)

// fakeFS is a scripted collaborator. Directory listings are kept per
// directory; mutations update them the way a real backend would.
type fakeFS struct {
	mu    sync.Mutex
	dirs  map[string][]*filetree.Node
	files map[string]string
	fail  map[string]error
	calls []string
	// hook runs before a call returns, with no locks held.
	hook func(op, path string)
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		dirs:  make(map[string][]*filetree.Node),
		files: make(map[string]string),
		fail:  make(map[string]error),
	}
}

func (f *fakeFS) addDir(path string) {
	f.dirs[path] = []*filetree.Node{}
	if parent := filetree.ParentPath(path); parent != path {
		if _, ok := f.dirs[parent]; ok {
			f.dirs[parent] = append(f.dirs[parent], filetree.NewDirectory(path, time.Time{}))
			filetree.Sort(f.dirs[parent])
		}
	}
}

func (f *fakeFS) addFile(path, content string) {
	f.files[path] = content
	parent := filetree.ParentPath(path)
	f.dirs[parent] = append(f.dirs[parent], filetree.NewFile(path, int64(len(content)), time.Time{}))
	filetree.Sort(f.dirs[parent])
}

func (f *fakeFS) failOn(op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op+" "+path] = err
}

func (f *fakeFS) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

func (f *fakeFS) enter(op, path string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op+" "+path)
	err := f.fail[op+" "+path]
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(op, path)
	}
	return err
}

func (f *fakeFS) listing(path string) (*filetree.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	children, ok := f.dirs[path]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", path, os.ErrNotExist)
	}
	node := filetree.NewDirectory(path, time.Time{})
	node.Children = filetree.CloneAll(children)
	if node.Children == nil {
		node.Children = []*filetree.Node{}
	}
	node.IsLoaded = true
	return node, nil
}

func (f *fakeFS) FetchTree(ctx context.Context, rootPath string) (*filetree.Node, error) {
	if err := f.enter("fetch_tree", rootPath); err != nil {
		return nil, err
	}
	return f.listing(rootPath)
}

func (f *fakeFS) FetchDirectory(ctx context.Context, path string) (*filetree.Node, error) {
	if err := f.enter("fetch_directory", path); err != nil {
		return nil, err
	}
	return f.listing(path)
}

func (f *fakeFS) CreateFile(ctx context.Context, path string) error {
	if err := f.enter("create_file", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addFile(path, "")
	return nil
}

func (f *fakeFS) CreateDirectory(ctx context.Context, path string) error {
	if err := f.enter("create_directory", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addDir(path)
	return nil
}

func (f *fakeFS) removeEntry(path string) *filetree.Node {
	parent := filetree.ParentPath(path)
	for i, n := range f.dirs[parent] {
		if n.Path == path {
			f.dirs[parent] = append(f.dirs[parent][:i:i], f.dirs[parent][i+1:]...)
			return n
		}
	}
	return nil
}

func (f *fakeFS) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := f.enter("rename", oldPath); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.removeEntry(oldPath)
	if n == nil {
		return os.ErrNotExist
	}
	if n.IsDir() {
		f.addDir(newPath)
		return nil
	}
	content := f.files[oldPath]
	delete(f.files, oldPath)
	f.addFile(newPath, content)
	return nil
}

func (f *fakeFS) Delete(ctx context.Context, path string) error {
	if err := f.enter("delete", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeEntry(path) == nil {
		return os.ErrNotExist
	}
	delete(f.files, path)
	delete(f.dirs, path)
	return nil
}

func (f *fakeFS) ReadFile(ctx context.Context, path string) (string, error) {
	if err := f.enter("read_file", path); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return "", os.ErrNotExist
	}
	return content, nil
}

func (f *fakeFS) WriteFile(ctx context.Context, path string, content string) error {
	if err := f.enter("write_file", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
	return nil
}

type fakeSearcher struct {
	lastRoot  string
	lastLimit int
}

func (s *fakeSearcher) SearchFiles(ctx context.Context, rootPath, query string, maxResults int) ([]remote.FileMatch, error) {
	s.lastRoot, s.lastLimit = rootPath, maxResults
	return []remote.FileMatch{{Path: rootPath + "/" + query, RelativePath: query}}, nil
}

func (s *fakeSearcher) SearchContent(ctx context.Context, rootPath, query string, maxResults int) ([]remote.ContentMatch, error) {
	s.lastRoot, s.lastLimit = rootPath, maxResults
	return nil, nil
}

// projectFS builds the layout used by most tests:
//
//	/p/src/        (main.ts)
//	/p/docs/       (guide.md)
//	/p/README.md
func projectFS() *fakeFS {
	f := newFakeFS()
	f.addDir("/p")
	f.addDir("/p/src")
	f.addDir("/p/docs")
	f.addFile("/p/src/main.ts", "console.log(1)\n")
	f.addFile("/p/docs/guide.md", "# Guide\n")
	f.addFile("/p/README.md", "# Readme\n")
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, fs *fakeFS) (*Store, *persist.Snapshots) {
	t.Helper()
	snaps := &persist.Snapshots{Store: persist.NewMemoryStore(), Compression: persist.CompressionZstd}
	s := New(Options{
		Filesystem: fs,
		Snapshots:  snaps,
		Logger:     discardLogger(),
	})
	return s, snaps
}

func openProject(t *testing.T, s *Store, path string) {
	t.Helper()
	if err := s.SetProject(context.Background(), path); err != nil {
		t.Fatalf("SetProject(%s): %v", path, err)
	}
	if msg := s.State().Error; msg != "" {
		t.Fatalf("SetProject(%s) left error %q", path, msg)
	}
}

func rootPaths(roots []*filetree.Node) []string {
	out := make([]string, len(roots))
	for i, n := range roots {
		out[i] = n.Path
	}
	return out
}

func childPaths(roots []*filetree.Node, dir string) []string {
	n := filetree.Find(roots, dir)
	if n == nil {
		return nil
	}
	return rootPaths(n.Children)
}
