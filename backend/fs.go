// Package backend is the local collaborator: it performs the filesystem,
// git and shell work the workspace engine delegates, directly on the
// machine the server runs on.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/ignore"
	"github.com/lexandro/workspace-mcp/language"
	"github.com/lexandro/workspace-mcp/persist"
)

var (
	ErrBinary   = errors.New("file is not editable text")
	ErrTooLarge = errors.New("file is too large to open")
	ErrExists   = errors.New("path already exists")
	ErrNotDir   = errors.New("not a directory")
)

// Indexer is told about the backend's own mutations so search results stay
// current without watching the disk.
type Indexer interface {
	Touch(absolutePath string)
	Forget(absolutePath string)
}

// FSOptions configures an FS.
type FSOptions struct {
	Excludes         []string
	RespectGitignore bool
	MaxFileSize      int64
	Indexer          Indexer
	Logger           *slog.Logger
}

// FS implements remote.Filesystem on the local disk. Listings hide the
// entries the project's ignore rules exclude.
type FS struct {
	opts   FSOptions
	logger *slog.Logger

	mu      sync.Mutex
	matcher *ignore.Matcher
}

func NewFS(opts FSOptions) *FS {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{opts: opts, logger: logger}
}

// FetchTree lists the direct children of a project root. The root becomes
// the base for ignore rules of later listings.
func (f *FS) FetchTree(ctx context.Context, rootPath string) (*filetree.Node, error) {
	rootPath = filepath.Clean(rootPath)
	m := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          rootPath,
		CustomPatterns:   f.opts.Excludes,
		RespectGitignore: f.opts.RespectGitignore,
		MaxFileSizeBytes: f.opts.MaxFileSize,
	})
	node, err := f.list(ctx, rootPath, m)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.matcher = m
	f.mu.Unlock()
	return node, nil
}

// FetchDirectory lists the direct children of one directory.
func (f *FS) FetchDirectory(ctx context.Context, path string) (*filetree.Node, error) {
	return f.list(ctx, filepath.Clean(path), f.matcherFor(path))
}

func (f *FS) list(ctx context.Context, dir string, m *ignore.Matcher) (*filetree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	node := filetree.NewDirectory(dir, info.ModTime())
	node.Children = make([]*filetree.Node, 0, len(entries))
	node.IsLoaded = true
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if m != nil && m.Hidden(path, e.IsDir()) {
			continue
		}
		ei, err := e.Info()
		if err != nil {
			continue
		}
		if e.IsDir() {
			node.Children = append(node.Children, filetree.NewDirectory(path, ei.ModTime()))
		} else {
			node.Children = append(node.Children, filetree.NewFile(path, ei.Size(), ei.ModTime()))
		}
	}
	filetree.Sort(node.Children)
	return node, nil
}

func (f *FS) matcherFor(path string) *ignore.Matcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matcher != nil && filetree.IsWithin(path, f.matcher.RootDir()) {
		return f.matcher
	}
	return nil
}

// CreateFile creates an empty file. An existing path is refused.
func (f *FS) CreateFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	f.touched(path)
	return nil
}

// CreateDirectory creates a directory. Its parent must exist.
func (f *FS) CreateDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return err
	}
	return nil
}

// Rename moves a file or directory. An existing target is never replaced.
func (f *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("%s: %w", newPath, ErrExists)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}
	f.forgotten(oldPath)
	f.touched(newPath)
	f.logger.Debug("renamed", "from", oldPath, "to", newPath)
	return nil
}

// Delete removes a file or a directory tree.
func (f *FS) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Lstat(path); err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	f.forgotten(path)
	return nil
}

// ReadFile returns a file's text. Binary and over-size files are refused.
func (f *FS) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if f.opts.MaxFileSize > 0 && info.Size() > f.opts.MaxFileSize {
		return "", fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !language.IsEditableText(data) {
		return "", fmt.Errorf("%s: %w", path, ErrBinary)
	}
	return string(data), nil
}

// WriteFile replaces a file's content atomically, keeping its mode.
func (f *FS) WriteFile(ctx context.Context, path string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := persist.WriteFileAtomic(path, []byte(content), perm); err != nil {
		return err
	}
	if m := f.matcherFor(path); m != nil && m.IsIgnoreFile(path) {
		m.Reload()
	}
	f.touched(path)
	return nil
}

func (f *FS) touched(path string) {
	if f.opts.Indexer != nil {
		f.opts.Indexer.Touch(path)
	}
}

func (f *FS) forgotten(path string) {
	if f.opts.Indexer != nil {
		f.opts.Indexer.Forget(path)
	}
}
