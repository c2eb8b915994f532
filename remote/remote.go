// Package remote declares the collaborator contract the workspace engine
// consumes: the out-of-process service that performs real filesystem, git
// and shell operations. Every method may block; callers pass a context and
// must not hold their own locks while a call is in flight.
package remote

import (
	"context"

	"github.com/lexandro/workspace-mcp/filetree"
)

// Filesystem is the tree and file-content part of the collaborator.
// Directory listings come back with Children populated for the requested
// directory only, sorted directories first then by case-sensitive name.
type Filesystem interface {
	FetchTree(ctx context.Context, rootPath string) (*filetree.Node, error)
	FetchDirectory(ctx context.Context, path string) (*filetree.Node, error)
	CreateFile(ctx context.Context, path string) error
	CreateDirectory(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Delete(ctx context.Context, path string) error
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path string, content string) error
}

// Status classifies a changed path as reported by the repository.
type Status string

const (
	StatusModified   Status = "modified"
	StatusAdded      Status = "added"
	StatusDeleted    Status = "deleted"
	StatusRenamed    Status = "renamed"
	StatusCopied     Status = "copied"
	StatusUntracked  Status = "untracked"
	StatusConflicted Status = "conflicted"
)

// StatusEntry is one changed path, relative to the repository root.
type StatusEntry struct {
	File   string `json:"file"`
	Status Status `json:"status"`
	Staged bool   `json:"staged"`
}

// Branch describes a local or remote-tracking branch.
type Branch struct {
	Name     string `json:"name"`
	IsRemote bool   `json:"isRemote"`
	IsHead   bool   `json:"isHead"`
}

// VCS is the version-control part of the collaborator. repoPath is always
// the project root; file arguments are relative to it.
type VCS interface {
	IsRepository(ctx context.Context, repoPath string) (bool, error)
	InitRepository(ctx context.Context, repoPath string) error
	Status(ctx context.Context, repoPath string) ([]StatusEntry, error)
	Stage(ctx context.Context, repoPath, file string) error
	Unstage(ctx context.Context, repoPath, file string) error
	Commit(ctx context.Context, repoPath, message string) error
	DiscardChanges(ctx context.Context, repoPath, file string) error
	CurrentBranch(ctx context.Context, repoPath string) (string, error)
	ListBranches(ctx context.Context, repoPath string) ([]Branch, error)
	Diff(ctx context.Context, repoPath, file string, staged bool) (string, error)
}

// ShellLister reports the shells a terminal session may be started with.
type ShellLister interface {
	ListAvailableShells(ctx context.Context) ([]string, error)
}

// FileMatch is a quick-open hit.
type FileMatch struct {
	Path         string `json:"path"`
	RelativePath string `json:"relativePath"`
	Language     string `json:"language"`
	Score        int    `json:"score,omitempty"`
}

// LineMatch is a find-in-files hit within one file.
type LineMatch struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// ContentMatch groups find-in-files hits by file.
type ContentMatch struct {
	RelativePath string      `json:"relativePath"`
	Lines        []LineMatch `json:"lines"`
}

// Searcher answers project-wide file and content queries.
type Searcher interface {
	SearchFiles(ctx context.Context, rootPath, query string, maxResults int) ([]FileMatch, error)
	SearchContent(ctx context.Context, rootPath, query string, maxResults int) ([]ContentMatch, error)
}
