// Package vcs caches repository status for the current project. It is a
// pull model: every mutation is followed by a full status re-fetch, and
// nothing is patched locally because the repository's own classification
// may change neighbouring entries.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lexandro/workspace-mcp/metrics"
	"github.com/lexandro/workspace-mcp/remote"
)

// DiffLanguage is the language id of diff buffers.
const DiffLanguage = "diff"

var ErrEmptyMessage = errors.New("commit message is empty")

// ProjectSource yields the current project root, or "" when none is
// selected.
type ProjectSource interface {
	ProjectPath() string
}

// BufferOpener opens content as a virtual buffer.
type BufferOpener interface {
	OpenVirtual(path, content, language string) error
}

// Options configures an Overlay.
type Options struct {
	VCS     remote.VCS
	Project ProjectSource
	Buffers BufferOpener
	Logger  *slog.Logger
}

// Overlay holds the status of the current project's repository.
type Overlay struct {
	vcs     remote.VCS
	project ProjectSource
	buffers BufferOpener
	logger  *slog.Logger

	mu       sync.Mutex
	repoPath string
	isRepo   bool
	branch   string
	entries  []remote.StatusEntry
	loading  int
	errMsg   string
	issued   uint64
	applied  uint64
}

// State is a copy of the cached status.
type State struct {
	RepoPath     string               `json:"repoPath,omitempty"`
	IsRepository bool                 `json:"isRepository"`
	Branch       string               `json:"branch,omitempty"`
	Entries      []remote.StatusEntry `json:"entries"`
	Loading      bool                 `json:"loading"`
	Error        string               `json:"error,omitempty"`
}

// New creates an empty overlay.
func New(opts Options) *Overlay {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{
		vcs:     opts.VCS,
		project: opts.Project,
		buffers: opts.Buffers,
		logger:  logger,
	}
}

// State returns a copy of the cached status. A cache that belongs to a
// project other than the current one is reported empty.
func (o *Overlay) State() State {
	current := o.project.ProjectPath()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.repoPath != current {
		return State{Entries: []remote.StatusEntry{}, Loading: o.loading > 0, Error: o.errMsg}
	}
	return State{
		RepoPath:     o.repoPath,
		IsRepository: o.isRepo,
		Branch:       o.branch,
		Entries:      append([]remote.StatusEntry{}, o.entries...),
		Loading:      o.loading > 0,
		Error:        o.errMsg,
	}
}

// CheckRepository queries whether the current project is a repository and
// refreshes the status when it is. A refresh failure is recorded but not
// returned. Without a project it does nothing.
func (o *Overlay) CheckRepository(ctx context.Context) error {
	project := o.project.ProjectPath()
	if project == "" {
		return nil
	}
	o.begin()
	isRepo, err := remote.CallResult(ctx, "is_repository", project, func(ctx context.Context) (bool, error) {
		return o.vcs.IsRepository(ctx, project)
	})
	o.end()
	if err != nil {
		return o.fail("check repository status", err)
	}

	o.mu.Lock()
	if o.repoPath != project {
		o.repoPath = project
		o.entries = nil
		o.branch = ""
	}
	o.isRepo = isRepo
	if !isRepo {
		o.entries = nil
		o.branch = ""
	}
	o.mu.Unlock()
	o.logger.Info("repository checked", "project", project, "isRepository", isRepo)

	if isRepo {
		if err := o.RefreshStatus(ctx); err != nil {
			o.logger.Warn("initial status refresh failed", "project", project, "error", err)
		}
	}
	return nil
}

// RefreshStatus re-fetches the whole status list. Each call takes a
// sequence number; a response is applied only when no later request has
// been applied already, so overlapping refreshes cannot roll the cache
// back. Without a project it does nothing.
func (o *Overlay) RefreshStatus(ctx context.Context) error {
	project := o.project.ProjectPath()
	if project == "" {
		return nil
	}

	o.mu.Lock()
	o.issued++
	token := o.issued
	o.loading++
	o.errMsg = ""
	o.mu.Unlock()

	entries, err := remote.CallResult(ctx, "status", project, func(ctx context.Context) ([]remote.StatusEntry, error) {
		return o.vcs.Status(ctx, project)
	})
	var branch string
	if err == nil {
		branch, err = remote.CallResult(ctx, "current_branch", project, func(ctx context.Context) (string, error) {
			return o.vcs.CurrentBranch(ctx, project)
		})
	}

	current := o.project.ProjectPath()
	o.mu.Lock()
	o.loading--
	if token < o.applied || project != current {
		o.mu.Unlock()
		metrics.RecordStaleRefresh()
		o.logger.Debug("discarding stale status", "project", project, "token", token)
		return nil
	}
	o.applied = token
	o.mu.Unlock()
	if err != nil {
		return o.fail("get status", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.repoPath = project
	o.isRepo = true
	o.branch = branch
	o.entries = entries
	metrics.SetStatusEntries(len(entries))
	o.logger.Debug("status refreshed", "project", project, "entries", len(entries), "branch", branch)
	return nil
}

// InitRepository creates a repository at the project root, then refreshes.
func (o *Overlay) InitRepository(ctx context.Context) error {
	return o.mutate(ctx, "initialize repository", "init_repository", "", func(ctx context.Context, project string) error {
		return o.vcs.InitRepository(ctx, project)
	})
}

// Stage adds a file to the index, then refreshes.
func (o *Overlay) Stage(ctx context.Context, file string) error {
	return o.mutate(ctx, "stage file", "stage", file, func(ctx context.Context, project string) error {
		return o.vcs.Stage(ctx, project, file)
	})
}

// Unstage removes a file from the index, then refreshes.
func (o *Overlay) Unstage(ctx context.Context, file string) error {
	return o.mutate(ctx, "unstage file", "unstage", file, func(ctx context.Context, project string) error {
		return o.vcs.Unstage(ctx, project, file)
	})
}

// DiscardChanges reverts a file's working tree changes, then refreshes.
func (o *Overlay) DiscardChanges(ctx context.Context, file string) error {
	return o.mutate(ctx, "discard changes", "discard", file, func(ctx context.Context, project string) error {
		return o.vcs.DiscardChanges(ctx, project, file)
	})
}

// Commit records the staged changes, then refreshes.
func (o *Overlay) Commit(ctx context.Context, message string) error {
	if message == "" {
		return ErrEmptyMessage
	}
	return o.mutate(ctx, "commit", "commit", "", func(ctx context.Context, project string) error {
		return o.vcs.Commit(ctx, project, message)
	})
}

// ListBranches returns the repository's branches. Without a project it
// returns nothing.
func (o *Overlay) ListBranches(ctx context.Context) ([]remote.Branch, error) {
	project := o.project.ProjectPath()
	if project == "" {
		return nil, nil
	}
	branches, err := remote.CallResult(ctx, "list_branches", project, func(ctx context.Context) ([]remote.Branch, error) {
		return o.vcs.ListBranches(ctx, project)
	})
	if err != nil {
		return nil, o.fail("list branches", err)
	}
	return branches, nil
}

// OpenDiff opens the diff of a file as a virtual buffer and returns the
// buffer path. Without a project it does nothing.
func (o *Overlay) OpenDiff(ctx context.Context, file string, staged bool) (string, error) {
	project := o.project.ProjectPath()
	if project == "" {
		return "", nil
	}
	diff, err := remote.CallResult(ctx, "diff", project, func(ctx context.Context) (string, error) {
		return o.vcs.Diff(ctx, project, file, staged)
	})
	if err != nil {
		return "", o.fail("diff", err)
	}
	path := DiffPath(file, staged)
	if err := o.buffers.OpenVirtual(path, diff, DiffLanguage); err != nil {
		return "", err
	}
	return path, nil
}

// DiffPath names the virtual buffer holding a file's diff.
func DiffPath(file string, staged bool) string {
	if staged {
		return "diff:staged:" + file
	}
	return "diff:" + file
}

func (o *Overlay) mutate(ctx context.Context, action, op, file string, fn func(ctx context.Context, project string) error) error {
	project := o.project.ProjectPath()
	if project == "" {
		return nil
	}
	o.begin()
	err := remote.Call(ctx, op, file, func(ctx context.Context) error {
		return fn(ctx, project)
	})
	o.end()
	if err != nil {
		return o.fail(action, err)
	}
	o.logger.Info("repository updated", "action", action, "project", project, "file", file)
	return o.RefreshStatus(ctx)
}

func (o *Overlay) begin() {
	o.mu.Lock()
	o.loading++
	o.errMsg = ""
	o.mu.Unlock()
}

func (o *Overlay) end() {
	o.mu.Lock()
	o.loading--
	o.mu.Unlock()
}

func (o *Overlay) fail(action string, err error) error {
	wrapped := fmt.Errorf("failed to %s: %w", action, err)
	o.mu.Lock()
	o.errMsg = wrapped.Error()
	o.mu.Unlock()
	o.logger.Warn("vcs operation failed", "action", action, "error", err)
	return wrapped
}
