package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lexandro/workspace-mcp/remote"
	"github.com/lexandro/workspace-mcp/retry"
)

var ErrAlreadyRepository = errors.New("directory is already a git repository")

// Git implements remote.VCS with the git CLI. Every command targets the
// repository with "git -C <dir>". Commands that fail on a held index.lock
// are retried with backoff.
type Git struct {
	binary string
	retry  retry.Config
	logger *slog.Logger
}

func NewGit(logger *slog.Logger) *Git {
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{binary: "git", retry: retry.DefaultConfig(), logger: logger}
}

// run executes a git command in dir and returns stdout. Stderr is included
// in the error on failure.
func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	return retry.DoWithResult(ctx, g.retry, func() (string, error) {
		out, stderr, err := g.exec(ctx, dir, args...)
		if err == nil {
			return out, nil
		}
		err = fmt.Errorf("git %s in %s: %w (stderr: %s)", strings.Join(args, " "), dir, err, stderr)
		if strings.Contains(stderr, "index.lock") {
			g.logger.Debug("git index locked, retrying", "dir", dir, "args", args)
			return "", retry.Retryable(err)
		}
		return "", err
	})
}

func (g *Git) exec(ctx context.Context, dir string, args ...string) (string, string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, g.binary, fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	err := command.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

// IsRepository reports whether dir lies inside a git work tree. A missing
// directory is an error; a plain directory is not.
func (g *Git) IsRepository(ctx context.Context, dir string) (bool, error) {
	if _, err := os.Stat(dir); err != nil {
		return false, err
	}
	out, stderr, err := g.exec(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if strings.Contains(stderr, "not a git repository") {
			return false, nil
		}
		return false, fmt.Errorf("git rev-parse in %s: %w (stderr: %s)", dir, err, stderr)
	}
	return strings.TrimSpace(out) == "true", nil
}

// InitRepository creates a repository in dir. An existing repository is
// refused.
func (g *Git) InitRepository(ctx context.Context, dir string) error {
	isRepo, err := g.IsRepository(ctx, dir)
	if err != nil {
		return err
	}
	if isRepo {
		return ErrAlreadyRepository
	}
	_, err = g.run(ctx, dir, "init", "-q")
	return err
}

// Status lists changed paths. A path changed both in the index and in the
// work tree yields one staged and one unstaged entry.
func (g *Git) Status(ctx context.Context, dir string) ([]remote.StatusEntry, error) {
	out, err := g.run(ctx, dir, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

// parsePorcelain decodes "git status --porcelain=v1 -z" output.
func parsePorcelain(out string) []remote.StatusEntry {
	entries := []remote.StatusEntry{}
	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if len(f) < 4 {
			continue
		}
		x, y, path := f[0], f[1], f[3:]
		if x == 'R' || x == 'C' {
			// The source path follows as its own field.
			i++
		}

		switch {
		case x == '!' && y == '!':
			continue
		case x == '?' && y == '?':
			entries = append(entries, remote.StatusEntry{File: path, Status: remote.StatusUntracked})
		case x == 'U' || y == 'U' || (x == 'A' && y == 'A') || (x == 'D' && y == 'D'):
			entries = append(entries, remote.StatusEntry{File: path, Status: remote.StatusConflicted})
		default:
			if s, ok := statusCode(x); ok {
				entries = append(entries, remote.StatusEntry{File: path, Status: s, Staged: true})
			}
			if s, ok := statusCode(y); ok {
				entries = append(entries, remote.StatusEntry{File: path, Status: s})
			}
		}
	}
	return entries
}

func statusCode(c byte) (remote.Status, bool) {
	switch c {
	case 'M', 'T':
		return remote.StatusModified, true
	case 'A':
		return remote.StatusAdded, true
	case 'D':
		return remote.StatusDeleted, true
	case 'R':
		return remote.StatusRenamed, true
	case 'C':
		return remote.StatusCopied, true
	default:
		return "", false
	}
}

func (g *Git) Stage(ctx context.Context, dir, file string) error {
	_, err := g.run(ctx, dir, "add", "--", file)
	return err
}

// Unstage removes a file's changes from the index. In a repository
// without commits the file is dropped from the index instead.
func (g *Git) Unstage(ctx context.Context, dir, file string) error {
	if g.hasHead(ctx, dir) {
		_, err := g.run(ctx, dir, "reset", "-q", "HEAD", "--", file)
		return err
	}
	_, err := g.run(ctx, dir, "rm", "--cached", "-q", "--", file)
	return err
}

func (g *Git) Commit(ctx context.Context, dir, message string) error {
	_, err := g.run(ctx, dir, "commit", "-q", "-m", message)
	return err
}

// DiscardChanges restores a file's work tree copy from HEAD, leaving the
// index alone. Untracked files are deleted.
func (g *Git) DiscardChanges(ctx context.Context, dir, file string) error {
	out, err := g.run(ctx, dir, "status", "--porcelain=v1", "-z", "--untracked-files=all", "--", file)
	if err != nil {
		return err
	}
	for _, e := range parsePorcelain(out) {
		if e.Status == remote.StatusUntracked {
			return os.Remove(filepath.Join(dir, filepath.FromSlash(file)))
		}
	}
	_, err = g.run(ctx, dir, "restore", "--worktree", "--source=HEAD", "--", file)
	return err
}

// CurrentBranch returns the checked out branch, including an unborn one.
// A detached HEAD is reported as its short commit hash.
func (g *Git) CurrentBranch(ctx context.Context, dir string) (string, error) {
	if out, _, err := g.exec(ctx, dir, "symbolic-ref", "--short", "-q", "HEAD"); err == nil {
		return strings.TrimSpace(out), nil
	}
	out, err := g.run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ListBranches lists local branches, then remote-tracking branches.
func (g *Git) ListBranches(ctx context.Context, dir string) ([]remote.Branch, error) {
	out, err := g.run(ctx, dir, "for-each-ref", "--format=%(refname)%00%(HEAD)", "refs/heads", "refs/remotes")
	if err != nil {
		return nil, err
	}
	return parseBranches(out), nil
}

func parseBranches(out string) []remote.Branch {
	var local, remotes []remote.Branch
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		ref, head, _ := strings.Cut(line, "\x00")
		switch {
		case strings.HasPrefix(ref, "refs/heads/"):
			local = append(local, remote.Branch{
				Name:   strings.TrimPrefix(ref, "refs/heads/"),
				IsHead: strings.TrimSpace(head) == "*",
			})
		case strings.HasPrefix(ref, "refs/remotes/") && !strings.HasSuffix(ref, "/HEAD"):
			remotes = append(remotes, remote.Branch{
				Name:     strings.TrimPrefix(ref, "refs/remotes/"),
				IsRemote: true,
			})
		}
	}
	return append(append([]remote.Branch{}, local...), remotes...)
}

// Diff returns the unified diff of one file against the index, or of the
// index against HEAD when staged is set. An untracked file is diffed
// against an empty file.
func (g *Git) Diff(ctx context.Context, dir, file string, staged bool) (string, error) {
	args := []string{"diff", "--no-color"}
	if staged {
		args = append(args, "--cached")
	}
	out, err := g.run(ctx, dir, append(args, "--", file)...)
	if err != nil || out != "" || staged {
		return out, err
	}

	// git diff --no-index exits 1 when the files differ.
	out, stderr, err := g.exec(ctx, dir, "diff", "--no-color", "--no-index", "--", os.DevNull, file)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return out, nil
	}
	if err != nil {
		return "", fmt.Errorf("git diff --no-index in %s: %w (stderr: %s)", dir, err, stderr)
	}
	return out, nil
}

func (g *Git) hasHead(ctx context.Context, dir string) bool {
	_, _, err := g.exec(ctx, dir, "rev-parse", "--verify", "-q", "HEAD")
	return err == nil
}
