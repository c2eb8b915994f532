package vcs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/lexandro/workspace-mcp/remote"
)

type fakeVCS struct {
	mu       sync.Mutex
	repos    map[string]bool
	status   []remote.StatusEntry
	branch   string
	diff     string
	fail     map[string]error
	calls    []string
	staged   []string
	commits  []string
	branches []remote.Branch
	// hook runs inside Status before it returns.
	hook func()
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{repos: make(map[string]bool), fail: make(map[string]error), branch: "main"}
}

func (f *fakeVCS) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeVCS) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeVCS) IsRepository(_ context.Context, dir string) (bool, error) {
	if err := f.record("is_repository"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repos[dir], nil
}

func (f *fakeVCS) InitRepository(_ context.Context, dir string) error {
	if err := f.record("init"); err != nil {
		return err
	}
	f.mu.Lock()
	f.repos[dir] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeVCS) Status(_ context.Context, _ string) ([]remote.StatusEntry, error) {
	if err := f.record("status"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	out := append([]remote.StatusEntry{}, f.status...)
	hook := f.hook
	f.hook = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeVCS) Stage(_ context.Context, _, file string) error {
	if err := f.record("stage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged = append(f.staged, file)
	for i := range f.status {
		if f.status[i].File == file {
			f.status[i].Staged = true
		}
	}
	return nil
}

func (f *fakeVCS) Unstage(_ context.Context, _, file string) error {
	if err := f.record("unstage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.status {
		if f.status[i].File == file {
			f.status[i].Staged = false
		}
	}
	return nil
}

func (f *fakeVCS) Commit(_ context.Context, _, message string) error {
	if err := f.record("commit"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, message)
	f.status = nil
	return nil
}

func (f *fakeVCS) DiscardChanges(_ context.Context, _, _ string) error {
	return f.record("discard")
}

func (f *fakeVCS) CurrentBranch(_ context.Context, _ string) (string, error) {
	if err := f.record("current_branch"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branch, nil
}

func (f *fakeVCS) ListBranches(_ context.Context, _ string) ([]remote.Branch, error) {
	if err := f.record("list_branches"); err != nil {
		return nil, err
	}
	return f.branches, nil
}

func (f *fakeVCS) Diff(_ context.Context, _, _ string, _ bool) (string, error) {
	if err := f.record("diff"); err != nil {
		return "", err
	}
	return f.diff, nil
}

type project struct {
	mu   sync.Mutex
	path string
}

func (p *project) ProjectPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

func (p *project) set(path string) {
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
}

type virtualBuffer struct {
	path, content, language string
}

type opener struct {
	opened []virtualBuffer
	err    error
}

func (o *opener) OpenVirtual(path, content, language string) error {
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, virtualBuffer{path, content, language})
	return nil
}

func newTestOverlay(v *fakeVCS, projectPath string) (*Overlay, *project, *opener) {
	p := &project{path: projectPath}
	b := &opener{}
	o := New(Options{
		VCS:     v,
		Project: p,
		Buffers: b,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return o, p, b
}

func Test_Overlay_NoProject_DoesNothing(t *testing.T) {
	v := newFakeVCS()
	o, _, _ := newTestOverlay(v, "")
	ctx := context.Background()

	if err := o.CheckRepository(ctx); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := o.RefreshStatus(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := o.Stage(ctx, "a.go"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(v.calls) != 0 {
		t.Errorf("expected no collaborator calls, got %v", v.calls)
	}
}

func Test_Overlay_CheckRepository_RefreshesStatus(t *testing.T) {
	v := newFakeVCS()
	v.repos["/p"] = true
	v.status = []remote.StatusEntry{{File: "a.go", Status: remote.StatusModified}}
	o, _, _ := newTestOverlay(v, "/p")

	if err := o.CheckRepository(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	st := o.State()
	if !st.IsRepository || st.RepoPath != "/p" {
		t.Errorf("expected /p to be a repository, got %+v", st)
	}
	if len(st.Entries) != 1 || st.Entries[0].File != "a.go" {
		t.Errorf("expected one entry for a.go, got %v", st.Entries)
	}
	if st.Branch != "main" {
		t.Errorf("expected branch main, got %q", st.Branch)
	}
}

func Test_Overlay_CheckRepository_NotARepository(t *testing.T) {
	v := newFakeVCS()
	o, _, _ := newTestOverlay(v, "/p")

	if err := o.CheckRepository(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if o.State().IsRepository {
		t.Error("expected IsRepository false")
	}
	if v.count("status") != 0 {
		t.Error("expected no status fetch for a non-repository")
	}
}

func Test_Overlay_CheckRepository_FailureIsRecorded(t *testing.T) {
	v := newFakeVCS()
	v.fail["is_repository"] = errors.New("boom")
	o, _, _ := newTestOverlay(v, "/p")

	err := o.CheckRepository(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !remote.IsCallError(err) {
		t.Errorf("expected a call error, got %v", err)
	}
	if o.State().Error == "" {
		t.Error("expected the error to be recorded")
	}
}

func Test_Overlay_RefreshStatus_StaleResponseDiscarded(t *testing.T) {
	v := newFakeVCS()
	v.repos["/p"] = true
	v.status = []remote.StatusEntry{{File: "old.go", Status: remote.StatusModified}}
	o, _, _ := newTestOverlay(v, "/p")
	ctx := context.Background()

	// The first refresh is still in flight when a second one starts and
	// completes with newer data.
	v.hook = func() {
		v.mu.Lock()
		v.status = []remote.StatusEntry{{File: "new.go", Status: remote.StatusAdded}}
		v.mu.Unlock()
		if err := o.RefreshStatus(ctx); err != nil {
			t.Errorf("inner refresh: %v", err)
		}
	}
	if err := o.RefreshStatus(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	st := o.State()
	if len(st.Entries) != 1 || st.Entries[0].File != "new.go" {
		t.Errorf("expected the newer status to stand, got %v", st.Entries)
	}
	if st.Loading {
		t.Error("expected loading to be false")
	}
}

func Test_Overlay_RefreshStatus_ProjectChangedDiscards(t *testing.T) {
	v := newFakeVCS()
	v.status = []remote.StatusEntry{{File: "a.go", Status: remote.StatusModified}}
	o, p, _ := newTestOverlay(v, "/p")
	v.hook = func() { p.set("/q") }

	if err := o.RefreshStatus(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if st := o.State(); len(st.Entries) != 0 || st.IsRepository {
		t.Errorf("expected nothing cached for /q, got %+v", st)
	}
}

func Test_Overlay_State_OtherProjectReportedEmpty(t *testing.T) {
	v := newFakeVCS()
	v.repos["/p"] = true
	v.status = []remote.StatusEntry{{File: "a.go", Status: remote.StatusModified}}
	o, p, _ := newTestOverlay(v, "/p")
	if err := o.CheckRepository(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}

	p.set("/q")
	st := o.State()
	if st.IsRepository || len(st.Entries) != 0 || st.RepoPath != "" {
		t.Errorf("expected an empty state for /q, got %+v", st)
	}
	if st.Entries == nil {
		t.Error("expected a non-nil empty entry list")
	}
}

func Test_Overlay_Stage_RefreshesAfterMutation(t *testing.T) {
	v := newFakeVCS()
	v.repos["/p"] = true
	v.status = []remote.StatusEntry{{File: "a.go", Status: remote.StatusModified}}
	o, _, _ := newTestOverlay(v, "/p")
	ctx := context.Background()

	if err := o.Stage(ctx, "a.go"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if v.count("status") != 1 {
		t.Errorf("expected one status fetch after stage, got %d", v.count("status"))
	}
	st := o.State()
	if len(st.Entries) != 1 || !st.Entries[0].Staged {
		t.Errorf("expected a.go staged, got %v", st.Entries)
	}

	if err := o.Unstage(ctx, "a.go"); err != nil {
		t.Fatalf("unstage: %v", err)
	}
	if st := o.State(); st.Entries[0].Staged {
		t.Error("expected a.go unstaged")
	}
}

func Test_Overlay_Stage_FailureSkipsRefresh(t *testing.T) {
	v := newFakeVCS()
	v.fail["stage"] = errors.New("index locked")
	o, _, _ := newTestOverlay(v, "/p")

	if err := o.Stage(context.Background(), "a.go"); err == nil {
		t.Fatal("expected error")
	}
	if v.count("status") != 0 {
		t.Error("expected no refresh after a failed stage")
	}
	if st := o.State(); st.Error == "" || st.Loading {
		t.Errorf("expected a recorded error and no loading, got %+v", st)
	}
}

func Test_Overlay_Commit_EmptyMessage(t *testing.T) {
	v := newFakeVCS()
	o, _, _ := newTestOverlay(v, "/p")

	if err := o.Commit(context.Background(), ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if v.count("commit") != 0 {
		t.Error("expected no commit call")
	}
}

func Test_Overlay_Commit_ClearsStatus(t *testing.T) {
	v := newFakeVCS()
	v.repos["/p"] = true
	v.status = []remote.StatusEntry{{File: "a.go", Status: remote.StatusAdded, Staged: true}}
	o, _, _ := newTestOverlay(v, "/p")
	ctx := context.Background()
	if err := o.RefreshStatus(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := o.Commit(ctx, "initial"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(v.commits) != 1 || v.commits[0] != "initial" {
		t.Errorf("expected commit 'initial', got %v", v.commits)
	}
	if n := len(o.State().Entries); n != 0 {
		t.Errorf("expected a clean status after commit, got %d entries", n)
	}
}

func Test_Overlay_InitRepository(t *testing.T) {
	v := newFakeVCS()
	o, _, _ := newTestOverlay(v, "/p")

	if err := o.InitRepository(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !v.repos["/p"] {
		t.Error("expected /p to be initialized")
	}
	if !o.State().IsRepository {
		t.Error("expected IsRepository after init")
	}
}

func Test_Overlay_OpenDiff(t *testing.T) {
	v := newFakeVCS()
	v.diff = "@@ -1 +1 @@\n-a\n+b\n"
	o, _, b := newTestOverlay(v, "/p")

	path, err := o.OpenDiff(context.Background(), "a.go", true)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if path != "diff:staged:a.go" {
		t.Errorf("expected diff:staged:a.go, got %q", path)
	}
	if len(b.opened) != 1 || b.opened[0].content != v.diff || b.opened[0].language != DiffLanguage {
		t.Errorf("expected the diff opened as a virtual buffer, got %+v", b.opened)
	}
}

func Test_Overlay_ListBranches(t *testing.T) {
	v := newFakeVCS()
	v.branches = []remote.Branch{{Name: "main", IsHead: true}, {Name: "origin/main", IsRemote: true}}
	o, _, _ := newTestOverlay(v, "/p")

	got, err := o.ListBranches(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || !got[0].IsHead {
		t.Errorf("unexpected branches %v", got)
	}
}

func Test_DiffPath(t *testing.T) {
	if got := DiffPath("a.go", false); got != "diff:a.go" {
		t.Errorf("expected diff:a.go, got %q", got)
	}
}
