// Package terminal tracks the terminal tabs shown to the user. Process
// creation and byte streams belong to the collaborator; this package only
// keeps tab identity, order and activation.
package terminal

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lexandro/workspace-mcp/metrics"
	"github.com/lexandro/workspace-mcp/remote"
)

// FallbackShell is used when the collaborator cannot list shells.
const FallbackShell = "/bin/sh"

// Tab describes one terminal tab.
type Tab struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Shell  string `json:"shell"`
}

// Options configures a Registry.
type Options struct {
	Shells remote.ShellLister
	// DefaultShell is moved to the front of the shell list when the
	// collaborator reports it.
	DefaultShell string
	Logger       *slog.Logger
}

// Registry is an ordered, never-empty set of tabs with at most one active.
// Tab ids are never reused within a process.
type Registry struct {
	logger *slog.Logger
	shells []string

	mu     sync.Mutex
	tabs   []Tab
	nextID int
}

// New fetches the available shells once and opens the first tab with the
// default shell.
func New(ctx context.Context, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger: logger,
		shells: loadShells(ctx, opts.Shells, opts.DefaultShell, logger),
		nextID: 1,
	}
	r.tabs = []Tab{r.newTab(r.shells[0])}
	r.tabs[0].Active = true
	metrics.SetTerminalTabs(len(r.tabs))
	return r
}

func loadShells(ctx context.Context, lister remote.ShellLister, preferred string, logger *slog.Logger) []string {
	if lister == nil {
		return []string{FallbackShell}
	}
	shells, err := remote.CallResult(ctx, "list_shells", "", lister.ListAvailableShells)
	if err != nil || len(shells) == 0 {
		logger.Warn("using fallback shell", "shell", FallbackShell, "error", err)
		return []string{FallbackShell}
	}
	shells = append([]string{}, shells...)
	for i, s := range shells {
		if s == preferred && i > 0 {
			copy(shells[1:i+1], shells[:i])
			shells[0] = preferred
			break
		}
	}
	return shells
}

// Shells returns the cached shell list. The first entry is the default.
func (r *Registry) Shells() []string {
	return append([]string{}, r.shells...)
}

// Tabs returns a copy of the tabs in display order.
func (r *Registry) Tabs() []Tab {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Tab{}, r.tabs...)
}

// Active returns the active tab, if any.
func (r *Registry) Active() (Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tabs {
		if t.Active {
			return t, true
		}
	}
	return Tab{}, false
}

// AddTab appends a new active tab and returns its id. An empty shell
// selects the default shell.
func (r *Registry) AddTab(shell string) string {
	if shell == "" {
		shell = r.shells[0]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tabs {
		r.tabs[i].Active = false
	}
	tab := r.newTab(shell)
	tab.Active = true
	r.tabs = append(r.tabs, tab)
	metrics.SetTerminalTabs(len(r.tabs))
	r.logger.Info("terminal tab added", "id", tab.ID, "shell", shell)
	return tab.ID
}

// RemoveTab removes a tab. The last remaining tab and unknown ids are
// refused. When the removed tab was active, the tab that moved into its
// slot is activated, or the new last tab.
func (r *Registry) RemoveTab(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tabs) == 1 {
		return false
	}
	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}
	wasActive := r.tabs[idx].Active
	r.tabs = append(r.tabs[:idx], r.tabs[idx+1:]...)
	if wasActive {
		r.tabs[min(idx, len(r.tabs)-1)].Active = true
	}
	metrics.SetTerminalTabs(len(r.tabs))
	r.logger.Info("terminal tab removed", "id", id)
	return true
}

// SetActiveTab activates the tab with the given id. Unknown ids leave the
// current activation as it is.
func (r *Registry) SetActiveTab(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(id) < 0 {
		return false
	}
	for i := range r.tabs {
		r.tabs[i].Active = r.tabs[i].ID == id
	}
	return true
}

func (r *Registry) indexOf(id string) int {
	for i, t := range r.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) newTab(shell string) Tab {
	id := strconv.Itoa(r.nextID)
	r.nextID++
	return Tab{ID: id, Name: "Terminal " + id, Shell: shell}
}
