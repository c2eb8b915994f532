package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/terminal"
	"github.com/lexandro/workspace-mcp/vcs"
	"github.com/lexandro/workspace-mcp/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the workspace_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Store     *workspace.Store
	VCS       *vcs.Overlay
	Terminal  *terminal.Registry
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a workspace_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	state := h.Store.State()
	vcsState := h.VCS.State()
	uptime := time.Since(h.StartTime)
	dirty := 0
	for _, f := range state.Buffers {
		if f.IsDirty {
			dirty++
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("workspace_status",
		"project", state.CurrentProjectPath,
		"buffers", len(state.Buffers),
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	project := state.CurrentProjectPath
	if project == "" {
		project = "(none)"
	}
	builder.WriteString("=== workspace-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Project: %s\n", project))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Loaded tree entries: %d\n", filetree.Count(state.Roots)))
	builder.WriteString(fmt.Sprintf("Open files: %d (%d modified)\n", len(state.Buffers), dirty))
	if state.ActiveFilePath != "" {
		builder.WriteString(fmt.Sprintf("Active file: %s\n", state.ActiveFilePath))
	}
	if vcsState.IsRepository {
		builder.WriteString(fmt.Sprintf("Git: branch %s, %d changes\n", vcsState.Branch, len(vcsState.Entries)))
	} else {
		builder.WriteString("Git: not a repository\n")
	}
	if active, ok := h.Terminal.Active(); ok {
		builder.WriteString(fmt.Sprintf("Terminal tabs: %d (active: %s)\n", len(h.Terminal.Tabs()), active.Name))
	}
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	if state.Loading || vcsState.Loading {
		builder.WriteString("\nA load is in progress.\n")
	}
	if state.Error != "" {
		builder.WriteString(fmt.Sprintf("\nLast workspace error: %s\n", state.Error))
	}
	if vcsState.Error != "" {
		builder.WriteString(fmt.Sprintf("Last git error: %s\n", vcsState.Error))
	}

	return textResult(builder.String()), nil, nil
}
