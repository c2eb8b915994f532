package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/vcs"
	"github.com/lexandro/workspace-mcp/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// OpenProjectArgs defines the input parameters for the workspace_open_project tool.
type OpenProjectArgs struct {
	Path string `json:"path" jsonschema:"Absolute path of the project root directory"`
}

// TreeArgs defines the input parameters for the workspace_tree tool.
type TreeArgs struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"Reload the whole tree from disk first, collapsing expanded directories"`
}

// PathArgs is shared by tools that take a single path.
type PathArgs struct {
	Path string `json:"path" jsonschema:"File or directory path, absolute or relative to the project root"`
}

// CreateArgs defines the input parameters for the workspace_create tool.
type CreateArgs struct {
	Path      string `json:"path" jsonschema:"Path of the new entry, absolute or relative to the project root"`
	Directory bool   `json:"directory,omitempty" jsonschema:"Create a directory instead of a file"`
}

// RenameArgs defines the input parameters for the workspace_rename tool.
type RenameArgs struct {
	OldPath string `json:"oldPath" jsonschema:"Current path, absolute or relative to the project root"`
	NewPath string `json:"newPath" jsonschema:"New path; may be in another directory"`
}

// ProjectHandler holds the dependencies for the project tree tools.
type ProjectHandler struct {
	Store  *workspace.Store
	VCS    *vcs.Overlay
	Logger *slog.Logger
}

// OpenProject processes a workspace_open_project request.
func (h *ProjectHandler) OpenProject(ctx context.Context, req *mcp.CallToolRequest, args OpenProjectArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	if args.Path == "" {
		h.Logger.Warn("workspace_open_project called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}

	if err := h.Store.SetProject(ctx, args.Path); err != nil {
		return errorResult("Error: %v", err), nil, nil
	}
	if err := h.VCS.CheckRepository(ctx); err != nil {
		h.Logger.Warn("repository check failed", "project", args.Path, "error", err)
	}

	state := h.Store.State()
	h.Logger.Info("workspace_open_project", "path", state.CurrentProjectPath, "elapsed", time.Since(start))
	if state.Error != "" {
		return errorResult("Project selected but could not be loaded: %s", state.Error), nil, nil
	}
	return textResult(h.formatTree(state)), nil, nil
}

// Tree processes a workspace_tree request.
func (h *ProjectHandler) Tree(ctx context.Context, req *mcp.CallToolRequest, args TreeArgs) (*mcp.CallToolResult, any, error) {
	if args.Refresh {
		if err := h.Store.RefreshTree(ctx); err != nil {
			return errorResult("Error refreshing tree: %v", err), nil, nil
		}
		h.refreshStatus(ctx)
	}
	return textResult(h.formatTree(h.Store.State())), nil, nil
}

// Expand processes a workspace_expand request.
func (h *ProjectHandler) Expand(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path := resolvePath(h.Store.ProjectPath(), args.Path)
	if err := h.Store.ExpandDirectory(ctx, path); err != nil {
		h.Logger.Error("workspace_expand failed", "path", path, "error", err)
		return errorResult("Error expanding %s: %v", path, err), nil, nil
	}

	state := h.Store.State()
	node := filetree.Find(state.Roots, path)
	if node == nil {
		return textResult(h.formatTree(state)), nil, nil
	}
	return textResult(FormatTree(path, node.Children, h.statusLetters())), nil, nil
}

// Create processes a workspace_create request.
func (h *ProjectHandler) Create(ctx context.Context, req *mcp.CallToolRequest, args CreateArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	kind := filetree.KindFile
	if args.Directory {
		kind = filetree.KindDirectory
	}
	path := resolvePath(h.Store.ProjectPath(), args.Path)
	if err := h.Store.CreateEntry(ctx, path, kind); err != nil {
		h.Logger.Error("workspace_create failed", "path", path, "error", err)
		return errorResult("Error creating %s: %v", path, err), nil, nil
	}
	h.refreshStatus(ctx)
	h.Logger.Info("workspace_create", "path", path, "kind", kind)
	return textResult("Created " + string(kind) + " " + path), nil, nil
}

// Rename processes a workspace_rename request.
func (h *ProjectHandler) Rename(ctx context.Context, req *mcp.CallToolRequest, args RenameArgs) (*mcp.CallToolResult, any, error) {
	if args.OldPath == "" || args.NewPath == "" {
		return errorResult("Error: oldPath and newPath parameters are required"), nil, nil
	}
	project := h.Store.ProjectPath()
	oldPath := resolvePath(project, args.OldPath)
	newPath := resolvePath(project, args.NewPath)
	if err := h.Store.RenameOrMove(ctx, oldPath, newPath); err != nil {
		h.Logger.Error("workspace_rename failed", "from", oldPath, "to", newPath, "error", err)
		return errorResult("Error renaming %s: %v", oldPath, err), nil, nil
	}
	h.refreshStatus(ctx)
	h.Logger.Info("workspace_rename", "from", oldPath, "to", newPath)
	return textResult("Renamed " + oldPath + " to " + newPath), nil, nil
}

// Delete processes a workspace_delete request.
func (h *ProjectHandler) Delete(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path := resolvePath(h.Store.ProjectPath(), args.Path)
	if err := h.Store.Delete(ctx, path); err != nil {
		h.Logger.Error("workspace_delete failed", "path", path, "error", err)
		return errorResult("Error deleting %s: %v", path, err), nil, nil
	}
	h.refreshStatus(ctx)
	h.Logger.Info("workspace_delete", "path", path)
	return textResult("Deleted " + path), nil, nil
}

func (h *ProjectHandler) formatTree(state workspace.State) string {
	return FormatTree(state.CurrentProjectPath, state.Roots, h.statusLetters())
}

func (h *ProjectHandler) statusLetters() map[string]string {
	st := h.VCS.State()
	if !st.IsRepository {
		return nil
	}
	return StatusLetters(st.RepoPath, st.Entries)
}

// refreshStatus updates the VCS overlay after a tree mutation when the
// project is a repository. Failures are recorded by the overlay.
func (h *ProjectHandler) refreshStatus(ctx context.Context) {
	if !h.VCS.State().IsRepository {
		return
	}
	if err := h.VCS.RefreshStatus(ctx); err != nil {
		h.Logger.Debug("status refresh failed", "error", err)
	}
}
