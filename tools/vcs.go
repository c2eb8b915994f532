package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lexandro/workspace-mcp/vcs"
	"github.com/lexandro/workspace-mcp/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// VCSStatusArgs defines the input parameters for the vcs_status tool (none required).
type VCSStatusArgs struct{}

// FileArgs is shared by the per-file VCS tools.
type FileArgs struct {
	File string `json:"file" jsonschema:"File path relative to the repository root"`
}

// CommitArgs defines the input parameters for the vcs_commit tool.
type CommitArgs struct {
	Message string `json:"message" jsonschema:"Commit message"`
}

// DiffArgs defines the input parameters for the vcs_diff tool.
type DiffArgs struct {
	File   string `json:"file" jsonschema:"File path relative to the repository root"`
	Staged bool   `json:"staged,omitempty" jsonschema:"Diff the index against HEAD instead of the working tree against the index"`
}

// VCSHandler holds the dependencies for the version control tools.
type VCSHandler struct {
	Overlay *vcs.Overlay
	Store   *workspace.Store
	Logger  *slog.Logger
}

// Status processes a vcs_status request.
func (h *VCSHandler) Status(ctx context.Context, req *mcp.CallToolRequest, args VCSStatusArgs) (*mcp.CallToolResult, any, error) {
	if h.Store.ProjectPath() == "" {
		return errorResult("Error: %v", workspace.ErrNoProject), nil, nil
	}
	if err := h.Overlay.CheckRepository(ctx); err != nil {
		return errorResult("Error checking repository: %v", err), nil, nil
	}
	st := h.Overlay.State()
	if st.Error != "" {
		return errorResult("Error: %s", st.Error), nil, nil
	}
	if !st.IsRepository {
		return textResult("Not a git repository. Use vcs_init to create one."), nil, nil
	}
	h.Logger.Info("vcs_status", "repo", st.RepoPath, "entries", len(st.Entries))
	return textResult(FormatStatusEntries(st.Branch, st.Entries)), nil, nil
}

// Init processes a vcs_init request.
func (h *VCSHandler) Init(ctx context.Context, req *mcp.CallToolRequest, args VCSStatusArgs) (*mcp.CallToolResult, any, error) {
	project := h.Store.ProjectPath()
	if project == "" {
		return errorResult("Error: %v", workspace.ErrNoProject), nil, nil
	}
	if err := h.Overlay.InitRepository(ctx); err != nil {
		h.Logger.Error("vcs_init failed", "project", project, "error", err)
		return errorResult("Error initializing repository: %v", err), nil, nil
	}
	return textResult("Initialized git repository in " + project), nil, nil
}

// Stage processes a vcs_stage request.
func (h *VCSHandler) Stage(ctx context.Context, req *mcp.CallToolRequest, args FileArgs) (*mcp.CallToolResult, any, error) {
	return h.fileOp(ctx, "vcs_stage", "Staged", args.File, h.Overlay.Stage)
}

// Unstage processes a vcs_unstage request.
func (h *VCSHandler) Unstage(ctx context.Context, req *mcp.CallToolRequest, args FileArgs) (*mcp.CallToolResult, any, error) {
	return h.fileOp(ctx, "vcs_unstage", "Unstaged", args.File, h.Overlay.Unstage)
}

// Discard processes a vcs_discard request. Open buffers of the file are
// left as they are; reopening them is up to the caller.
func (h *VCSHandler) Discard(ctx context.Context, req *mcp.CallToolRequest, args FileArgs) (*mcp.CallToolResult, any, error) {
	return h.fileOp(ctx, "vcs_discard", "Discarded changes to", args.File, h.Overlay.DiscardChanges)
}

func (h *VCSHandler) fileOp(ctx context.Context, tool, verb, file string, fn func(context.Context, string) error) (*mcp.CallToolResult, any, error) {
	if file == "" {
		return errorResult("Error: file parameter is required"), nil, nil
	}
	if err := fn(ctx, file); err != nil {
		h.Logger.Error(tool+" failed", "file", file, "error", err)
		return errorResult("Error: %v", err), nil, nil
	}
	h.Logger.Info(tool, "file", file)
	st := h.Overlay.State()
	return textResult(verb + " " + file + "\n\n" + FormatStatusEntries(st.Branch, st.Entries)), nil, nil
}

// Commit processes a vcs_commit request.
func (h *VCSHandler) Commit(ctx context.Context, req *mcp.CallToolRequest, args CommitArgs) (*mcp.CallToolResult, any, error) {
	if err := h.Overlay.Commit(ctx, args.Message); err != nil {
		if errors.Is(err, vcs.ErrEmptyMessage) {
			return errorResult("Error: message parameter is required"), nil, nil
		}
		h.Logger.Error("vcs_commit failed", "error", err)
		return errorResult("Error committing: %v", err), nil, nil
	}
	st := h.Overlay.State()
	h.Logger.Info("vcs_commit", "branch", st.Branch)
	return textResult("Committed.\n\n" + FormatStatusEntries(st.Branch, st.Entries)), nil, nil
}

// Diff processes a vcs_diff request.
func (h *VCSHandler) Diff(ctx context.Context, req *mcp.CallToolRequest, args DiffArgs) (*mcp.CallToolResult, any, error) {
	if args.File == "" {
		return errorResult("Error: file parameter is required"), nil, nil
	}
	path, err := h.Overlay.OpenDiff(ctx, args.File, args.Staged)
	if err != nil {
		h.Logger.Error("vcs_diff failed", "file", args.File, "error", err)
		return errorResult("Error: %v", err), nil, nil
	}
	f, ok := h.Store.Buffer(path)
	if !ok {
		return errorResult("Error: %v", workspace.ErrNoProject), nil, nil
	}
	if f.Content == "" {
		return textResult("No changes in " + args.File), nil, nil
	}
	return textResult(f.Content), nil, nil
}

// Branches processes a vcs_branches request.
func (h *VCSHandler) Branches(ctx context.Context, req *mcp.CallToolRequest, args VCSStatusArgs) (*mcp.CallToolResult, any, error) {
	branches, err := h.Overlay.ListBranches(ctx)
	if err != nil {
		h.Logger.Error("vcs_branches failed", "error", err)
		return errorResult("Error listing branches: %v", err), nil, nil
	}
	return textResult(FormatBranches(branches)), nil, nil
}
