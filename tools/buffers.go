package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/workspace-mcp/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// EditArgs defines the input parameters for the workspace_edit tool.
type EditArgs struct {
	Path    string `json:"path" jsonschema:"Path of an open file, absolute or relative to the project root"`
	Content string `json:"content" jsonschema:"The complete new content of the buffer"`
	Line    *int   `json:"line,omitempty" jsonschema:"Optional 1-based cursor line to record"`
	Column  *int   `json:"column,omitempty" jsonschema:"Optional 1-based cursor column to record"`
	Save    bool   `json:"save,omitempty" jsonschema:"Write the buffer to disk after editing"`
}

// BuffersArgs defines the input parameters for the workspace_buffers tool.
type BuffersArgs struct {
	Activate string `json:"activate,omitempty" jsonschema:"Optional path of an open buffer to make active first"`
}

// BufferHandler holds the dependencies for the open-file tools.
type BufferHandler struct {
	Store  *workspace.Store
	Logger *slog.Logger
}

// Open processes a workspace_open request.
func (h *BufferHandler) Open(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	if args.Path == "" {
		h.Logger.Warn("workspace_open called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path := resolvePath(h.Store.ProjectPath(), args.Path)
	if err := h.Store.Open(ctx, path); err != nil {
		h.Logger.Error("workspace_open failed", "path", path, "error", err)
		return errorResult("Error opening %s: %v", path, err), nil, nil
	}
	f, ok := h.Store.Buffer(path)
	if !ok {
		return errorResult("File closed while opening: %s", path), nil, nil
	}
	h.Logger.Info("workspace_open", "path", path, "language", f.Language, "elapsed", time.Since(start))
	return textResult(FormatFileContent(path, f.Content)), nil, nil
}

// Edit processes a workspace_edit request.
func (h *BufferHandler) Edit(ctx context.Context, req *mcp.CallToolRequest, args EditArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path := resolvePath(h.Store.ProjectPath(), args.Path)

	dirty, err := h.Store.EditContent(path, args.Content)
	if err != nil {
		if errors.Is(err, workspace.ErrNotOpen) {
			return errorResult("File is not open: %s (use workspace_open first)", path), nil, nil
		}
		return errorResult("Error editing %s: %v", path, err), nil, nil
	}
	if args.Line != nil || args.Column != nil {
		line, column := 1, 1
		if args.Line != nil {
			line = *args.Line
		}
		if args.Column != nil {
			column = *args.Column
		}
		if err := h.Store.SetCursor(path, line-1, column-1); err != nil {
			return errorResult("Error setting cursor: %v", err), nil, nil
		}
	}

	if args.Save {
		if err := h.Store.Save(ctx, path); err != nil {
			h.Logger.Error("workspace_edit save failed", "path", path, "error", err)
			return errorResult("Edited but not saved %s: %v", path, err), nil, nil
		}
		dirty = false
		if f, ok := h.Store.Buffer(path); ok {
			dirty = f.IsDirty
		}
	}

	h.Logger.Info("workspace_edit", "path", path, "bytes", len(args.Content), "dirty", dirty, "saved", args.Save)
	state := "clean"
	if dirty {
		state = "modified"
	}
	return textResult(fmt.Sprintf("Updated %s (%s)", path, state)), nil, nil
}

// Save processes a workspace_save request.
func (h *BufferHandler) Save(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, any, error) {
	path := h.Store.ActiveFilePath()
	if args.Path != "" {
		path = resolvePath(h.Store.ProjectPath(), args.Path)
	}
	if path == "" {
		return errorResult("Error: path parameter is required when no file is active"), nil, nil
	}
	if err := h.Store.Save(ctx, path); err != nil {
		h.Logger.Error("workspace_save failed", "path", path, "error", err)
		return errorResult("Error saving %s: %v", path, err), nil, nil
	}
	h.Logger.Info("workspace_save", "path", path)
	return textResult("Saved " + path), nil, nil
}

// Close processes a workspace_close request.
func (h *BufferHandler) Close(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path := resolvePath(h.Store.ProjectPath(), args.Path)
	if !h.Store.Close(path) {
		return errorResult("File is not open: %s", path), nil, nil
	}
	active := h.Store.ActiveFilePath()
	h.Logger.Info("workspace_close", "path", path, "active", active)
	if active == "" {
		return textResult("Closed " + path + ". No files open."), nil, nil
	}
	return textResult("Closed " + path + ". Active: " + active), nil, nil
}

// List processes a workspace_buffers request.
func (h *BufferHandler) List(ctx context.Context, req *mcp.CallToolRequest, args BuffersArgs) (*mcp.CallToolResult, any, error) {
	if args.Activate != "" {
		path := resolvePath(h.Store.ProjectPath(), args.Activate)
		if err := h.Store.SetActiveFile(path); err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
	}
	state := h.Store.State()
	return textResult(FormatBuffers(state.Buffers, state.ActiveFilePath)), nil, nil
}

// Preview processes a workspace_preview request.
func (h *BufferHandler) Preview(ctx context.Context, req *mcp.CallToolRequest, args PathArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path := resolvePath(h.Store.ProjectPath(), args.Path)
	target, err := h.Store.OpenPreview(ctx, path)
	if err != nil {
		h.Logger.Error("workspace_preview failed", "path", path, "error", err)
		return errorResult("Error previewing %s: %v", path, err), nil, nil
	}
	f, _ := h.Store.Buffer(target)
	h.Logger.Info("workspace_preview", "path", path, "buffer", target, "bytes", len(f.Content))
	return textResult(fmt.Sprintf("── %s ──\n%s", target, f.Content)), nil, nil
}
