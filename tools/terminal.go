package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lexandro/workspace-mcp/terminal"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TabsArgs defines the input parameters for the terminal_tabs tool (none required).
type TabsArgs struct{}

// AddTabArgs defines the input parameters for the terminal_add tool.
type AddTabArgs struct {
	Shell string `json:"shell,omitempty" jsonschema:"Shell to run in the new tab; defaults to the first available shell"`
}

// TabArgs is shared by the per-tab tools.
type TabArgs struct {
	ID string `json:"id" jsonschema:"Tab identifier as listed by terminal_tabs"`
}

// TerminalHandler holds the dependencies for the terminal tab tools.
type TerminalHandler struct {
	Registry *terminal.Registry
	Logger   *slog.Logger
}

// Tabs processes a terminal_tabs request.
func (h *TerminalHandler) Tabs(ctx context.Context, req *mcp.CallToolRequest, args TabsArgs) (*mcp.CallToolResult, any, error) {
	text := FormatTabs(h.Registry.Tabs()) + "\nShells: " + strings.Join(h.Registry.Shells(), ", ") + "\n"
	return textResult(text), nil, nil
}

// Add processes a terminal_add request.
func (h *TerminalHandler) Add(ctx context.Context, req *mcp.CallToolRequest, args AddTabArgs) (*mcp.CallToolResult, any, error) {
	id := h.Registry.AddTab(args.Shell)
	h.Logger.Info("terminal_add", "id", id, "shell", args.Shell)
	return textResult("Opened tab " + id + "\n\n" + FormatTabs(h.Registry.Tabs())), nil, nil
}

// Remove processes a terminal_remove request.
func (h *TerminalHandler) Remove(ctx context.Context, req *mcp.CallToolRequest, args TabArgs) (*mcp.CallToolResult, any, error) {
	if args.ID == "" {
		return errorResult("Error: id parameter is required"), nil, nil
	}
	if !h.Registry.RemoveTab(args.ID) {
		return errorResult("Tab %s was not removed: it does not exist or is the last tab", args.ID), nil, nil
	}
	h.Logger.Info("terminal_remove", "id", args.ID)
	return textResult("Closed tab " + args.ID + "\n\n" + FormatTabs(h.Registry.Tabs())), nil, nil
}

// Activate processes a terminal_activate request.
func (h *TerminalHandler) Activate(ctx context.Context, req *mcp.CallToolRequest, args TabArgs) (*mcp.CallToolResult, any, error) {
	if args.ID == "" {
		return errorResult("Error: id parameter is required"), nil, nil
	}
	if !h.Registry.SetActiveTab(args.ID) {
		return errorResult("No tab with id %s", args.ID), nil, nil
	}
	return textResult(FormatTabs(h.Registry.Tabs())), nil, nil
}
