package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/workspace-mcp/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FindFilesArgs defines the input parameters for the workspace_find_files tool.
type FindFilesArgs struct {
	Query      string `json:"query,omitempty" jsonschema:"Fuzzy file name query (e.g. srvhnd) or glob pattern (e.g. **/*.go). Empty lists files"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default and upper bound from configuration)"`
}

// SearchArgs defines the input parameters for the workspace_search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Search query. Plain words match any word, quoted text matches a phrase, /regex/ matches a regular expression"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of file results to return"`
}

// SearchHandler holds the dependencies for the search tools.
type SearchHandler struct {
	Store  *workspace.Store
	Logger *slog.Logger
}

// FindFiles processes a workspace_find_files request.
func (h *SearchHandler) FindFiles(ctx context.Context, req *mcp.CallToolRequest, args FindFilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	results, err := h.Store.SearchFiles(ctx, args.Query, args.MaxResults)
	if err != nil {
		h.Logger.Error("workspace_find_files failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}
	h.Logger.Info("workspace_find_files",
		"query", args.Query,
		"results", len(results),
		"elapsed", time.Since(start),
	)
	return textResult(FormatFileResults(results)), nil, nil
}

// Search processes a workspace_search request.
func (h *SearchHandler) Search(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	if args.Query == "" {
		h.Logger.Warn("workspace_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	results, err := h.Store.SearchContent(ctx, args.Query, args.MaxResults)
	if err != nil {
		h.Logger.Error("workspace_search failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}
	h.Logger.Info("workspace_search",
		"query", args.Query,
		"files", len(results),
		"elapsed", time.Since(start),
	)
	return textResult(FormatSearchResults(results)), nil, nil
}
