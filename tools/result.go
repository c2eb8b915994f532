// Package tools implements the MCP tool handlers over the workspace
// engine. Handlers never return Go errors: failures become results with
// IsError set, so the client sees the message.
package tools

import (
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// resolvePath makes a tool path absolute. Relative paths are taken from
// the project root.
func resolvePath(project, path string) string {
	if filepath.IsAbs(path) || project == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(project, filepath.FromSlash(path))
}
