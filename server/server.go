package server

import (
	"github.com/lexandro/workspace-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers groups the tool handlers registered by Setup.
type Handlers struct {
	Project  *tools.ProjectHandler
	Buffers  *tools.BufferHandler
	Search   *tools.SearchHandler
	VCS      *tools.VCSHandler
	Terminal *tools.TerminalHandler
	Status   *tools.StatusHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "workspace-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server keeps an editor workspace: a project tree, open file buffers with unsaved edits, git status and terminal tabs. State survives restarts.

Typical flow:
- workspace_open_project to select a project root, then workspace_tree and workspace_expand to browse it
- workspace_open to load a file into a buffer, workspace_edit to change it, workspace_save to write it
- workspace_find_files and workspace_search to locate files and text
- vcs_status, vcs_stage, vcs_commit for git work

Relative paths are resolved against the project root.`,
		},
	)

	registerProjectTools(mcpServer, h.Project)
	registerBufferTools(mcpServer, h.Buffers)
	registerSearchTools(mcpServer, h.Search)
	registerVCSTools(mcpServer, h.VCS)
	registerTerminalTools(mcpServer, h.Terminal)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "workspace_status",
		Description: "Show workspace status: project, loaded tree size, open and modified files, git branch, terminal tabs, memory usage and uptime.",
	}, h.Status.Handle)

	return mcpServer
}

func registerProjectTools(s *mcp.Server, h *tools.ProjectHandler) {
	mcp.AddTool(s, &mcp.Tool{
		Name: "workspace_open_project",
		Description: `Select a project root directory and load its top level. Open files outside the new root are closed without saving.

Returns the tree; directories marked with "…" are not loaded yet.`,
	}, h.OpenProject)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_tree",
		Description: "Show the loaded part of the project tree with git status markers (M modified, A added, D deleted, ? untracked, ! conflicted). Set refresh to reload it from disk.",
	}, h.Tree)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_expand",
		Description: "Load the direct children of a directory into the tree and show them.",
	}, h.Expand)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_create",
		Description: "Create an empty file, or a directory with directory=true. An existing path is never overwritten.",
	}, h.Create)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_rename",
		Description: "Rename or move a file or directory. Open buffers follow the move. An existing target is never replaced.",
	}, h.Rename)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_delete",
		Description: "Delete a file or a directory tree. Open buffers below the path are closed.",
	}, h.Delete)
}

func registerBufferTools(s *mcp.Server, h *tools.BufferHandler) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_open",
		Description: `Open a file in a buffer and make it active. Returns numbered lines (format: "N│ content"). A file that is already open is activated and its buffer content, including unsaved edits, is returned.`,
	}, h.Open)

	mcp.AddTool(s, &mcp.Tool{
		Name: "workspace_edit",
		Description: `Replace the content of an open buffer. The buffer is marked modified unless the new content equals the last saved content.

Optionally record the cursor position (1-based line and column) and save in the same call.`,
	}, h.Edit)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_save",
		Description: "Write an open buffer to disk. Without a path the active buffer is saved. On failure the buffer keeps its edits.",
	}, h.Save)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_close",
		Description: "Close an open buffer, discarding unsaved edits. The earliest opened remaining buffer becomes active.",
	}, h.Close)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_buffers",
		Description: "List open buffers in the order they were opened. * marks the active buffer, ● a modified one. Set activate to switch the active buffer first.",
	}, h.List)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "workspace_preview",
		Description: "Render a Markdown file to HTML in a preview buffer. Unsaved edits of an open buffer are included.",
	}, h.Preview)
}

func registerSearchTools(s *mcp.Server, h *tools.SearchHandler) {
	mcp.AddTool(s, &mcp.Tool{
		Name: "workspace_find_files",
		Description: `Find files in the project by name.

Query formats:
  - fuzzy: "srvhnd" matches server/handler.go, best matches first
  - glob: "**/*.go", "src/**/*.ts"
  - empty: list files`,
	}, h.FindFiles)

	mcp.AddTool(s, &mcp.Tool{
		Name: "workspace_search",
		Description: `Search file contents across the project using a full-text index.

Query formats:
  - Plain text: any of the words (e.g., "handleRequest")
  - "quoted text": exact phrase (e.g., "\"func main\"")
  - /regex/: regular expression (e.g., "/func\s+\w+Handler/")`,
	}, h.Search)
}

func registerVCSTools(s *mcp.Server, h *tools.VCSHandler) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_status",
		Description: "Show the git branch and changed files of the project, staged changes first.",
	}, h.Status)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_init",
		Description: "Initialize a git repository at the project root.",
	}, h.Init)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_stage",
		Description: "Stage a file's changes.",
	}, h.Stage)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_unstage",
		Description: "Remove a file's changes from the index, keeping the working tree.",
	}, h.Unstage)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_commit",
		Description: "Commit the staged changes with a message.",
	}, h.Commit)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_discard",
		Description: "Discard a file's working tree changes. Untracked files are deleted.",
	}, h.Discard)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_diff",
		Description: "Show the unified diff of a file and open it in a diff buffer. Set staged to diff the index against HEAD.",
	}, h.Diff)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vcs_branches",
		Description: "List local and remote-tracking branches; * marks the checked out one.",
	}, h.Branches)
}

func registerTerminalTools(s *mcp.Server, h *tools.TerminalHandler) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "terminal_tabs",
		Description: "List terminal tabs and the available shells. * marks the active tab.",
	}, h.Tabs)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "terminal_add",
		Description: "Open a new terminal tab and make it active.",
	}, h.Add)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "terminal_remove",
		Description: "Close a terminal tab. The last tab cannot be closed.",
	}, h.Remove)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "terminal_activate",
		Description: "Make a terminal tab active.",
	}, h.Activate)
}
