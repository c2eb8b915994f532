package tools

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/workspace-mcp/buffer"
	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/remote"
	"github.com/lexandro/workspace-mcp/terminal"
)

// FormatTree renders the loaded part of the project tree, one entry per
// line, indented by depth. Directories end with "/"; unloaded directories
// are marked so callers know to expand them. Status maps an absolute path
// to its VCS status letter.
func FormatTree(project string, roots []*filetree.Node, status map[string]string) string {
	if project == "" {
		return "No project open."
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s ──\n", project))
	if len(roots) == 0 {
		builder.WriteString("  (empty)\n")
		return builder.String()
	}
	writeNodes(&builder, roots, 1, status)
	return builder.String()
}

func writeNodes(builder *strings.Builder, nodes []*filetree.Node, depth int, status map[string]string) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		mark := "  "
		if s, ok := status[n.Path]; ok {
			mark = s + " "
		}
		if n.IsDir() {
			suffix := ""
			if !n.IsLoaded {
				suffix = "  …"
			}
			builder.WriteString(fmt.Sprintf("%s%s%s/%s\n", indent, mark, n.Name, suffix))
			writeNodes(builder, n.Children, depth+1, status)
			continue
		}
		size := ""
		if n.Size != nil {
			size = fmt.Sprintf("  (%s)", formatFileSize(*n.Size))
		}
		builder.WriteString(fmt.Sprintf("%s%s%s%s\n", indent, mark, n.Name, size))
	}
}

// StatusLetters maps each status entry to a one-letter marker keyed by
// absolute path. Staged entries win over unstaged ones for the same path.
func StatusLetters(repoPath string, entries []remote.StatusEntry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		path := filepath.Join(repoPath, filepath.FromSlash(e.File))
		if _, ok := out[path]; ok && !e.Staged {
			continue
		}
		out[path] = statusLetter(e.Status)
	}
	return out
}

func statusLetter(s remote.Status) string {
	switch s {
	case remote.StatusModified:
		return "M"
	case remote.StatusAdded:
		return "A"
	case remote.StatusDeleted:
		return "D"
	case remote.StatusRenamed:
		return "R"
	case remote.StatusCopied:
		return "C"
	case remote.StatusUntracked:
		return "?"
	case remote.StatusConflicted:
		return "!"
	default:
		return " "
	}
}

// FormatBuffers lists open buffers in insertion order, marking the active
// one with "*" and dirty ones with "●".
func FormatBuffers(buffers []buffer.OpenFile, active string) string {
	if len(buffers) == 0 {
		return "No open files."
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%d open files:\n\n", len(buffers)))
	for _, f := range buffers {
		activeMark := " "
		if f.Path == active {
			activeMark = "*"
		}
		dirtyMark := " "
		if f.IsDirty {
			dirtyMark = "●"
		}
		kind := ""
		if f.Virtual {
			kind = ", virtual"
		}
		builder.WriteString(fmt.Sprintf("%s%s %s  (%s%s, cursor %d:%d)\n",
			activeMark, dirtyMark, f.Path, f.Language, kind, f.Cursor.Line+1, f.Cursor.Column+1))
	}
	return builder.String()
}

// FormatFileResults formats quick-open results.
func FormatFileResults(results []remote.FileMatch) string {
	if len(results) == 0 {
		return "No files matched."
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(results)))
	for _, r := range results {
		builder.WriteString(fmt.Sprintf("  %s  (%s)\n", r.RelativePath, r.Language))
	}
	return builder.String()
}

// FormatSearchResults formats find-in-files results grouped by file.
func FormatSearchResults(results []remote.ContentMatch) string {
	if len(results) == 0 {
		return "No matches found."
	}
	total := 0
	for _, r := range results {
		total += len(r.Lines)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d matches in %d files:\n\n", total, len(results)))
	for i, r := range results {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("── %s ──\n", r.RelativePath))
		for _, l := range r.Lines {
			builder.WriteString(fmt.Sprintf("  %d: %s\n", l.Line, l.Text))
		}
	}
	return builder.String()
}

// FormatFileContent formats a buffer's content with line numbers.
func FormatFileContent(filePath string, content string) string {
	lines := strings.Split(content, "\n")
	lineCount := len(lines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s (%d lines) ──\n", filePath, lineCount))

	width := len(fmt.Sprintf("%d", lineCount))
	for i, line := range lines {
		builder.WriteString(fmt.Sprintf("%*d│ %s\n", width, i+1, line))
	}
	return builder.String()
}

// FormatStatusEntries lists changed files, staged first.
func FormatStatusEntries(branch string, entries []remote.StatusEntry) string {
	var builder strings.Builder
	if branch != "" {
		builder.WriteString(fmt.Sprintf("On branch %s\n", branch))
	}
	if len(entries) == 0 {
		builder.WriteString("Working tree clean.\n")
		return builder.String()
	}

	var staged, unstaged []remote.StatusEntry
	for _, e := range entries {
		if e.Staged {
			staged = append(staged, e)
		} else {
			unstaged = append(unstaged, e)
		}
	}
	writeGroup := func(title string, group []remote.StatusEntry) {
		if len(group) == 0 {
			return
		}
		builder.WriteString(fmt.Sprintf("\n%s (%d):\n", title, len(group)))
		for _, e := range group {
			builder.WriteString(fmt.Sprintf("  %s %s\n", statusLetter(e.Status), e.File))
		}
	}
	writeGroup("Staged", staged)
	writeGroup("Changes", unstaged)
	return builder.String()
}

// FormatBranches lists branches, marking the checked out one.
func FormatBranches(branches []remote.Branch) string {
	if len(branches) == 0 {
		return "No branches."
	}
	var builder strings.Builder
	for _, b := range branches {
		mark := " "
		if b.IsHead {
			mark = "*"
		}
		name := b.Name
		if b.IsRemote {
			name = "remotes/" + name
		}
		builder.WriteString(fmt.Sprintf("%s %s\n", mark, name))
	}
	return builder.String()
}

// FormatTabs lists terminal tabs, marking the active one.
func FormatTabs(tabs []terminal.Tab) string {
	var builder strings.Builder
	for _, tab := range tabs {
		mark := " "
		if tab.Active {
			mark = "*"
		}
		builder.WriteString(fmt.Sprintf("%s [%s] %s  (%s)\n", mark, tab.ID, tab.Name, tab.Shell))
	}
	return builder.String()
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
