package language

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// Plaintext is the language id for buffers with no better match.
const Plaintext = "plaintext"

// ExtensionToLanguage maps file extensions (without dot) to editor
// language ids.
var ExtensionToLanguage = map[string]string{
	"go":  "go",
	"mod": "go.mod", "sum": "go.sum",
	"js": "javascript", "jsx": "javascript", "mjs": "javascript", "cjs": "javascript",
	"ts": "typescript", "tsx": "typescript", "mts": "typescript", "cts": "typescript",
	"py": "python", "pyi": "python", "pyw": "python",
	"rs":   "rust",
	"java": "java", "kt": "kotlin", "kts": "kotlin",
	"c": "c", "h": "c",
	"cpp": "cpp", "cc": "cpp", "cxx": "cpp", "hpp": "cpp", "hxx": "cpp",
	"cs":    "csharp",
	"swift": "swift",
	"dart":  "dart",
	"rb":    "ruby",
	"php":   "php",
	"sh": "shell", "bash": "shell", "zsh": "shell", "fish": "shell",
	"ps1": "powershell", "psm1": "powershell",
	"html": "html", "htm": "html",
	"css": "css", "scss": "scss", "sass": "scss", "less": "less",
	"json": "json", "jsonc": "json",
	"yaml": "yaml", "yml": "yaml",
	"toml": "toml",
	"xml":  "xml", "xsl": "xml", "svg": "xml",
	"ini": "ini",
	"md":  "markdown", "mdx": "markdown",
	"sql":     "sql",
	"graphql": "graphql", "gql": "graphql",
	"proto":  "protobuf",
	"tf":     "hcl",
	"lua":    "lua",
	"r":      "r",
	"scala":  "scala",
	"ex":     "elixir", "exs": "elixir",
	"hs":     "haskell",
	"zig":    "zig",
	"vue":    "vue", "svelte": "svelte",
	"txt":    Plaintext,
	"csv":    "csv",
	"bat":    "bat", "cmd": "bat",
	"diff":   "diff", "patch": "diff",
}

var fileNameToLanguage = map[string]string{
	"makefile":    "makefile",
	"gnumakefile": "makefile",
	"dockerfile":  "dockerfile",
	"gemfile":     "ruby",
	"rakefile":    "ruby",
	".gitignore":  "ignore",
	".env":        "dotenv",
	"go.mod":      "go.mod",
}

// Detect returns the editor language id for a path. Known extensions and
// file names are mapped directly; anything else falls back to the
// syntax highlighter's lexer registry, then to Plaintext.
func Detect(filePath string) string {
	base := strings.ToLower(filepath.Base(filePath))
	if lang, ok := fileNameToLanguage[base]; ok {
		return lang
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if lang, ok := ExtensionToLanguage[ext]; ok {
		return lang
	}
	if lexer := lexers.Match(filepath.Base(filePath)); lexer != nil {
		return strings.ToLower(lexer.Config().Name)
	}
	return Plaintext
}
