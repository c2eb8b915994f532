// Package preview renders Markdown buffers to HTML for read-only preview
// buffers.
package preview

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Prefix marks the path of a preview buffer.
const Prefix = "preview:"

// Language is the language id given to preview buffers.
const Language = "html"

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		)
	})
	return markdownInstance
}

// Path returns the preview buffer path for a source path.
func Path(source string) string {
	return Prefix + source
}

// IsPreview reports whether path names a preview buffer.
func IsPreview(path string) bool {
	return strings.HasPrefix(path, Prefix)
}

// Supported reports whether a buffer of the given language can be
// previewed.
func Supported(language string) bool {
	return language == "markdown"
}

// Render converts Markdown source to an HTML fragment.
func Render(source string) (string, error) {
	var out bytes.Buffer
	if err := markdown().Convert([]byte(source), &out); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out.String(), nil
}
