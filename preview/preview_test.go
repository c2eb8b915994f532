package preview

import (
	"strings"
	"testing"
)

func Test_Render_HeadingAndTable(t *testing.T) {
	src := "# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	html, err := Render(src)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, `<h1 id="title">Title</h1>`) {
		t.Errorf("expected heading with id, got %s", html)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("expected GFM table, got %s", html)
	}
}

func Test_Path_RoundTrip(t *testing.T) {
	p := Path("/p/README.md")
	if p != "preview:/p/README.md" || !IsPreview(p) {
		t.Errorf("unexpected preview path %q", p)
	}
	if IsPreview("/p/README.md") {
		t.Error("plain path should not be a preview")
	}
}

func Test_Supported(t *testing.T) {
	if !Supported("markdown") || Supported("go") {
		t.Error("only markdown should be previewable")
	}
}
