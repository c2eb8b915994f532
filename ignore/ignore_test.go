package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Matcher_Hidden_VCSDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	if !matcher.Hidden(filepath.Join(tmpDir, ".git"), true) {
		t.Error("expected .git to be hidden")
	}
	if !matcher.Hidden(filepath.Join(tmpDir, "sub", ".DS_Store"), false) {
		t.Error("expected .DS_Store to be hidden")
	}
}

func Test_Matcher_Hidden_ShowsDependenciesAndBinaries(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	for _, name := range []string{"node_modules", "logo.png", "main.go"} {
		if matcher.Hidden(filepath.Join(tmpDir, name), name == "node_modules") {
			t.Errorf("expected %s to be listed", name)
		}
	}
}

func Test_Matcher_Hidden_RootNeverHidden(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir, CustomPatterns: []string{"*"}})

	if matcher.Hidden(tmpDir, true) {
		t.Error("expected the root to be listed")
	}
	if matcher.Hidden(filepath.Dir(tmpDir), true) {
		t.Error("expected paths outside the root to be left alone")
	}
}

func Test_Matcher_SkipIndex_DefaultPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	tests := []struct {
		path    string
		isDir   bool
		skipped bool
	}{
		{"node_modules/express/index.js", false, true},
		{"app.exe", false, true},
		{"web/app.min.js", false, true},
		{"go.sum", false, true},
		{".git", true, true},
		{"main.go", false, false},
		{"src", true, false},
	}
	for _, tt := range tests {
		got := matcher.SkipIndex(filepath.Join(tmpDir, tt.path), tt.isDir)
		if got != tt.skipped {
			t.Errorf("SkipIndex(%s) = %v, want %v", tt.path, got, tt.skipped)
		}
	}
}

func Test_Matcher_GitignoreIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("*.generated.go\nsecret/\n"), 0644)

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir, RespectGitignore: true})

	if !matcher.Hidden(filepath.Join(tmpDir, "models.generated.go"), false) {
		t.Error("expected .gitignore pattern to hide *.generated.go")
	}
	if !matcher.Hidden(filepath.Join(tmpDir, "secret"), true) {
		t.Error("expected .gitignore pattern to hide secret/")
	}
	if matcher.Hidden(filepath.Join(tmpDir, "main.go"), false) {
		t.Error("expected main.go to be listed")
	}
}

func Test_Matcher_GitignoreDisabled(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("*.log\n"), 0644)

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	if matcher.Hidden(filepath.Join(tmpDir, "run.log"), false) {
		t.Error("expected .gitignore to be ignored when disabled")
	}
}

func Test_Matcher_WorkspaceignoreIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ".workspaceignore"), []byte("*.draft.md\n"), 0644)

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir, RespectGitignore: true})

	if !matcher.Hidden(filepath.Join(tmpDir, "notes.draft.md"), false) {
		t.Error("expected .workspaceignore pattern to hide *.draft.md")
	}
}

func Test_Matcher_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir, RespectGitignore: true})
	target := filepath.Join(tmpDir, "build.out")
	if matcher.Hidden(target, false) {
		t.Fatal("expected build.out to be listed before the ignore file exists")
	}

	gitignorePath := filepath.Join(tmpDir, ".gitignore")
	os.WriteFile(gitignorePath, []byte("*.out\n"), 0644)
	if !matcher.IsIgnoreFile(gitignorePath) {
		t.Fatal("expected .gitignore to be recognised")
	}
	matcher.Reload()

	if !matcher.Hidden(target, false) {
		t.Error("expected build.out to be hidden after reload")
	}
}

func Test_Matcher_CustomPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{
		RootDir:        tmpDir,
		CustomPatterns: []string{"*.custom", "tmp/**"},
	})

	if !matcher.Hidden(filepath.Join(tmpDir, "data", "x.custom"), false) {
		t.Error("expected custom pattern to hide *.custom files")
	}
	if !matcher.Hidden(filepath.Join(tmpDir, "tmp", "a", "b.txt"), false) {
		t.Error("expected tmp/** to hide nested files")
	}
}

func Test_Matcher_FileSizeLimit(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{
		RootDir:          t.TempDir(),
		MaxFileSizeBytes: 1024,
	})

	if !matcher.IsFileTooLarge(2048) {
		t.Error("expected 2KB file to exceed 1KB limit")
	}
	if matcher.IsFileTooLarge(512) {
		t.Error("expected 512B file to be within 1KB limit")
	}
}

func Test_Matcher_DefaultMaxFileSize(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir()})
	if matcher.MaxFileSizeBytes() != 1024*1024 {
		t.Errorf("expected default max file size 1MB, got %d", matcher.MaxFileSizeBytes())
	}
}
