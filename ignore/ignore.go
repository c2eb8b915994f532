package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFiles are read from the project root, in order.
var IgnoreFiles = []string{".gitignore", ".workspaceignore"}

// Matcher decides which entries of a project are hidden from tree listings
// and which are left out of the search index. It combines built-in
// patterns, the project's ignore files and user excludes.
// Reload takes the write lock; the query methods take the read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	respectGitignore bool
	ignoreFiles      []gitignore.GitIgnore
	customPatterns   []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir string
	// CustomPatterns are doublestar globs matched against the relative
	// path and the base name.
	CustomPatterns   []string
	RespectGitignore bool
	MaxFileSizeBytes int64
}

func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		respectGitignore: options.RespectGitignore,
		customPatterns:   options.CustomPatterns,
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}
	if matcher.maxFileSizeBytes <= 0 {
		matcher.maxFileSizeBytes = 1024 * 1024 // 1MB default
	}
	matcher.ignoreFiles = matcher.loadIgnoreFiles()
	return matcher
}

// RootDir returns the project root the matcher was built for.
func (m *Matcher) RootDir() string {
	return m.rootDir
}

// Hidden reports whether an entry is left out of tree listings. The root
// itself is never hidden.
func (m *Matcher) Hidden(absolutePath string, isDir bool) bool {
	relativePath, ok := m.relative(absolutePath)
	if !ok {
		return false
	}
	if HiddenNames[filepath.Base(relativePath)] {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, gi := range m.ignoreFiles {
		if match := gi.Relative(relativePath, isDir); match != nil && match.Ignore() {
			return true
		}
	}
	return m.matchesCustomPatterns(relativePath)
}

// SkipIndex reports whether a listed entry is still left out of the search
// index: dependency and build directories, binary formats and lock files.
func (m *Matcher) SkipIndex(absolutePath string, isDir bool) bool {
	if m.Hidden(absolutePath, isDir) {
		return true
	}
	relativePath, ok := m.relative(absolutePath)
	if !ok {
		return false
	}
	return matchesDefaultPatterns(relativePath)
}

// IsFileTooLarge returns true if the file exceeds the max file size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxFileSizeBytes
}

func (m *Matcher) MaxFileSizeBytes() int64 {
	return m.maxFileSizeBytes
}

// IsIgnoreFile reports whether path is one of the root's ignore files.
func (m *Matcher) IsIgnoreFile(absolutePath string) bool {
	for _, name := range IgnoreFiles {
		if filepath.Clean(absolutePath) == filepath.Join(m.rootDir, name) {
			return true
		}
	}
	return false
}

// Reload re-reads the ignore files. The backend calls it after writing one.
func (m *Matcher) Reload() {
	files := m.loadIgnoreFiles()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreFiles = files
}

func (m *Matcher) relative(absolutePath string) (string, bool) {
	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil || relativePath == "." || strings.HasPrefix(relativePath, "..") {
		return "", false
	}
	return filepath.ToSlash(relativePath), true
}

// matchesDefaultPatterns checks the path against DefaultIgnorePatterns.
// Plain names match any path component; globs match the base name.
func matchesDefaultPatterns(relativePath string) bool {
	parts := strings.Split(strings.ToLower(relativePath), "/")
	baseNameLower := parts[len(parts)-1]

	for _, pattern := range DefaultIgnorePatterns {
		pattern = strings.ToLower(pattern)
		if !strings.ContainsAny(pattern, "*?[") {
			for _, part := range parts {
				if part == pattern {
					return true
				}
			}
			continue
		}
		if matched, err := filepath.Match(pattern, baseNameLower); err == nil && matched {
			return true
		}
	}
	return false
}

func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	baseName := filepath.Base(relativePath)
	for _, pattern := range m.customPatterns {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

func (m *Matcher) loadIgnoreFiles() []gitignore.GitIgnore {
	if !m.respectGitignore {
		return nil
	}
	var files []gitignore.GitIgnore
	for _, name := range IgnoreFiles {
		if gi := loadIgnoreFile(filepath.Join(m.rootDir, name), m.rootDir); gi != nil {
			files = append(files, gi)
		}
	}
	return files
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
