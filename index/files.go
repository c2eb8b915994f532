package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// File is one indexed path of a project.
type File struct {
	Path         string // Absolute file path
	RelativePath string // Path relative to project root (forward slashes)
	Language     string
	SizeBytes    int64
	ModTime      time.Time
}

// FileMatch is a quick-open result. Score is zero for glob matches.
type FileMatch struct {
	File  *File
	Score int
}

// FileIndex keeps the file paths of one project for quick-open queries.
// It uses a map for path lookups and a sorted slice for ordered iteration.
type FileIndex struct {
	mu          sync.RWMutex
	files       map[string]*File // key: relative path
	sortedPaths []string
	slab        *util.Slab
}

func NewFileIndex() *FileIndex {
	return &FileIndex{
		files:       make(map[string]*File),
		sortedPaths: make([]string, 0),
		slab:        util.MakeSlab(100*1024, 2048),
	}
}

// Add adds or replaces a file.
func (fi *FileIndex) Add(file *File) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	_, exists := fi.files[file.RelativePath]
	fi.files[file.RelativePath] = file
	if !exists {
		idx := sort.SearchStrings(fi.sortedPaths, file.RelativePath)
		fi.sortedPaths = append(fi.sortedPaths, "")
		copy(fi.sortedPaths[idx+1:], fi.sortedPaths[idx:])
		fi.sortedPaths[idx] = file.RelativePath
	}
}

// Remove drops relativePath and, when it names a directory, everything
// below it. It returns the removed relative paths.
func (fi *FileIndex) Remove(relativePath string) []string {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	prefix := relativePath + "/"
	var removed []string
	kept := fi.sortedPaths[:0]
	for _, p := range fi.sortedPaths {
		if p == relativePath || strings.HasPrefix(p, prefix) {
			delete(fi.files, p)
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	fi.sortedPaths = kept
	return removed
}

// Get returns the file at relativePath, or nil.
func (fi *FileIndex) Get(relativePath string) *File {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.files[relativePath]
}

func (fi *FileIndex) Len() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.files)
}

// All returns the indexed files in path order.
func (fi *FileIndex) All() []*File {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	out := make([]*File, 0, len(fi.sortedPaths))
	for _, p := range fi.sortedPaths {
		out = append(out, fi.files[p])
	}
	return out
}

// Clear removes all files.
func (fi *FileIndex) Clear() {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.files = make(map[string]*File)
	fi.sortedPaths = make([]string, 0)
}

// IsGlob reports whether a query uses glob syntax.
func IsGlob(query string) bool {
	return strings.ContainsAny(query, "*?[{")
}

// Search answers a quick-open query: glob queries are matched with
// doublestar, anything else is ranked by fuzzy score. An empty query lists
// files in path order.
func (fi *FileIndex) Search(query string, maxResults int) ([]FileMatch, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	switch {
	case query == "":
		return fi.list(maxResults), nil
	case IsGlob(query):
		return fi.SearchGlob(query, maxResults)
	default:
		return fi.SearchFuzzy(query, maxResults), nil
	}
}

func (fi *FileIndex) list(maxResults int) []FileMatch {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	out := make([]FileMatch, 0, min(maxResults, len(fi.sortedPaths)))
	for _, p := range fi.sortedPaths {
		if len(out) >= maxResults {
			break
		}
		out = append(out, FileMatch{File: fi.files[p]})
	}
	return out
}

// SearchGlob returns files whose relative path matches a doublestar glob.
func (fi *FileIndex) SearchGlob(pattern string, maxResults int) ([]FileMatch, error) {
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	fi.mu.RLock()
	defer fi.mu.RUnlock()

	var results []FileMatch
	for _, path := range fi.sortedPaths {
		if len(results) >= maxResults {
			break
		}
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			results = append(results, FileMatch{File: fi.files[path]})
		}
	}
	return results, nil
}

// SearchFuzzy ranks files by fzf's fuzzy score against the relative path.
// Ties keep path order. The query is case-insensitive unless it contains
// an upper-case letter.
func (fi *FileIndex) SearchFuzzy(query string, maxResults int) []FileMatch {
	caseSensitive := strings.IndexFunc(query, unicode.IsUpper) >= 0
	pattern := []rune(query)
	if !caseSensitive {
		pattern = []rune(strings.ToLower(query))
	}

	// The slab is shared scratch space, so matching takes the write lock.
	fi.mu.Lock()
	defer fi.mu.Unlock()

	var results []FileMatch
	for _, path := range fi.sortedPaths {
		chars := util.ToChars([]byte(path))
		res, _ := algo.FuzzyMatchV2(caseSensitive, false, true, &chars, pattern, false, fi.slab)
		if res.Start < 0 || res.Score <= 0 {
			continue
		}
		results = append(results, FileMatch{File: fi.files[path], Score: res.Score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
