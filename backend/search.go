package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lexandro/workspace-mcp/filetree"
	"github.com/lexandro/workspace-mcp/ignore"
	"github.com/lexandro/workspace-mcp/index"
	"github.com/lexandro/workspace-mcp/language"
	"github.com/lexandro/workspace-mcp/remote"
)

// SearchOptions configures a Search.
type SearchOptions struct {
	Excludes         []string
	RespectGitignore bool
	MaxFileSize      int64
	// StaleAfter is how old the index may get before a query first
	// re-verifies it against the disk. Zero disables verification.
	StaleAfter time.Duration
	Logger     *slog.Logger
}

// Search answers quick-open and find-in-files queries from in-memory
// indexes of one project. The indexes are built on the first query for a
// root, kept current by the filesystem backend's own mutations, and
// re-verified against the disk when they get older than StaleAfter.
type Search struct {
	opts   SearchOptions
	logger *slog.Logger

	mu         sync.Mutex
	root       string
	matcher    *ignore.Matcher
	files      *index.FileIndex
	content    *index.ContentIndex
	verifiedAt time.Time
}

// VerifyResult holds the outcome of one verification run.
type VerifyResult struct {
	MissingFiles  int // on disk but not indexed
	StaleFiles    int // indexed but gone from disk
	ModifiedFiles int // ModTime differs
	Duration      time.Duration
}

func NewSearch(opts SearchOptions) (*Search, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	content, err := index.NewContentIndex()
	if err != nil {
		return nil, err
	}
	return &Search{
		opts:    opts,
		logger:  logger,
		files:   index.NewFileIndex(),
		content: content,
	}, nil
}

func (s *Search) Close() error {
	return s.content.Close()
}

// SearchFiles implements remote.Searcher.
func (s *Search) SearchFiles(ctx context.Context, rootPath, query string, maxResults int) ([]remote.FileMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(ctx, rootPath); err != nil {
		return nil, err
	}
	matches, err := s.files.Search(query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]remote.FileMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, remote.FileMatch{
			Path:         m.File.Path,
			RelativePath: m.File.RelativePath,
			Language:     m.File.Language,
			Score:        m.Score,
		})
	}
	return out, nil
}

// SearchContent implements remote.Searcher.
func (s *Search) SearchContent(ctx context.Context, rootPath, query string, maxResults int) ([]remote.ContentMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []remote.ContentMatch{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(ctx, rootPath); err != nil {
		return nil, err
	}
	results, err := s.content.Search(query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]remote.ContentMatch, 0, len(results))
	for _, r := range results {
		lines := make([]remote.LineMatch, 0, len(r.Lines))
		for _, l := range r.Lines {
			lines = append(lines, remote.LineMatch{Line: l.Number, Text: l.Text})
		}
		out = append(out, remote.ContentMatch{RelativePath: r.RelativePath, Lines: lines})
	}
	return out, nil
}

// Touch re-indexes a created or written path. Directories are walked.
// Paths outside the indexed project are ignored.
func (s *Search) Touch(absolutePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == "" || !filetree.IsWithin(absolutePath, s.root) {
		return
	}
	if s.matcher.IsIgnoreFile(absolutePath) {
		s.matcher.Reload()
	}
	info, err := os.Stat(absolutePath)
	if err != nil {
		return
	}
	if info.IsDir() {
		s.indexTree(context.Background(), absolutePath)
		return
	}
	if s.skip(absolutePath, info) {
		return
	}
	if err := s.indexFile(absolutePath, info); err != nil {
		s.logger.Debug("skipped file update", "path", absolutePath, "error", err)
	}
}

// Forget drops a deleted path, and everything below it, from the indexes.
func (s *Search) Forget(absolutePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == "" || !filetree.IsWithin(absolutePath, s.root) {
		return
	}
	removed := s.files.Remove(s.relative(absolutePath))
	if len(removed) == 0 {
		return
	}
	if err := s.content.Remove(removed...); err != nil {
		s.logger.Warn("removing from content index failed", "path", absolutePath, "error", err)
	}
	s.logger.Debug("removed from index", "path", absolutePath, "files", len(removed))
}

func (s *Search) ensureLocked(ctx context.Context, rootPath string) error {
	rootPath = filepath.Clean(rootPath)
	if rootPath != s.root {
		return s.rebuildLocked(ctx, rootPath)
	}
	if s.opts.StaleAfter > 0 && time.Since(s.verifiedAt) > s.opts.StaleAfter {
		result := s.verifyLocked(ctx)
		if n := result.MissingFiles + result.StaleFiles + result.ModifiedFiles; n > 0 {
			s.logger.Info("index verification complete",
				"missing", result.MissingFiles,
				"stale", result.StaleFiles,
				"modified", result.ModifiedFiles,
				"duration", result.Duration,
			)
		}
	}
	return nil
}

func (s *Search) rebuildLocked(ctx context.Context, rootPath string) error {
	info, err := os.Stat(rootPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", rootPath)
	}
	s.files.Clear()
	if err := s.content.Clear(); err != nil {
		return err
	}
	s.root = rootPath
	s.matcher = ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          rootPath,
		CustomPatterns:   s.opts.Excludes,
		RespectGitignore: s.opts.RespectGitignore,
		MaxFileSizeBytes: s.opts.MaxFileSize,
	})

	start := time.Now()
	count, size := s.indexTree(ctx, rootPath)
	s.verifiedAt = time.Now()
	s.logger.Info("project indexed", "root", rootPath, "files", count, "bytes", size, "duration", time.Since(start))
	return ctx.Err()
}

// indexTree walks dir and indexes every eligible file with a bounded
// worker pool. It returns the number of files indexed and bytes read.
func (s *Search) indexTree(ctx context.Context, dir string) (int, int64) {
	var indexedCount int
	var totalSize int64
	var mu sync.Mutex

	const workerCount = 8
	type indexJob struct {
		path string
		info os.FileInfo
	}
	jobs := make(chan indexJob, 100)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := s.indexFile(job.path, job.info); err != nil {
					s.logger.Debug("skipped file", "path", job.path, "error", err)
					continue
				}
				mu.Lock()
				indexedCount++
				totalSize += job.info.Size()
				mu.Unlock()
			}
		}()
	}

	s.walk(ctx, dir, func(path string, info os.FileInfo) {
		jobs <- indexJob{path: path, info: info}
	})

	close(jobs)
	wg.Wait()
	return indexedCount, totalSize
}

// walk visits every file below dir that belongs in the index.
func (s *Search) walk(ctx context.Context, dir string, visit func(path string, info os.FileInfo)) {
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if path != s.root && s.matcher.SkipIndex(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || s.skip(path, info) {
			return nil
		}
		visit(path, info)
		return nil
	})
}

func (s *Search) skip(path string, info os.FileInfo) bool {
	return !info.Mode().IsRegular() || s.matcher.SkipIndex(path, false) || s.matcher.IsFileTooLarge(info.Size())
}

// indexFile reads one file into both indexes.
func (s *Search) indexFile(absolutePath string, info os.FileInfo) error {
	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if !language.IsEditableText(data) {
		return ErrBinary
	}

	relativePath := s.relative(absolutePath)
	lang := language.Detect(absolutePath)
	s.files.Add(&index.File{
		Path:         absolutePath,
		RelativePath: relativePath,
		Language:     lang,
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
	})
	if err := s.content.Index(relativePath, string(data), lang); err != nil {
		return fmt.Errorf("indexing content: %w", err)
	}
	return nil
}

// verifyLocked compares the disk with the indexes and repairs missing,
// stale and modified entries.
func (s *Search) verifyLocked(ctx context.Context) VerifyResult {
	start := time.Now()
	var result VerifyResult

	diskFiles := make(map[string]os.FileInfo)
	s.walk(ctx, s.root, func(path string, info os.FileInfo) {
		diskFiles[path] = info
	})

	indexed := make(map[string]*index.File)
	for _, f := range s.files.All() {
		indexed[f.Path] = f
	}

	for path, info := range diskFiles {
		f, ok := indexed[path]
		if ok && info.ModTime().Equal(f.ModTime) {
			continue
		}
		if err := s.indexFile(path, info); err != nil {
			s.logger.Debug("verify: skipped file", "path", path, "error", err)
			continue
		}
		if ok {
			result.ModifiedFiles++
		} else {
			result.MissingFiles++
		}
	}

	for path, f := range indexed {
		if _, ok := diskFiles[path]; ok {
			continue
		}
		s.files.Remove(f.RelativePath)
		if err := s.content.Remove(f.RelativePath); err != nil {
			s.logger.Debug("verify: remove failed", "path", path, "error", err)
		}
		result.StaleFiles++
	}

	s.verifiedAt = time.Now()
	result.Duration = time.Since(start)
	return result
}

func (s *Search) relative(absolutePath string) string {
	rel, err := filepath.Rel(s.root, absolutePath)
	if err != nil {
		return filepath.ToSlash(absolutePath)
	}
	return filepath.ToSlash(rel)
}
