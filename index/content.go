package index

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// maxLinesPerFile caps the line hits reported for a single file.
const maxLinesPerFile = 20

// ContentIndex provides find-in-files over file contents using an in-memory
// Bleve index. Raw content is kept alongside for line extraction.
type ContentIndex struct {
	mu       sync.RWMutex
	index    bleve.Index
	contents map[string]string // key: relative path
}

func NewContentIndex() (*ContentIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &ContentIndex{
		index:    bleveIndex,
		contents: make(map[string]string),
	}, nil
}

type bleveDocument struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Language string `json:"language"`
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("content", contentField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathField)

	langField := bleve.NewKeywordFieldMapping()
	langField.Store = true
	langField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("language", langField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds or replaces a file's content.
func (ci *ContentIndex) Index(relativePath, content, language string) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	ci.contents[relativePath] = content
	doc := bleveDocument{Content: content, Path: relativePath, Language: language}
	if err := ci.index.Index(relativePath, doc); err != nil {
		return fmt.Errorf("indexing file %s: %w", relativePath, err)
	}
	return nil
}

// Remove drops the given relative paths.
func (ci *ContentIndex) Remove(relativePaths ...string) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	batch := ci.index.NewBatch()
	for _, p := range relativePaths {
		delete(ci.contents, p)
		batch.Delete(p)
	}
	if err := ci.index.Batch(batch); err != nil {
		return fmt.Errorf("removing files from index: %w", err)
	}
	return nil
}

// Content returns the indexed content of a file.
func (ci *ContentIndex) Content(relativePath string) (string, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	content, ok := ci.contents[relativePath]
	return content, ok
}

// Line is one matching line, numbered from 1.
type Line struct {
	Number int
	Text   string
}

// ContentResult groups the matching lines of one file.
type ContentResult struct {
	RelativePath string
	Lines        []Line
}

// Search runs a find-in-files query. Query forms:
//   - plain words: any word matches
//   - "quoted text": exact phrase
//   - /regex/: regular expression
//
// At most maxResults files are returned, in relevance order.
func (ci *ContentIndex) Search(queryString string, maxResults int) ([]ContentResult, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	matchLine, err := lineMatcher(queryString)
	if err != nil {
		return nil, err
	}

	ci.mu.RLock()
	defer ci.mu.RUnlock()

	req := bleve.NewSearchRequest(buildQuery(queryString))
	// Hits are filtered by line matching, so ask for more than needed.
	req.Size = maxResults * 5
	req.Fields = []string{"path"}
	res, err := ci.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var results []ContentResult
	for _, hit := range res.Hits {
		content, ok := ci.contents[hit.ID]
		if !ok {
			continue
		}
		lines := findMatchingLines(content, matchLine)
		if len(lines) == 0 {
			continue
		}
		results = append(results, ContentResult{RelativePath: hit.ID, Lines: lines})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// Len returns the number of indexed documents.
func (ci *ContentIndex) Len() uint64 {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	count, _ := ci.index.DocCount()
	return count
}

// Clear removes all documents and recreates the index.
func (ci *ContentIndex) Clear() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if err := ci.index.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}
	newIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating new index: %w", err)
	}
	ci.index = newIndex
	ci.contents = make(map[string]string)
	return nil
}

func (ci *ContentIndex) Close() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.index.Close()
}

func isRegexQuery(q string) bool {
	return len(q) > 2 && strings.HasPrefix(q, "/") && strings.HasSuffix(q, "/")
}

func isPhraseQuery(q string) bool {
	return len(q) > 2 && strings.HasPrefix(q, "\"") && strings.HasSuffix(q, "\"")
}

func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)
	switch {
	case isRegexQuery(queryString):
		return bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
	case isPhraseQuery(queryString):
		return bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
	default:
		return bleve.NewMatchQuery(queryString)
	}
}

// lineMatcher returns the predicate used to pick lines out of a hit.
func lineMatcher(queryString string) (func(string) bool, error) {
	queryString = strings.TrimSpace(queryString)
	switch {
	case isRegexQuery(queryString):
		re, err := regexp.Compile(queryString[1 : len(queryString)-1])
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression: %w", err)
		}
		return re.MatchString, nil
	case isPhraseQuery(queryString):
		phrase := strings.ToLower(queryString[1 : len(queryString)-1])
		return func(line string) bool {
			return strings.Contains(strings.ToLower(line), phrase)
		}, nil
	default:
		terms := strings.Fields(strings.ToLower(queryString))
		return func(line string) bool {
			lower := strings.ToLower(line)
			for _, t := range terms {
				if strings.Contains(lower, t) {
					return true
				}
			}
			return false
		}, nil
	}
}

func findMatchingLines(content string, match func(string) bool) []Line {
	var lines []Line
	for i, line := range strings.Split(content, "\n") {
		if !match(line) {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Text: line})
		if len(lines) >= maxLinesPerFile {
			break
		}
	}
	return lines
}
