package workspace

import (
	"context"
	"strings"

	"github.com/lexandro/workspace-mcp/remote"
)

// SearchFiles runs a quick-open query over the current project.
func (s *Store) SearchFiles(ctx context.Context, query string, maxResults int) ([]remote.FileMatch, error) {
	root, limit, err := s.searchScope(maxResults)
	if err != nil {
		return nil, err
	}
	matches, err := remote.CallResult(ctx, "search_files", root, func(ctx context.Context) ([]remote.FileMatch, error) {
		return s.searcher.SearchFiles(ctx, root, strings.TrimSpace(query), limit)
	})
	if err != nil {
		return nil, s.fail("search files", err)
	}
	return matches, nil
}

// SearchContent runs a find-in-files query over the current project.
func (s *Store) SearchContent(ctx context.Context, query string, maxResults int) ([]remote.ContentMatch, error) {
	root, limit, err := s.searchScope(maxResults)
	if err != nil {
		return nil, err
	}
	matches, err := remote.CallResult(ctx, "search_content", root, func(ctx context.Context) ([]remote.ContentMatch, error) {
		return s.searcher.SearchContent(ctx, root, query, limit)
	})
	if err != nil {
		return nil, s.fail("search content", err)
	}
	return matches, nil
}

func (s *Store) searchScope(maxResults int) (string, int, error) {
	if s.searcher == nil {
		return "", 0, ErrNoSearch
	}
	root := s.ProjectPath()
	if root == "" {
		return "", 0, ErrNoProject
	}
	if maxResults <= 0 || maxResults > s.maxResults {
		maxResults = s.maxResults
	}
	return root, maxResults, nil
}
