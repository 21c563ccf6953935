package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/search"
)

// SearchName is the configuration name of the search plugin.
const SearchName = "search"

// SearchIndexPath is the site-relative location of the index.
const SearchIndexPath = "search/search_index.json"

// Search collects rendered pages into search_index.json.
type Search struct {
	mu    sync.Mutex
	opts  map[string]any
	index *search.Index
}

// NewSearch returns an unconfigured search plugin.
func NewSearch() *Search { return &Search{} }

func (s *Search) Name() string { return SearchName }

func (s *Search) Configure(opts map[string]any) error {
	switch v := opts["lang"].(type) {
	case nil, string, []any:
	default:
		return fmt.Errorf("lang must be a string or list, got %T", v)
	}
	if v, ok := opts["separator"]; ok {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("separator must be a string")
		}
	}
	if v, ok := opts["min_search_length"]; ok {
		if n, ok := v.(int); !ok || n < 1 {
			return fmt.Errorf("min_search_length must be a positive integer")
		}
	}
	s.opts = opts
	return nil
}

// Index returns the index being built.
func (s *Search) Index() *search.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Search) ensure(site *Site) *search.Index {
	if s.index == nil {
		s.index = search.NewIndex(s.opts, site.Config.Theme.Language)
	}
	return s.index
}

func (s *Search) OnPageContent(html string, page *Page, site *Site) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix := s.ensure(site)
	if page.Meta.SearchExcluded() {
		return html, nil
	}
	ix.AddPage(page.URL(), page.Title, html)
	return html, nil
}

func (s *Search) OnPostBuild(site *Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix := s.ensure(site)
	s.mergeReused(ix, site)

	data, err := ix.JSON()
	if err != nil {
		return errors.InternalError("encode search index").WithCause(err).Build()
	}
	dest := filepath.Join(site.OutputDir, filepath.FromSlash(SearchIndexPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return errors.FileSystemError("create search dir").WithCause(err).WithContext("path", dest).Build()
	}
	if err := renameio.WriteFile(dest, data, 0o644); err != nil {
		return errors.FileSystemError("write search index").WithCause(err).WithContext("path", dest).Build()
	}
	return nil
}

// mergeReused carries entries of pages a dirty build did not re-render over
// from the previous index.
func (s *Search) mergeReused(ix *search.Index, site *Site) {
	reused := map[string]bool{}
	for _, p := range site.Pages {
		if p.Reused && !p.Meta.SearchExcluded() {
			reused[p.URL()] = true
		}
	}
	if len(reused) == 0 || site.PreviousDir == "" {
		return
	}
	data, err := os.ReadFile(filepath.Join(site.PreviousDir, filepath.FromSlash(SearchIndexPath)))
	if err != nil {
		site.Warn(SearchName, "previous search index unavailable; reused pages are not searchable")
		return
	}
	var prev search.Index
	if err := json.Unmarshal(data, &prev); err != nil {
		site.Warn(SearchName, "previous search index is corrupt")
		return
	}
	for _, d := range prev.Docs {
		loc, _, _ := strings.Cut(d.Location, "#")
		if reused[loc] {
			ix.Docs = append(ix.Docs, d)
		}
	}
}
