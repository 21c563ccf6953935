// Package docs discovers the source files under docs_dir and maps them to
// their output locations.
package docs

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Kind classifies a discovered file.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindNotebook Kind = "notebook"
	KindAsset    Kind = "asset"
)

// File is one discovered source file.
type File struct {
	SrcPath  string // docs-relative, slash separated
	AbsPath  string
	Kind     Kind
	DestPath string // site-relative output path, slash separated
	URL      string // site-relative URL; "" for the root page
}

// IsDocument reports whether the file is rendered into a page.
func (f *File) IsDocument() bool {
	return f.Kind == KindMarkdown || f.Kind == KindNotebook
}

// Name returns the file name without extension.
func (f *File) Name() string {
	base := path.Base(f.SrcPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// IsIndex reports whether the file is a directory index page.
func (f *File) IsIndex() bool {
	n := strings.ToLower(f.Name())
	return f.IsDocument() && (n == "index" || n == "readme")
}

// Read returns the file content.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, errors.FileSystemError("read source file").
			WithCause(err).
			WithContext("path", f.SrcPath).
			Build()
	}
	return data, nil
}

// Files is the ordered set of discovered files.
type Files struct {
	list  []*File
	bySrc map[string]*File
}

// NewFiles builds a set from files, sorted by source path.
func NewFiles(files ...*File) *Files {
	s := &Files{bySrc: make(map[string]*File, len(files))}
	for _, f := range files {
		s.Add(f)
	}
	return s
}

// Add inserts or replaces a file keeping source-path order.
func (s *Files) Add(f *File) {
	if _, exists := s.bySrc[f.SrcPath]; exists {
		for i, cur := range s.list {
			if cur.SrcPath == f.SrcPath {
				s.list[i] = f
			}
		}
	} else {
		s.list = append(s.list, f)
		sort.SliceStable(s.list, func(i, j int) bool { return s.list[i].SrcPath < s.list[j].SrcPath })
	}
	s.bySrc[f.SrcPath] = f
}

// Remove drops a file by source path.
func (s *Files) Remove(src string) {
	if _, ok := s.bySrc[src]; !ok {
		return
	}
	delete(s.bySrc, src)
	for i, f := range s.list {
		if f.SrcPath == src {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

// Get returns the file with the docs-relative source path.
func (s *Files) Get(src string) (*File, bool) {
	f, ok := s.bySrc[path.Clean(strings.TrimPrefix(filepath.ToSlash(src), "./"))]
	return f, ok
}

// All returns every file.
func (s *Files) All() []*File { return s.list }

// Documents returns Markdown and notebook files.
func (s *Files) Documents() []*File {
	var out []*File
	for _, f := range s.list {
		if f.IsDocument() {
			out = append(out, f)
		}
	}
	return out
}

// Assets returns static files.
func (s *Files) Assets() []*File {
	var out []*File
	for _, f := range s.list {
		if !f.IsDocument() {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of files.
func (s *Files) Len() int { return len(s.list) }

// Discover walks docsDir and classifies every file. Dot files and dot
// directories are skipped, as is anything matching an exclude pattern.
// Files sharing an output path are all returned; see DropConflicts.
func Discover(docsDir string, exclude []string, directoryURLs bool) (*Files, error) {
	info, err := os.Stat(docsDir)
	if err != nil {
		return nil, errors.NotFoundError("docs_dir does not exist").
			WithCause(err).
			WithContext("path", docsDir).
			Build()
	}
	if !info.IsDir() {
		return nil, errors.ConfigError("docs_dir is not a directory").
			WithContext("path", docsDir).
			Build()
	}

	files := NewFiles()
	walkErr := filepath.WalkDir(docsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == docsDir {
			return nil
		}
		rel, err := filepath.Rel(docsDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(d.Name(), ".") || Excluded(rel, d.IsDir(), exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		f := NewFile(rel, p, directoryURLs)
		files.Add(f)
		slog.Debug("Discovered file", logfields.Path(rel), slog.String("kind", string(f.Kind)))
		return nil
	})
	if walkErr != nil {
		return nil, errors.DocsError("walk docs_dir").
			WithCause(walkErr).
			WithContext("path", docsDir).
			Build()
	}

	slog.Info("Documentation discovered", logfields.Count(files.Len()), logfields.Path(docsDir))
	return files, nil
}

// Conflict records a file left out because another file already claimed
// its output path.
type Conflict struct {
	SrcPath  string
	KeptPath string
	DestPath string
}

func (c Conflict) String() string {
	return fmt.Sprintf("excluding %s from the site because it conflicts with %s (both write %s)", c.SrcPath, c.KeptPath, c.DestPath)
}

// DropConflicts removes files whose output path is already claimed and
// returns what it removed. Pages claim paths before READMEs, and READMEs
// before static files; otherwise the first file in source order wins.
func (s *Files) DropConflicts() []Conflict {
	rank := func(f *File) int {
		switch {
		case !f.IsDocument():
			return 2
		case strings.EqualFold(f.Name(), "readme"):
			return 1
		}
		return 0
	}
	ordered := append([]*File(nil), s.list...)
	sort.SliceStable(ordered, func(i, j int) bool { return rank(ordered[i]) < rank(ordered[j]) })

	owner := map[string]*File{}
	var conflicts []Conflict
	for _, f := range ordered {
		if kept, taken := owner[f.DestPath]; taken {
			conflicts = append(conflicts, Conflict{SrcPath: f.SrcPath, KeptPath: kept.SrcPath, DestPath: f.DestPath})
			continue
		}
		owner[f.DestPath] = f
	}
	for _, c := range conflicts {
		s.Remove(c.SrcPath)
	}
	return conflicts
}

// NotebooksAsAssets publishes every notebook as a download instead of a page.
func (s *Files) NotebooksAsAssets() {
	for _, f := range s.list {
		if f.Kind == KindNotebook {
			f.AsAsset()
		}
	}
}

// NewFile classifies a docs-relative path and computes its destination.
func NewFile(src, abs string, directoryURLs bool) *File {
	f := &File{SrcPath: src, AbsPath: abs, Kind: classify(src)}
	if !f.IsDocument() {
		f.DestPath = src
		f.URL = src
		return f
	}
	f.DestPath, f.URL = pageDestination(src, directoryURLs)
	return f
}

// AsAsset turns a document into a static file copied verbatim.
func (f *File) AsAsset() {
	f.Kind = KindAsset
	f.DestPath = f.SrcPath
	f.URL = f.SrcPath
}

func classify(src string) Kind {
	switch strings.ToLower(path.Ext(src)) {
	case ".md", ".markdown":
		return KindMarkdown
	case ".ipynb":
		return KindNotebook
	default:
		return KindAsset
	}
}

// pageDestination maps a page source path to its output file and URL:
//
//	index.md      -> index.html         ""
//	a/b.md        -> a/b/index.html     a/b/       (directory URLs)
//	a/b.md        -> a/b.html           a/b.html
//	a/README.md   -> a/index.html       a/
func pageDestination(src string, directoryURLs bool) (string, string) {
	dir := path.Dir(src)
	if dir == "." {
		dir = ""
	}
	base := path.Base(src)
	stem := strings.TrimSuffix(base, path.Ext(base))
	lower := strings.ToLower(stem)

	if lower == "index" || lower == "readme" {
		dest := path.Join(dir, "index.html")
		if directoryURLs {
			if dir == "" {
				return dest, ""
			}
			return dest, dir + "/"
		}
		return dest, dest
	}
	if directoryURLs {
		dest := path.Join(dir, stem, "index.html")
		return dest, path.Join(dir, stem) + "/"
	}
	dest := path.Join(dir, stem+".html")
	return dest, dest
}

// Excluded reports whether rel matches one of the gitignore-style patterns.
// A pattern with a leading slash is anchored to docs_dir, a trailing slash
// matches directories only, and a "!" prefix re-includes a path.
func Excluded(rel string, isDir bool, patterns []string) bool {
	excluded := false
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		negate := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		dirOnly := strings.HasSuffix(p, "/")
		p = strings.TrimSuffix(p, "/")
		if dirOnly && !isDir {
			continue
		}
		if matchPattern(p, rel) {
			excluded = !negate
		}
	}
	return excluded
}

func matchPattern(pattern, rel string) bool {
	if strings.HasPrefix(pattern, "/") {
		ok, _ := path.Match(strings.TrimPrefix(pattern, "/"), rel)
		return ok
	}
	if strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, rel)
		return ok
	}
	// Unanchored patterns match any path segment suffix.
	parts := strings.Split(rel, "/")
	for i := range parts {
		if ok, _ := path.Match(pattern, strings.Join(parts[i:], "/")); ok {
			return true
		}
	}
	return false
}

// SplitPatterns splits the multi-line exclude_docs value.
func SplitPatterns(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
