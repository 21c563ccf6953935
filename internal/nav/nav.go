// Package nav resolves the configured navigation tree against the discovered
// documentation files.
package nav

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
)

// Kind distinguishes navigation nodes.
type Kind string

const (
	KindPage    Kind = "page"
	KindSection Kind = "section"
	KindLink    Kind = "link"
)

// Rules reported by Build.
const (
	RuleMissingFile  = "nav-missing-file"
	RuleEmptySection = "nav-empty-section"
	RuleUnlisted     = "nav-unlisted"
)

// Item is one navigation node.
type Item struct {
	Title    string
	URL      string
	Kind     Kind
	Page     *Page
	Children []*Item
	Parent   *Item
}

// Page is a rendered document. Pages outside the navigation have no Item.
type Page struct {
	File  *docs.File
	Title string
	Meta  frontmatter.Meta
	Prev  *Page
	Next  *Page
	Item  *Item

	titleFromNav bool
}

// URL returns the site-relative page URL.
func (p *Page) URL() string { return p.File.URL }

// IsHome reports whether the page is the site root.
func (p *Page) IsHome() bool { return p.File.DestPath == "index.html" }

// ResolveTitle applies the title precedence: navigation entry, meta `title`,
// first H1 heading, file name.
func (p *Page) ResolveTitle(heading string) {
	if p.titleFromNav {
		return
	}
	switch {
	case p.Meta.Title() != "":
		p.Title = p.Meta.Title()
	case heading != "":
		p.Title = heading
	}
}

// Issue is a problem found while resolving the navigation.
type Issue struct {
	Rule    string
	Path    string
	Message string
}

// Nav is the resolved navigation.
type Nav struct {
	Items []*Item

	ordered []*Page
	bySrc   map[string]*Page
}

// Build resolves configured entries. Entries naming files that do not exist
// are dropped and reported; absolute URLs become links.
func Build(entries []config.NavEntry, files *docs.Files) (*Nav, []Issue) {
	n := &Nav{bySrc: map[string]*Page{}}
	var issues []Issue
	n.Items = n.resolve(entries, nil, files, &issues)
	n.finish(files)
	return n, issues
}

func (n *Nav) resolve(entries []config.NavEntry, parent *Item, files *docs.Files, issues *[]Issue) []*Item {
	var items []*Item
	for _, e := range entries {
		switch {
		case e.Section || len(e.Children) > 0:
			it := &Item{Title: e.Title, Kind: KindSection, Parent: parent}
			it.Children = n.resolve(e.Children, it, files, issues)
			if len(it.Children) == 0 {
				*issues = append(*issues, Issue{
					Rule:    RuleEmptySection,
					Message: fmt.Sprintf("navigation section %q has no entries", e.Title),
				})
			}
			items = append(items, it)
		case e.IsExternal():
			title := e.Title
			if title == "" {
				title = e.Path
			}
			items = append(items, &Item{Title: title, URL: e.Path, Kind: KindLink, Parent: parent})
		default:
			f, ok := files.Get(e.Path)
			if !ok || !f.IsDocument() {
				msg := fmt.Sprintf("navigation entry %q points to %q which is not in docs_dir", e.Title, e.Path)
				if ok {
					msg = fmt.Sprintf("navigation entry %q points to %q which is published as a static file, not a page", e.Title, e.Path)
				}
				*issues = append(*issues, Issue{Rule: RuleMissingFile, Path: e.Path, Message: msg})
				continue
			}
			it := &Item{Title: e.Title, URL: f.URL, Kind: KindPage, Parent: parent}
			p := n.page(f)
			if p.Item == nil {
				p.Item = it
				n.ordered = append(n.ordered, p)
			}
			if e.Title != "" {
				p.Title, p.titleFromNav = e.Title, true
			} else {
				it.Title = p.Title
			}
			it.Page = p
			items = append(items, it)
		}
	}
	return items
}

func (n *Nav) page(f *docs.File) *Page {
	if p, ok := n.bySrc[f.SrcPath]; ok {
		return p
	}
	p := &Page{File: f, Title: TitleFromFile(f), Meta: frontmatter.Meta{}}
	n.bySrc[f.SrcPath] = p
	return p
}

// finish creates pages for documents outside the navigation and links
// Prev/Next along navigation order.
func (n *Nav) finish(files *docs.Files) {
	for _, f := range files.Documents() {
		n.page(f)
	}
	for i, p := range n.ordered {
		if i > 0 {
			p.Prev = n.ordered[i-1]
		}
		if i+1 < len(n.ordered) {
			p.Next = n.ordered[i+1]
		}
	}
}

// Auto derives a navigation from the docs tree: index pages first, then
// entries alphabetically, directories as sections.
func Auto(files *docs.Files) *Nav {
	n := &Nav{bySrc: map[string]*Page{}}
	root := &autoDir{dirs: map[string]*autoDir{}}
	for _, f := range files.Documents() {
		d := root
		dir := path.Dir(f.SrcPath)
		if dir != "." {
			for _, seg := range strings.Split(dir, "/") {
				next, ok := d.dirs[seg]
				if !ok {
					next = &autoDir{name: seg, dirs: map[string]*autoDir{}}
					d.dirs[seg] = next
				}
				d = next
			}
		}
		d.files = append(d.files, f)
	}
	n.Items = n.autoItems(root, nil)
	n.finish(files)
	return n
}

type autoDir struct {
	name  string
	files []*docs.File
	dirs  map[string]*autoDir
}

func (n *Nav) autoItems(d *autoDir, parent *Item) []*Item {
	type entry struct {
		key  string
		file *docs.File
		dir  *autoDir
	}
	var entries []entry
	for _, f := range d.files {
		key := path.Base(f.SrcPath)
		if f.IsIndex() {
			key = ""
		}
		entries = append(entries, entry{key: key, file: f})
	}
	for name, sub := range d.dirs {
		entries = append(entries, entry{key: name, dir: sub})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	var items []*Item
	for _, e := range entries {
		if e.dir != nil {
			it := &Item{Title: TitleFromName(e.dir.name), Kind: KindSection, Parent: parent}
			it.Children = n.autoItems(e.dir, it)
			items = append(items, it)
			continue
		}
		p := n.page(e.file)
		it := &Item{Title: p.Title, URL: e.file.URL, Kind: KindPage, Page: p, Parent: parent}
		p.Item = it
		n.ordered = append(n.ordered, p)
		items = append(items, it)
	}
	return items
}

// Pages returns navigation pages in order.
func (n *Nav) Pages() []*Page { return n.ordered }

// AllPages returns navigation pages followed by unlisted pages in source order.
func (n *Nav) AllPages() []*Page {
	out := append([]*Page(nil), n.ordered...)
	var rest []*Page
	for _, p := range n.bySrc {
		if p.Item == nil {
			rest = append(rest, p)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].File.SrcPath < rest[j].File.SrcPath })
	return append(out, rest...)
}

// Page returns the page for a source path.
func (n *Nav) Page(src string) (*Page, bool) {
	p, ok := n.bySrc[src]
	return p, ok
}

// Active returns the chain of items from the top level down to the page's item.
func (n *Nav) Active(p *Page) []*Item {
	if p == nil || p.Item == nil {
		return nil
	}
	var chain []*Item
	for it := p.Item; it != nil; it = it.Parent {
		chain = append([]*Item{it}, chain...)
	}
	return chain
}

// Unlisted returns the source paths of documents not reachable from the
// navigation.
func Unlisted(n *Nav, files *docs.Files) []string {
	var out []string
	for _, f := range files.Documents() {
		if p, ok := n.bySrc[f.SrcPath]; !ok || p.Item == nil {
			out = append(out, f.SrcPath)
		}
	}
	return out
}

var firstUpper = cases.Title(language.Und, cases.NoLower)

// TitleFromName turns a file or directory name into a title:
// "getting-started" becomes "Getting started".
func TitleFromName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown", ".ipynb":
		name = strings.TrimSuffix(name, path.Ext(name))
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	first, rest, _ := strings.Cut(name, " ")
	if rest == "" {
		return firstUpper.String(first)
	}
	return firstUpper.String(first) + " " + rest
}

// TitleFromFile derives a fallback title; index pages take the directory name
// and the root index is "Home".
func TitleFromFile(f *docs.File) string {
	if f.IsIndex() {
		dir := path.Dir(f.SrcPath)
		if dir == "." {
			return "Home"
		}
		return TitleFromName(path.Base(dir))
	}
	return TitleFromName(path.Base(f.SrcPath))
}

// Relative returns the URL of target as seen from a page at from. Both are
// site-relative URLs as produced by docs.File.
func Relative(from, target string) string {
	if strings.Contains(target, "://") || strings.HasPrefix(target, "/") || strings.HasPrefix(target, "#") {
		return target
	}
	base := from
	if !strings.HasSuffix(base, "/") {
		base = path.Dir(base)
		if base == "." {
			base = ""
		}
	}
	baseSegs := splitSegs(base)
	targetPath, frag, _ := strings.Cut(target, "#")
	trailing := strings.HasSuffix(targetPath, "/") || targetPath == ""
	targetSegs := splitSegs(targetPath)

	i := 0
	for i < len(baseSegs) && i < len(targetSegs) && baseSegs[i] == targetSegs[i] {
		i++
	}
	var parts []string
	for range baseSegs[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, targetSegs[i:]...)
	rel := strings.Join(parts, "/")
	switch {
	case rel == "":
		rel = "./"
	case trailing:
		rel += "/"
	}
	if frag != "" {
		rel += "#" + frag
	}
	return rel
}

func splitSegs(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
