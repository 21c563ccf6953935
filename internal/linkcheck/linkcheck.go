// Package linkcheck verifies internal links of a rendered site.
package linkcheck

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Reason classifies a broken link.
type Reason string

const (
	ReasonMissingTarget   Reason = "missing_target"
	ReasonMissingFragment Reason = "missing_fragment"
)

// Issue is one broken link found on a page.
type Issue struct {
	Page   string // site-relative output path of the page holding the link
	Link   string // link as written in the HTML
	Target string // resolved site-relative target path
	Reason Reason
}

func (i Issue) String() string {
	switch i.Reason {
	case ReasonMissingFragment:
		return fmt.Sprintf("%s: anchor in %q does not exist on %s", i.Page, i.Link, i.Target)
	default:
		return fmt.Sprintf("%s: link %q points to missing %s", i.Page, i.Link, i.Target)
	}
}

// Checker scans HTML files below a site root. It caches the element ids of
// every parsed page so fragment checks parse each target once.
type Checker struct {
	root string
	ids  map[string]map[string]bool
}

// New returns a Checker for the site rooted at dir.
func New(dir string) *Checker {
	return &Checker{root: dir, ids: make(map[string]map[string]bool)}
}

// Check scans the given pages (site-relative, slash separated) and returns the
// broken links sorted by page then link.
func Check(dir string, pages []string) ([]Issue, error) {
	c := New(dir)
	var out []Issue
	for _, p := range pages {
		issues, err := c.CheckPage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, issues...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Link < out[j].Link
	})
	return out, nil
}

// CheckPage scans one page.
func (c *Checker) CheckPage(page string) ([]Issue, error) {
	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(page)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", page, err)
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page, err)
	}
	c.ids[page] = collectIDs(doc)

	var issues []Issue
	for _, link := range collectLinks(doc) {
		if is, ok := c.checkLink(page, link); !ok {
			issues = append(issues, is)
		}
	}
	return issues, nil
}

func (c *Checker) checkLink(page, link string) (Issue, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "" || u.Host != "" || strings.HasPrefix(u.Path, "/") {
		return Issue{}, true
	}
	if u.Path == "" {
		if u.Fragment == "" || c.hasID(page, u.Fragment) {
			return Issue{}, true
		}
		return Issue{Page: page, Link: link, Target: page, Reason: ReasonMissingFragment}, false
	}

	target := path.Join(path.Dir(page), u.Path)
	if target == ".." || strings.HasPrefix(target, "../") {
		return Issue{Page: page, Link: link, Target: target, Reason: ReasonMissingTarget}, false
	}
	resolved, ok := c.resolve(target, strings.HasSuffix(u.Path, "/"))
	if !ok {
		return Issue{Page: page, Link: link, Target: target, Reason: ReasonMissingTarget}, false
	}
	if u.Fragment == "" || !isHTML(resolved) {
		return Issue{}, true
	}
	if c.hasID(resolved, u.Fragment) {
		return Issue{}, true
	}
	return Issue{Page: page, Link: link, Target: resolved, Reason: ReasonMissingFragment}, false
}

// resolve maps a link target to an existing file, following directory URLs
// to their index.html.
func (c *Checker) resolve(target string, dirHint bool) (string, bool) {
	if target == "." {
		target = ""
	}
	candidates := []string{target}
	if dirHint || target == "" {
		candidates = []string{path.Join(target, "index.html")}
	}
	for _, cand := range candidates {
		fi, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(cand)))
		if err != nil {
			continue
		}
		if !fi.IsDir() {
			return cand, true
		}
		idx := path.Join(cand, "index.html")
		if _, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(idx))); err == nil {
			return idx, true
		}
	}
	return "", false
}

func (c *Checker) hasID(page, id string) bool {
	ids, ok := c.ids[page]
	if !ok {
		data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(page)))
		if err != nil {
			return false
		}
		doc, err := html.Parse(bytes.NewReader(data))
		if err != nil {
			return false
		}
		ids = collectIDs(doc)
		c.ids[page] = ids
	}
	if ids[id] {
		return true
	}
	if dec, err := url.PathUnescape(id); err == nil {
		return ids[dec]
	}
	return false
}

func isHTML(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".html" || ext == ".htm"
}

func collectIDs(n *html.Node) map[string]bool {
	ids := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" || (a.Key == "name" && n.Data == "a") {
					ids[a.Val] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return ids
}

func collectLinks(n *html.Node) []string {
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			key := ""
			switch n.Data {
			case "a":
				key = "href"
			case "img":
				key = "src"
			}
			for _, a := range n.Attr {
				if a.Key == key && a.Val != "" {
					links = append(links, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return links
}
