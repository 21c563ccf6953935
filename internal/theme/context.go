package theme

import (
	"html/template"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/nav"
)

// Site is the configuration identity exposed to templates.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
	Copyright   string
	RepoURL     string
	RepoName    string
	Language    string
	Logo        string
	Favicon     string
	Social      []config.SocialLink
	Extra       map[string]any
}

// NavItem is a navigation entry with URLs relative to the current page.
type NavItem struct {
	Title    string
	URL      string
	Kind     nav.Kind
	Active   bool
	Current  bool
	Children []*NavItem
}

// IsSection reports whether the item groups other items.
func (n *NavItem) IsSection() bool { return n.Kind == nav.KindSection }

// IsLink reports whether the item points outside the site.
func (n *NavItem) IsLink() bool { return n.Kind == nav.KindLink }

// FirstURL returns the item's URL or, for a section, its first page.
func (n *NavItem) FirstURL() string {
	if n.Kind != nav.KindSection {
		return n.URL
	}
	for _, c := range n.Children {
		if u := c.FirstURL(); u != "" {
			return u
		}
	}
	return ""
}

// TOCItem is one table of contents entry.
type TOCItem struct {
	Title    string
	Anchor   string
	Level    int
	Children []*TOCItem
}

// Link is a titled relative URL.
type Link struct {
	Title string
	URL   string
}

// Page is the page-level template data.
type Page struct {
	Title        string
	Content      template.HTML
	TOC          []*TOCItem
	Meta         frontmatter.Meta
	URL          string
	CanonicalURL string
	EditURL      string
	RevisionDate string
	Tags         []string
	Prev         *Link
	Next         *Link
	IsHomepage   bool
}

// Hidden reports whether the page meta hides a layout element.
func (p *Page) Hidden(element string) bool { return p.Meta.Hidden(element) }

// Context is the root object every template receives.
type Context struct {
	Site      Site
	Theme     string
	Nav       []*NavItem
	Page      *Page
	BaseURL   string
	Features  map[string]bool
	Palette   []config.Palette
	Analytics *config.Analytics
	ExtraCSS  []string
	ExtraJS   []string
	Search    bool
	BuildDate time.Time
	// LiveReload is set by the development server.
	LiveReload bool

	pageURL string
	absBase string
}

// HasFeature reports whether a theme feature flag is enabled.
func (c *Context) HasFeature(flag string) bool { return c.Features[flag] }

// FeatureList returns the enabled feature flags, sorted.
func (c *Context) FeatureList() []string {
	out := make([]string, 0, len(c.Features))
	for f, on := range c.Features {
		if on {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// RelURL turns a site-relative path into a URL usable from the current page.
func (c *Context) RelURL(target string) string {
	if isAbsURL(target) {
		return target
	}
	if c.absBase != "" {
		u := path.Join(c.absBase, target)
		if (target == "" || strings.HasSuffix(target, "/")) && !strings.HasSuffix(u, "/") {
			u += "/"
		}
		return u
	}
	return nav.Relative(c.pageURL, target)
}

// Scheme returns the first palette scheme, "default" when none is set.
func (c *Context) Scheme() string {
	if len(c.Palette) > 0 && c.Palette[0].Scheme != "" {
		return c.Palette[0].Scheme
	}
	return "default"
}

// Primary returns the first palette primary colour.
func (c *Context) Primary() string {
	if len(c.Palette) > 0 {
		return c.Palette[0].Primary
	}
	return ""
}

// PageData carries the per-page values the build knows.
type PageData struct {
	// URL is the site-relative page URL ("" for the home page).
	URL          string
	Title        string
	Content      string
	TOC          []*markdown.TOCEntry
	Meta         frontmatter.Meta
	SrcPath      string
	RevisionDate string
	Nav          *nav.Page
	// AbsoluteBase roots links at a fixed path instead of relative to URL.
	// The 404 page needs it because it is served under arbitrary paths.
	AbsoluteBase string
}

// NewContext assembles the template context for one page.
func NewContext(cfg *config.Config, n *nav.Nav, data PageData) *Context {
	c := &Context{
		Site: Site{
			Name:        cfg.SiteName,
			URL:         cfg.SiteURL,
			Description: cfg.SiteDescription,
			Author:      cfg.SiteAuthor,
			Copyright:   cfg.Copyright,
			RepoURL:     cfg.RepoURL,
			RepoName:    cfg.RepoName,
			Language:    cfg.Theme.Language,
			Logo:        cfg.Theme.Logo,
			Favicon:     cfg.Theme.Favicon,
			Social:      cfg.Extra.Social,
			Extra:       cfg.Extra.Values,
		},
		Theme:     cfg.Theme.Name,
		BaseURL:   BaseURL(data.URL),
		Features:  map[string]bool{},
		Palette:   cfg.Theme.Palette,
		Analytics: cfg.Extra.Analytics,
		Search:    cfg.HasPlugin("search"),
		BuildDate: time.Now().UTC(),
		pageURL:   data.URL,
		absBase:   data.AbsoluteBase,
	}
	if data.AbsoluteBase != "" {
		c.BaseURL = strings.TrimSuffix(data.AbsoluteBase, "/")
	}
	for _, f := range cfg.Theme.Features {
		c.Features[f] = true
	}
	for _, css := range cfg.ExtraCSS {
		c.ExtraCSS = append(c.ExtraCSS, c.RelURL(css))
	}
	for _, js := range cfg.ExtraJavaScript {
		c.ExtraJS = append(c.ExtraJS, c.RelURL(js))
	}

	p := &Page{
		Title:      data.Title,
		Content:    template.HTML(data.Content), //nolint:gosec // rendered by the Markdown pipeline
		TOC:        tocItems(data.TOC),
		Meta:       data.Meta,
		URL:        data.URL,
		IsHomepage: data.URL == "" && data.Nav != nil,
		Tags:       data.Meta.Tags(),
	}
	if cfg.SiteURL != "" {
		p.CanonicalURL = strings.TrimSuffix(cfg.SiteURL, "/") + "/" + data.URL
	}
	if data.SrcPath != "" {
		p.EditURL = cfg.EditURL(data.SrcPath)
	}
	p.RevisionDate = data.RevisionDate
	if data.Nav != nil {
		if data.Nav.Prev != nil {
			p.Prev = &Link{Title: data.Nav.Prev.Title, URL: c.RelURL(data.Nav.Prev.URL())}
		}
		if data.Nav.Next != nil {
			p.Next = &Link{Title: data.Nav.Next.Title, URL: c.RelURL(data.Nav.Next.URL())}
		}
	}
	c.Page = p

	if n != nil {
		active := map[*nav.Item]bool{}
		if data.Nav != nil {
			for _, it := range n.Active(data.Nav) {
				active[it] = true
			}
		}
		c.Nav = c.navItems(n.Items, active, data.Nav)
	}
	return c
}

func (c *Context) navItems(items []*nav.Item, active map[*nav.Item]bool, current *nav.Page) []*NavItem {
	out := make([]*NavItem, 0, len(items))
	for _, it := range items {
		title := it.Title
		if it.Page != nil {
			title = it.Page.Title
		}
		v := &NavItem{
			Title:  title,
			Kind:   it.Kind,
			Active: active[it],
		}
		switch it.Kind {
		case nav.KindLink:
			v.URL = it.URL
		case nav.KindPage:
			v.URL = c.RelURL(it.URL)
			v.Current = current != nil && it.Page == current
		}
		v.Children = c.navItems(it.Children, active, current)
		out = append(out, v)
	}
	return out
}

func tocItems(entries []*markdown.TOCEntry) []*TOCItem {
	out := make([]*TOCItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, &TOCItem{
			Title:    e.Text,
			Anchor:   "#" + e.ID,
			Level:    e.Level,
			Children: tocItems(e.Children),
		})
	}
	return out
}

// BaseURL returns the relative path from a page URL back to the site root.
func BaseURL(pageURL string) string {
	dir := pageURL
	if !strings.HasSuffix(dir, "/") {
		dir = path.Dir(dir)
	}
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return "."
	}
	return strings.TrimSuffix(strings.Repeat("../", strings.Count(dir, "/")+1), "/")
}

func isAbsURL(s string) bool {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "#") {
		return true
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != ""
}
