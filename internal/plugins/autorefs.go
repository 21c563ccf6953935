package plugins

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/nav"
)

// AutorefsName is the configuration name of the cross-reference plugin.
const AutorefsName = "autorefs"

// autoref matches "[text][id]" and "[id][]" left literal by the Markdown
// renderer because no reference definition existed.
var autoref = regexp.MustCompile(`\[([^\[\]]+?)\]\[([^\[\]]*)\]`)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Autorefs resolves references to headings and API objects across pages.
type Autorefs struct {
	once sync.Once
}

// NewAutorefs returns the cross-reference plugin.
func NewAutorefs() *Autorefs { return &Autorefs{} }

func (a *Autorefs) Name() string { return AutorefsName }

func (a *Autorefs) Configure(map[string]any) error { return nil }

// registerHeadings adds every page heading; API anchors registered while
// rendering take precedence.
func (a *Autorefs) registerHeadings(site *Site) {
	for _, p := range site.Pages {
		if p.Rendered == nil {
			continue
		}
		for _, h := range p.Rendered.Headings {
			if h.ID != "" {
				site.Anchors.Register(h.ID, p.URL()+"#"+h.ID)
			}
		}
	}
}

func (a *Autorefs) OnPageContent(content string, page *Page, site *Site) (string, error) {
	a.once.Do(func() { a.registerHeadings(site) })
	return Rewrite(content, page.URL(), site.Anchors), nil
}

// Rewrite replaces resolvable references in content with links relative to
// the page at from. Code blocks are left untouched.
func Rewrite(content, from string, anchors *Anchors) string {
	var b strings.Builder
	rest := content
	for {
		start := strings.Index(rest, "<pre")
		if start < 0 {
			b.WriteString(rewriteSpan(rest, from, anchors))
			return b.String()
		}
		b.WriteString(rewriteSpan(rest[:start], from, anchors))
		end := strings.Index(rest[start:], "</pre>")
		if end < 0 {
			b.WriteString(rest[start:])
			return b.String()
		}
		end += start + len("</pre>")
		b.WriteString(rest[start:end])
		rest = rest[end:]
	}
}

func rewriteSpan(s, from string, anchors *Anchors) string {
	return autoref.ReplaceAllStringFunc(s, func(m string) string {
		sub := autoref.FindStringSubmatch(m)
		text, id := sub[1], sub[2]
		if id == "" {
			id = tagPattern.ReplaceAllString(text, "")
		}
		id = strings.TrimSpace(html.UnescapeString(id))
		url, ok := anchors.Lookup(id)
		if !ok {
			return m
		}
		return `<a class="autorefs autorefs-internal" href="` + html.EscapeString(nav.Relative(from, url)) + `">` + text + `</a>`
	})
}
