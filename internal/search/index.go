// Package search builds the client-side search index (search_index.json).
package search

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Config is the index-level configuration consumed by the search client.
type Config struct {
	Lang            []string `json:"lang"`
	Separator       string   `json:"separator"`
	Pipeline        []string `json:"pipeline"`
	MinSearchLength int      `json:"-"`
}

// DefaultSeparator matches whitespace and hyphens.
const DefaultSeparator = `[\s\-]+`

// Doc is one searchable entry.
type Doc struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// Index is the search_index.json document.
type Index struct {
	Config Config `json:"config"`
	Docs   []Doc  `json:"docs"`
}

// NewIndex returns an empty index with defaults applied from plugin options.
func NewIndex(opts map[string]any, themeLang string) *Index {
	cfg := Config{
		Separator:       DefaultSeparator,
		Pipeline:        []string{"stopWordFilter"},
		MinSearchLength: 3,
	}
	switch v := opts["lang"].(type) {
	case string:
		cfg.Lang = []string{v}
	case []any:
		for _, l := range v {
			if s, ok := l.(string); ok {
				cfg.Lang = append(cfg.Lang, s)
			}
		}
	}
	if len(cfg.Lang) == 0 {
		lang := themeLang
		if lang == "" {
			lang = "en"
		}
		cfg.Lang = []string{lang}
	}
	if v, ok := opts["separator"].(string); ok && v != "" {
		cfg.Separator = v
	}
	if v, ok := opts["min_search_length"].(int); ok && v > 0 {
		cfg.MinSearchLength = v
	}
	if v, ok := opts["pipeline"].([]any); ok {
		cfg.Pipeline = nil
		for _, p := range v {
			if s, ok := p.(string); ok {
				cfg.Pipeline = append(cfg.Pipeline, s)
			}
		}
	}
	return &Index{Config: cfg, Docs: []Doc{}}
}

// AddPage indexes a rendered page: one entry for the page and one for each
// heading section. location is the page URL relative to the site root.
func (ix *Index) AddPage(location, title, content string) {
	sections := splitSections(content)
	var all []string
	for _, s := range sections {
		all = append(all, s.text...)
	}
	ix.Docs = append(ix.Docs, Doc{Location: location, Title: title, Text: joinText(all)})
	for _, s := range sections {
		if s.id == "" {
			continue
		}
		ix.Docs = append(ix.Docs, Doc{
			Location: location + "#" + s.id,
			Title:    s.title,
			Text:     joinText(s.text),
		})
	}
}

// JSON encodes the index.
func (ix *Index) JSON() ([]byte, error) {
	return json.Marshal(ix)
}

type section struct {
	id    string
	title string
	text  []string
}

// splitSections walks the HTML and starts a new section at every heading
// that has an id. Text before the first heading belongs to the page entry.
func splitSections(content string) []*section {
	doc, err := html.Parse(strings.NewReader("<body>" + content + "</body>"))
	if err != nil {
		return []*section{{text: []string{content}}}
	}
	cur := &section{}
	out := []*section{cur}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				if id := attr(n, "id"); id != "" {
					cur = &section{id: id, title: headingText(n)}
					out = append(out, cur)
					return
				}
			case atom.A:
				if hasClass(n, "headerlink") {
					return
				}
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				cur.text = append(cur.text, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func headingText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && hasClass(n, "headerlink") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return joinText(parts)
}

// Text returns the visible text of an HTML fragment with whitespace collapsed.
func Text(content string) string {
	var all []string
	for _, s := range splitSections(content) {
		if s.title != "" {
			all = append(all, s.title)
		}
		all = append(all, s.text...)
	}
	return joinText(all)
}

func joinText(parts []string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
