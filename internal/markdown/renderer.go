// Package markdown renders page Markdown to HTML with the configured
// extensions and extracts links for analysis.
package markdown

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Extensions accepted without changing the output. Their syntax is either
// plain Markdown already or purely presentational.
var acceptedExtensions = map[string]bool{
	"abbr":                  true,
	"md_in_html":            true,
	"meta":                  true,
	"extra":                 true,
	"fenced_code":           true,
	"codehilite":            true,
	"sane_lists":            true,
	"pymdownx.emoji":        true,
	"pymdownx.betterem":     true,
	"pymdownx.caret":        true,
	"pymdownx.mark":         true,
	"pymdownx.keys":         true,
	"pymdownx.critic":       true,
	"pymdownx.inlinehilite": true,
	"pymdownx.escapeall":    true,
	"pymdownx.saneheaders":  true,
}

// handledExtensions map to goldmark features.
var handledExtensions = map[string]bool{
	"tables":                  true,
	"footnotes":               true,
	"def_list":                true,
	"attr_list":               true,
	"admonition":              true,
	"toc":                     true,
	"nl2br":                   true,
	"smarty":                  true,
	"pymdownx.details":        true,
	"pymdownx.superfences":    true,
	"pymdownx.highlight":      true,
	"pymdownx.snippets":       true,
	"pymdownx.tasklist":       true,
	"pymdownx.tabbed":         true,
	"pymdownx.arithmatex":     true,
	"pymdownx.magiclink":      true,
	"pymdownx.tilde":          true,
	"pymdownx.smartsymbols":   true,
	"markdown.extensions.toc": true,
}

// addExtenders appends each extender not already in list. Several
// extension names enable the same goldmark extender.
func addExtenders(list []goldmark.Extender, add ...goldmark.Extender) []goldmark.Extender {
	for _, e := range add {
		if !slices.Contains(list, e) {
			list = append(list, e)
		}
	}
	return list
}

// Known reports whether an extension name is recognised.
func Known(name string) bool {
	return handledExtensions[name] || acceptedExtensions[name]
}

// Renderer converts Markdown bodies to HTML.
type Renderer struct {
	md        goldmark.Markdown
	tocDepth  int
	permalink string
	snippets  *snippets
	extenders []goldmark.Extender
}

// NewRenderer configures goldmark for the extension list. Relative snippet
// base paths resolve against root. Unrecognised extension names are returned.
func NewRenderer(exts config.ExtensionList, root string) (*Renderer, []string) {
	r := &Renderer{tocDepth: 6}
	var (
		unknown    []string
		gmExts     []goldmark.Extender
		parserOpts = []parser.Option{parser.WithAutoHeadingID(), parser.WithHeadingAttribute()}
		renderOpts = []goldmark.Option{}
		htmlOpts   = []renderer.Option{html.WithUnsafe()}
		admon      = &admonitionExtension{}
		fences     = &fenceRenderer{custom: map[string]customFence{}}
		mathExt    = &mathExtension{}
		attrs      bool
	)

	// Tables, heading ids and `{#id}` heading attributes are always on.
	gmExts = append(gmExts, extension.Table)

	for _, e := range exts {
		switch e.Name {
		case "tables", "fenced_code", "meta":
		case "footnotes":
			gmExts = addExtenders(gmExts, extension.Footnote)
		case "def_list":
			gmExts = addExtenders(gmExts, extension.DefinitionList)
		case "attr_list":
			attrs = true
		case "extra":
			gmExts = addExtenders(gmExts, extension.Footnote, extension.DefinitionList)
			attrs = true
		case "admonition":
			admon.admonition = true
		case "pymdownx.details":
			admon.details = true
		case "pymdownx.tabbed":
			admon.tabs = true
		case "toc", "markdown.extensions.toc":
			r.configureTOC(e.Options)
		case "nl2br":
			htmlOpts = append(htmlOpts, html.WithHardWraps())
		case "smarty", "pymdownx.smartsymbols":
			gmExts = addExtenders(gmExts, extension.Typographer)
		case "pymdownx.superfences":
			for name, cls := range customFences(e.Options) {
				fences.custom[name] = customFence{Name: name, Class: cls}
			}
		case "pymdownx.highlight":
			fences.highlight = true
		case "pymdownx.snippets":
			r.snippets = newSnippets(e.Options, root)
		case "pymdownx.tasklist":
			gmExts = addExtenders(gmExts, extension.TaskList)
		case "pymdownx.arithmatex":
			gmExts = addExtenders(gmExts, mathExt)
		case "pymdownx.magiclink":
			gmExts = addExtenders(gmExts, extension.Linkify)
		case "pymdownx.tilde":
			gmExts = addExtenders(gmExts, extension.Strikethrough)
		default:
			if !acceptedExtensions[e.Name] {
				unknown = append(unknown, e.Name)
			}
		}
	}
	if admon.admonition || admon.details || admon.tabs {
		gmExts = append(gmExts, admon)
	}
	if attrs {
		parserOpts = append(parserOpts, parser.WithAttribute())
	}
	r.extenders = gmExts

	renderOpts = append(renderOpts,
		goldmark.WithExtensions(gmExts...),
		goldmark.WithParserOptions(append(parserOpts,
			parser.WithASTTransformers(util.Prioritized(&pageTransformer{}, 100)))...),
		goldmark.WithRendererOptions(append(htmlOpts,
			renderer.WithNodeRenderers(util.Prioritized(fences, 200)))...),
	)
	r.md = goldmark.New(renderOpts...)
	return r, unknown
}

func (r *Renderer) configureTOC(opts map[string]any) {
	switch v := opts["permalink"].(type) {
	case bool:
		if v {
			r.permalink = "¶"
		}
	case string:
		r.permalink = v
	}
	switch v := opts["toc_depth"].(type) {
	case int:
		r.tocDepth = v
	case string:
		// "2-4" ranges keep the upper bound.
		if _, hi, ok := cutRange(v); ok {
			r.tocDepth = hi
		} else if n, err := strconv.Atoi(v); err == nil {
			r.tocDepth = n
		}
	}
}

func cutRange(s string) (int, int, bool) {
	var lo, hi int
	if _, err := fmt.Sscanf(s, "%d-%d", &lo, &hi); err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func customFences(opts map[string]any) map[string]string {
	out := map[string]string{}
	list, _ := opts["custom_fences"].([]any)
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		cls, _ := m["class"].(string)
		if name == "" {
			continue
		}
		if cls == "" {
			cls = name
		}
		out[name] = cls
	}
	return out
}

func newSnippets(opts map[string]any, root string) *snippets {
	s := &snippets{}
	switch v := opts["base_path"].(type) {
	case string:
		s.basePaths = []string{v}
	case []any:
		for _, p := range v {
			if ps, ok := p.(string); ok {
				s.basePaths = append(s.basePaths, ps)
			}
		}
	}
	if len(s.basePaths) == 0 {
		s.basePaths = []string{"."}
	}
	for i, p := range s.basePaths {
		if !filepath.IsAbs(p) {
			s.basePaths[i] = filepath.Join(root, p)
		}
	}
	s.checkPaths, _ = opts["check_paths"].(bool)
	return s
}

// Heading is one document heading.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// TOCEntry is a node of the nested table of contents.
type TOCEntry struct {
	Heading
	Children []*TOCEntry
}

// Rendered is the output of Render.
type Rendered struct {
	HTML     string
	Title    string
	Headings []Heading
	TOC      []*TOCEntry
	Warnings []string
}

// LinkResolver maps a relative link destination found in a page to its
// final URL. ok=false leaves the destination unchanged; err reports an
// unresolvable link and is recorded as a warning.
type LinkResolver func(dest string) (url string, ok bool, err error)

// Context carries per-page render inputs. IDs, when set, is shared by
// every Render call for the same page so heading ids do not repeat.
type Context struct {
	Resolve LinkResolver
	IDs     *HeadingIDs
}

// Render converts a Markdown body to HTML.
func (r *Renderer) Render(src []byte, ctx Context) (*Rendered, error) {
	var warnings []string
	if r.snippets != nil {
		expanded, w, err := r.snippets.expand(src, 0)
		if err != nil {
			return nil, errors.DocsError("expand snippets").WithCause(err).Build()
		}
		src, warnings = expanded, w
	}

	st := &renderState{
		resolve:   ctx.Resolve,
		tocDepth:  r.tocDepth,
		permalink: r.permalink,
		warnings:  warnings,
	}
	ids := ctx.IDs
	if ids == nil {
		ids = NewHeadingIDs()
	}
	pc := parser.NewContext(parser.WithIDs(ids))
	pc.Set(renderStateKey, st)
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, errors.DocsError("render markdown").WithCause(err).Build()
	}
	return &Rendered{
		HTML:     buf.String(),
		Title:    st.title,
		Headings: st.headings,
		TOC:      NestTOC(st.headings, r.tocDepth),
		Warnings: st.warnings,
	}, nil
}

// NestTOC nests headings up to depth by level.
func NestTOC(headings []Heading, depth int) []*TOCEntry {
	var (
		roots []*TOCEntry
		stack []*TOCEntry
	)
	for _, h := range headings {
		if h.Level > depth {
			continue
		}
		e := &TOCEntry{Heading: h}
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, e)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, e)
		}
		stack = append(stack, e)
	}
	return roots
}

// TOCDepth returns the configured maximum table-of-contents level.
func (r *Renderer) TOCDepth() int { return r.tocDepth }
