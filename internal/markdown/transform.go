package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var renderStateKey = parser.NewContextKey()

// renderState is shared between Render and the AST transformer for one page.
type renderState struct {
	resolve   LinkResolver
	tocDepth  int
	permalink string

	title    string
	headings []Heading
	warnings []string
}

// pageTransformer collects headings, adds permalinks and rewrites relative
// link destinations.
type pageTransformer struct{}

func (t *pageTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	st, ok := pc.Get(renderStateKey).(*renderState)
	if !ok {
		return
	}
	source := reader.Source()

	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			headings = append(headings, node)
		case *ast.Link:
			node.Destination = st.rewrite(node.Destination)
		case *ast.Image:
			node.Destination = st.rewrite(node.Destination)
		}
		return ast.WalkContinue, nil
	})

	for _, h := range headings {
		id := headingID(h)
		txt := plainText(h, source)
		if h.Level == 1 && st.title == "" {
			st.title = txt
		}
		st.headings = append(st.headings, Heading{Level: h.Level, ID: id, Text: txt})
		if st.permalink != "" && id != "" && h.Level <= st.tocDepth {
			link := ast.NewString([]byte(`<a class="headerlink" href="#` + id + `" title="Permanent link">` +
				string(util.EscapeHTML([]byte(st.permalink))) + `</a>`))
			link.SetCode(true)
			h.AppendChild(h, link)
		}
	}
}

func (st *renderState) rewrite(dest []byte) []byte {
	if st.resolve == nil || len(dest) == 0 || isExternal(string(dest)) {
		return dest
	}
	url, ok, err := st.resolve(string(dest))
	if err != nil {
		st.warnings = append(st.warnings, err.Error())
		return dest
	}
	if !ok {
		return dest
	}
	return []byte(url)
}

func isExternal(dest string) bool {
	if strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") {
		return true
	}
	scheme, _, ok := strings.Cut(dest, ":")
	return ok && !strings.ContainsAny(scheme, "/.?#")
}

func headingID(h *ast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	}
	return ""
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			if !t.IsCode() {
				b.Write(t.Value)
			}
		case *InlineMath:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
