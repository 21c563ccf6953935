package markdown

import (
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// customFence is a superfences `custom_fences` entry: code blocks in the
// named language are emitted for client-side rendering (e.g. mermaid).
type customFence struct {
	Name  string
	Class string
}

var fenceTitle = regexp.MustCompile(`title="([^"]*)"`)

type fenceRenderer struct {
	custom    map[string]customFence
	highlight bool
}

func (r *fenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.render)
}

func (r *fenceRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	lang := string(n.Language(source))

	if cf, ok := r.custom[lang]; ok {
		_, _ = w.WriteString(`<pre class="` + cf.Class + `"><code>`)
		writeLines(w, source, n)
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkSkipChildren, nil
	}

	if r.highlight {
		_, _ = w.WriteString(`<div class="highlight">`)
		if n.Info != nil {
			if m := fenceTitle.FindSubmatch(n.Info.Segment.Value(source)); m != nil {
				_, _ = w.WriteString(`<span class="filename">`)
				_, _ = w.Write(util.EscapeHTML(m[1]))
				_, _ = w.WriteString("</span>")
			}
		}
	}
	_, _ = w.WriteString("<pre><code")
	if lang != "" {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML([]byte(lang)))
		_, _ = w.WriteString(`"`)
	}
	_, _ = w.WriteString(">")
	writeLines(w, source, n)
	_, _ = w.WriteString("</code></pre>")
	if r.highlight {
		_, _ = w.WriteString("</div>")
	}
	_, _ = w.WriteString("\n")
	return ast.WalkSkipChildren, nil
}

func writeLines(w util.BufWriter, source []byte, n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
}
