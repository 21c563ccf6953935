package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Math is passed through untouched for client-side typesetting, wrapped the
// way MathJax and KaTeX loaders expect (`\(..\)` inline, `\[..\]` display).

var (
	KindInlineMath = ast.NewNodeKind("InlineMath")
	KindMathBlock  = ast.NewNodeKind("MathBlock")
)

// InlineMath is `$...$`.
type InlineMath struct {
	ast.BaseInline
	Value []byte
}

func (n *InlineMath) Kind() ast.NodeKind { return KindInlineMath }

func (n *InlineMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": string(n.Value)}, nil)
}

// MathBlock is a `$$` fenced block.
type MathBlock struct {
	ast.BaseBlock
	closed bool
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

func (n *MathBlock) IsRaw() bool { return true }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type inlineMathParser struct{}

func (p *inlineMathParser) Trigger() []byte { return []byte{'$'} }

func (p *inlineMathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 3 || line[1] == '$' || line[1] == ' ' {
		return nil
	}
	end := -1
	for i := 1; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == '$' {
			end = i
			break
		}
	}
	if end < 2 || line[end-1] == ' ' {
		return nil
	}
	n := &InlineMath{Value: append([]byte(nil), line[1:end]...)}
	block.Advance(end + 1)
	return n
}

type mathBlockParser struct{}

func (p *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (p *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], []byte("$$")) {
		return nil, parser.NoChildren
	}
	n := &MathBlock{}
	rest := bytes.TrimSpace(line[pos+2:])
	if len(rest) > 0 {
		// Single line form: $$ x^2 $$
		if !bytes.HasSuffix(rest, []byte("$$")) {
			return nil, parser.NoChildren
		}
		start := segment.Start + pos + 2
		stop := segment.Start + bytes.LastIndex(line, []byte("$$"))
		n.Lines().Append(text.NewSegment(start, stop))
		n.closed = true
	}
	return n, parser.NoChildren
}

func (p *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*MathBlock)
	if n.closed {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	if bytes.Equal(bytes.TrimSpace(line), []byte("$$")) {
		advanceToEOL(reader, line, segment)
		return parser.Close
	}
	n.Lines().Append(segment)
	advanceToEOL(reader, line, segment)
	return parser.Continue | parser.NoChildren
}

// advanceToEOL consumes the current line up to its newline; the block
// parser loop moves to the next line itself.
func advanceToEOL(reader text.Reader, line []byte, segment text.Segment) {
	n := segment.Len()
	if n > 0 && line[len(line)-1] == '\n' {
		n--
	}
	reader.Advance(n)
}

func (p *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *mathBlockParser) CanInterruptParagraph() bool { return true }

func (p *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type mathRenderer struct{}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindInlineMath, r.renderInline)
	reg.Register(KindMathBlock, r.renderBlock)
}

func (r *mathRenderer) renderInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(`<span class="arithmatex">\(`)
		_, _ = w.Write(util.EscapeHTML(node.(*InlineMath).Value))
		_, _ = w.WriteString(`\)</span>`)
	}
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<div class="arithmatex">\[`)
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
	_, _ = w.WriteString("\\]</div>\n")
	return ast.WalkContinue, nil
}

type mathExtension struct{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 160)),
		parser.WithInlineParsers(util.Prioritized(&inlineMathParser{}, 150)),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(&mathRenderer{}, 500)))
}
