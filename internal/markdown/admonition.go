package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindAdmonition is the node kind of admonition, collapsible and tab blocks.
var KindAdmonition = ast.NewNodeKind("Admonition")

// BlockStyle selects how an Admonition node is rendered.
type BlockStyle int

const (
	StyleAdmonition BlockStyle = iota // !!! note
	StyleDetails                      // ??? note / ???+ note
	StyleTab                          // === "Tab"
)

// Admonition is a titled container whose body is indented by four spaces.
type Admonition struct {
	ast.BaseBlock
	Style   BlockStyle
	Classes []string
	Title   string
	// HasTitle is false when the title was given as an empty string.
	HasTitle bool
	Open     bool
}

// Kind implements ast.Node.
func (n *Admonition) Kind() ast.NodeKind { return KindAdmonition }

// Dump implements ast.Node.
func (n *Admonition) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Classes": strings.Join(n.Classes, " "),
		"Title":   n.Title,
	}, nil)
}

var blockHeader = regexp.MustCompile(`^(!!!|\?\?\?\+?|===\+?)(?:[ \t]+([\w-]+(?:[ \t]+[\w-]+)*))?(?:[ \t]+"(.*)")?[ \t]*$`)

type admonitionParser struct {
	admonition bool
	details    bool
	tabs       bool
}

func (p *admonitionParser) Trigger() []byte {
	return []byte{'!', '?', '='}
}

func (p *admonitionParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) {
		return nil, parser.NoChildren
	}
	header := strings.TrimRight(string(line[pos:]), "\r\n")
	m := blockHeader.FindStringSubmatch(header)
	if m == nil {
		return nil, parser.NoChildren
	}

	marker, classes, title := m[1], strings.Fields(m[2]), m[3]
	hasTitle := strings.Contains(header, `"`)
	n := &Admonition{Classes: classes, Title: title, HasTitle: true}
	switch {
	case marker == "!!!":
		if !p.admonition || len(classes) == 0 {
			return nil, parser.NoChildren
		}
	case strings.HasPrefix(marker, "???"):
		if !p.details || len(classes) == 0 {
			return nil, parser.NoChildren
		}
		n.Style = StyleDetails
		n.Open = strings.HasSuffix(marker, "+")
	default:
		if !p.tabs || !hasTitle {
			return nil, parser.NoChildren
		}
		n.Style = StyleTab
		n.Open = strings.HasSuffix(marker, "+")
	}
	if !hasTitle {
		n.Title = defaultTitle(classes[0])
	} else if title == "" {
		n.HasTitle = false
	}

	advanceToEOL(reader, line, segment)
	return n, parser.HasChildren
}

func (p *admonitionParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, _ := reader.PeekLine()
	if util.IsBlank(line) {
		reader.Advance(len(line) - 1)
		return parser.Continue | parser.HasChildren
	}
	indent, _ := util.IndentWidth(line, reader.LineOffset())
	if indent < 4 {
		return parser.Close
	}
	pos, padding := util.IndentPosition(line, reader.LineOffset(), 4)
	reader.AdvanceAndSetPadding(pos, padding)
	return parser.Continue | parser.HasChildren
}

func (p *admonitionParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *admonitionParser) CanInterruptParagraph() bool { return true }

func (p *admonitionParser) CanAcceptIndentedLine() bool { return false }

func defaultTitle(kind string) string {
	if kind == "" {
		return ""
	}
	return strings.ToUpper(kind[:1]) + strings.ToLower(kind[1:])
}

type admonitionRenderer struct{}

func (r *admonitionRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAdmonition, r.render)
}

func (r *admonitionRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Admonition)
	title := util.EscapeHTML([]byte(n.Title))
	switch n.Style {
	case StyleDetails:
		if entering {
			_, _ = w.WriteString(`<details class="` + strings.Join(n.Classes, " ") + `"`)
			if n.Open {
				_, _ = w.WriteString(" open")
			}
			_, _ = w.WriteString(">\n<summary>")
			_, _ = w.Write(title)
			_, _ = w.WriteString("</summary>\n")
		} else {
			_, _ = w.WriteString("</details>\n")
		}
	case StyleTab:
		if entering {
			_, _ = w.WriteString(`<div class="tabbed-block"><p class="tabbed-title">`)
			_, _ = w.Write(title)
			_, _ = w.WriteString("</p>\n")
		} else {
			_, _ = w.WriteString("</div>\n")
		}
	default:
		if entering {
			_, _ = w.WriteString(`<div class="admonition ` + strings.Join(n.Classes, " ") + "\">\n")
			if n.HasTitle {
				_, _ = w.WriteString(`<p class="admonition-title">`)
				_, _ = w.Write(title)
				_, _ = w.WriteString("</p>\n")
			}
		} else {
			_, _ = w.WriteString("</div>\n")
		}
	}
	return ast.WalkContinue, nil
}

// admonitionExtension registers the `!!!`, `???` and `===` container blocks.
type admonitionExtension struct {
	admonition bool
	details    bool
	tabs       bool
}

func (e *admonitionExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(&admonitionParser{admonition: e.admonition, details: e.details, tabs: e.tabs}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&admonitionRenderer{}, 500),
	))
}
