package notebook

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/markdown"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// Render converts nb into page HTML. Markdown cells go through md so links,
// headings and extensions behave like regular pages. sourceURL, when set,
// is linked as the notebook download.
func Render(nb *Notebook, opts Options, md *markdown.Renderer, ctx markdown.Context, sourceURL string) (*markdown.Rendered, error) {
	var (
		b   strings.Builder
		out = &markdown.Rendered{}
	)
	lang := nb.Language()
	if ctx.IDs == nil {
		ctx.IDs = markdown.NewHeadingIDs()
	}

	if opts.IncludeSource && sourceURL != "" {
		fmt.Fprintf(&b, "<a class=\"notebook-download\" href=\"%s\" download>Download notebook</a>\n", html.EscapeString(sourceURL))
	}

	for i := range nb.Cells {
		cell := &nb.Cells[i]
		if cell.Metadata.HasTag(opts.RemoveCellTags) {
			continue
		}
		switch cell.CellType {
		case "markdown":
			r, err := md.Render([]byte(cell.Source), ctx)
			if err != nil {
				return nil, err
			}
			if out.Title == "" && r.Title != "" && !opts.IgnoreH1Titles {
				out.Title = r.Title
			}
			out.Headings = append(out.Headings, r.Headings...)
			out.Warnings = append(out.Warnings, r.Warnings...)
			b.WriteString("<div class=\"cell markdown\">\n")
			b.WriteString(r.HTML)
			b.WriteString("</div>\n")
		case "code":
			renderCode(&b, cell, lang, opts)
		case "raw":
			b.WriteString("<div class=\"cell raw\"><pre>")
			b.WriteString(html.EscapeString(cell.Source.String()))
			b.WriteString("</pre></div>\n")
		}
	}

	out.HTML = b.String()
	out.TOC = markdown.NestTOC(out.Headings, md.TOCDepth())
	return out, nil
}

func renderCode(b *strings.Builder, cell *Cell, lang string, opts Options) {
	b.WriteString("<div class=\"cell code\">\n")
	if opts.ShowInput && !cell.Metadata.HasTag(opts.RemoveInputTags) && strings.TrimSpace(cell.Source.String()) != "" {
		b.WriteString("<div class=\"input\">")
		fmt.Fprintf(b, "<div class=\"prompt\">In [%s]:</div>", count(cell.ExecutionCount))
		fmt.Fprintf(b, "<pre><code class=\"language-%s\">%s</code></pre>", html.EscapeString(lang), html.EscapeString(cell.Source.String()))
		b.WriteString("</div>\n")
	}
	if len(cell.Outputs) > 0 && !cell.Metadata.HasTag(opts.RemoveOutputTags) {
		b.WriteString("<div class=\"outputs\">\n")
		for i := range cell.Outputs {
			renderOutput(b, &cell.Outputs[i])
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n")
}

func count(n *int) string {
	if n == nil {
		return " "
	}
	return fmt.Sprint(*n)
}

// mimeOrder is the preference order for rich outputs.
var mimeOrder = []string{
	"text/html",
	"image/svg+xml",
	"image/png",
	"image/jpeg",
	"image/gif",
	"text/markdown",
	"text/latex",
	"text/plain",
}

func renderOutput(b *strings.Builder, o *Output) {
	switch o.OutputType {
	case "stream":
		name := o.Name
		if name == "" {
			name = "stdout"
		}
		fmt.Fprintf(b, "<pre class=\"output stream %s\">%s</pre>\n", html.EscapeString(name), html.EscapeString(ansiEscape.ReplaceAllString(o.Text.String(), "")))
	case "execute_result", "display_data":
		for _, mime := range mimeOrder {
			data, ok := o.Data[mime]
			if !ok {
				continue
			}
			renderMime(b, mime, data.String())
			return
		}
	case "error":
		var tb []string
		for _, line := range o.Traceback {
			tb = append(tb, ansiEscape.ReplaceAllString(line, ""))
		}
		text := strings.Join(tb, "\n")
		if text == "" {
			text = o.EName + ": " + o.EValue
		}
		fmt.Fprintf(b, "<pre class=\"output error\">%s</pre>\n", html.EscapeString(text))
	}
}

func renderMime(b *strings.Builder, mime, data string) {
	switch mime {
	case "text/html", "image/svg+xml":
		fmt.Fprintf(b, "<div class=\"output html\">%s</div>\n", data)
	case "image/png", "image/jpeg", "image/gif":
		payload := strings.Join(strings.Fields(data), "")
		fmt.Fprintf(b, "<div class=\"output image\"><img src=\"data:%s;base64,%s\" alt=\"output\"></div>\n", mime, payload)
	case "text/markdown":
		// Rendered as preformatted text; markdown output is rare and may
		// reference kernel state.
		fmt.Fprintf(b, "<div class=\"output markdown\"><pre>%s</pre></div>\n", html.EscapeString(data))
	case "text/latex":
		fmt.Fprintf(b, "<div class=\"output latex arithmatex\">%s</div>\n", html.EscapeString(data))
	default:
		fmt.Fprintf(b, "<pre class=\"output text\">%s</pre>\n", html.EscapeString(data))
	}
}
