package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/docs"
)

func render(t *testing.T, exts config.ExtensionList, src string, ctx Context) *Rendered {
	t.Helper()
	r, unknown := NewRenderer(exts, t.TempDir())
	require.Empty(t, unknown)
	out, err := r.Render([]byte(src), ctx)
	require.NoError(t, err)
	return out
}

func TestNewRenderer_ReportsUnknownExtensions(t *testing.T) {
	_, unknown := NewRenderer(config.ExtensionList{
		{Name: "admonition"},
		{Name: "pymdownx.emoji"},
		{Name: "not.a.real.extension"},
	}, ".")
	require.Equal(t, []string{"not.a.real.extension"}, unknown)
	require.True(t, Known("pymdownx.superfences"))
	require.False(t, Known("bogus"))
}

func TestRender_TitleAndTOC(t *testing.T) {
	exts := config.ExtensionList{{Name: "toc", Options: map[string]any{"permalink": true, "toc_depth": 3}}}
	out := render(t, exts, "# Forecasting\n\n## Models\n\n### Linear\n\n#### Deep\n\n## Metrics\n", Context{})

	require.Equal(t, "Forecasting", out.Title)
	require.Len(t, out.Headings, 5)
	require.Equal(t, "models", out.Headings[1].ID)
	require.Contains(t, out.HTML, `<a class="headerlink" href="#models" title="Permanent link">¶</a>`)
	require.NotContains(t, out.HTML, `href="#deep"`)

	require.Len(t, out.TOC, 1)
	require.Equal(t, "Forecasting", out.TOC[0].Text)
	require.Len(t, out.TOC[0].Children, 2)
	require.Equal(t, "Linear", out.TOC[0].Children[0].Children[0].Text)
	require.Empty(t, out.TOC[0].Children[0].Children[0].Children)
}

func TestRender_Admonition(t *testing.T) {
	exts := config.ExtensionList{{Name: "admonition"}, {Name: "pymdownx.details"}}
	src := "!!! note \"Heads up\"\n    Body *text*.\n\n??? warning\n    Hidden.\n\n???+ tip\n    Shown.\n\nAfter.\n"
	out := render(t, exts, src, Context{})

	require.Contains(t, out.HTML, `<div class="admonition note">`)
	require.Contains(t, out.HTML, `<p class="admonition-title">Heads up</p>`)
	require.Contains(t, out.HTML, `<p>Body <em>text</em>.</p>`)
	require.Contains(t, out.HTML, "<details class=\"warning\">\n<summary>Warning</summary>")
	require.Contains(t, out.HTML, `<details class="tip" open>`)
	require.Contains(t, out.HTML, "<p>After.</p>")
}

func TestRender_AdmonitionDisabledIsParagraph(t *testing.T) {
	out := render(t, nil, "!!! note\n    Body\n", Context{})
	require.NotContains(t, out.HTML, "admonition")
}

func TestRender_AdmonitionEmptyTitle(t *testing.T) {
	out := render(t, config.ExtensionList{{Name: "admonition"}}, "!!! info \"\"\n    Body\n", Context{})
	require.Contains(t, out.HTML, `<div class="admonition info">`)
	require.NotContains(t, out.HTML, "admonition-title")
}

func TestRender_Math(t *testing.T) {
	out := render(t, config.ExtensionList{{Name: "pymdownx.arithmatex"}},
		"Inline $a_1 * b_2$ costs $5 and $10.\n\n$$\nx^2 + y_i\n$$\n", Context{})
	require.Contains(t, out.HTML, `<span class="arithmatex">\(a_1 * b_2\)</span>`)
	require.Contains(t, out.HTML, "costs $5 and $10.")
	require.Contains(t, out.HTML, "<div class=\"arithmatex\">\\[x^2 + y_i\n\\]</div>")
}

func TestRender_CustomFenceAndHighlight(t *testing.T) {
	exts := config.ExtensionList{
		{Name: "pymdownx.highlight"},
		{Name: "pymdownx.superfences", Options: map[string]any{
			"custom_fences": []any{map[string]any{"name": "mermaid", "class": "mermaid", "format": "!!python/name:pymdownx.superfences.fence_code_format"}},
		}},
	}
	out := render(t, exts, "```mermaid\ngraph LR\n```\n\n```python title=\"fit.py\"\nx < 1\n```\n", Context{})
	require.Contains(t, out.HTML, "<pre class=\"mermaid\"><code>graph LR\n</code></pre>")
	require.Contains(t, out.HTML, `<div class="highlight"><span class="filename">fit.py</span><pre><code class="language-python">x &lt; 1`)
}

func TestRender_Snippets(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "shared.md"), []byte("Shared *text*\n"), 0o644))

	r, _ := NewRenderer(config.ExtensionList{{Name: "pymdownx.snippets"}}, root)
	out, err := r.Render([]byte("Intro\n\n--8<-- \"shared.md\"\n\n--8<-- \"missing.md\"\n"), Context{})
	require.NoError(t, err)
	require.Contains(t, out.HTML, "<p>Shared <em>text</em></p>")
	require.Len(t, out.Warnings, 1)

	strict, _ := NewRenderer(config.ExtensionList{{Name: "pymdownx.snippets", Options: map[string]any{"check_paths": true}}}, root)
	_, err = strict.Render([]byte("--8<-- \"missing.md\"\n"), Context{})
	require.Error(t, err)
}

func TestRender_RewritesLinks(t *testing.T) {
	files := docs.NewFiles(
		docs.NewFile("index.md", "/d/index.md", true),
		docs.NewFile("guide/usage.md", "/d/guide/usage.md", true),
		docs.NewFile("notebooks/intro.ipynb", "/d/notebooks/intro.ipynb", true),
		docs.NewFile("img/plot.png", "/d/img/plot.png", true),
	)
	page, _ := files.Get("guide/usage.md")
	src := "[Home](../index.md) [NB](../notebooks/intro.ipynb#setup) ![p](../img/plot.png) [Ext](https://x.org) [Bad](nope.md)\n"

	out := render(t, nil, src, Context{Resolve: FileResolver(files, page)})
	require.Contains(t, out.HTML, `href="../../"`)
	require.Contains(t, out.HTML, `href="../../notebooks/intro/#setup"`)
	require.Contains(t, out.HTML, `src="../../img/plot.png"`)
	require.Contains(t, out.HTML, `href="https://x.org"`)
	require.Contains(t, out.HTML, `href="nope.md"`)
	require.Len(t, out.Warnings, 1)
	require.Contains(t, out.Warnings[0], "nope.md")
}

func TestRender_TablesTasklistStrikethrough(t *testing.T) {
	exts := config.ExtensionList{{Name: "pymdownx.tasklist"}, {Name: "pymdownx.tilde"}}
	out := render(t, exts, "| a | b |\n|---|---|\n| 1 | 2 |\n\n- [x] done\n\n~~gone~~\n", Context{})
	require.Contains(t, out.HTML, "<table>")
	require.Contains(t, out.HTML, `type="checkbox"`)
	require.Contains(t, out.HTML, "<del>gone</del>")
}

func TestNewRenderer_SharedExtendersAddedOnce(t *testing.T) {
	r, unknown := NewRenderer(config.ExtensionList{
		{Name: "extra"},
		{Name: "footnotes"},
		{Name: "def_list"},
		{Name: "smarty"},
		{Name: "pymdownx.smartsymbols"},
		{Name: "pymdownx.arithmatex"},
		{Name: "pymdownx.arithmatex"},
	}, t.TempDir())
	require.Empty(t, unknown)
	// table, footnote, definition list, typographer, math
	require.Len(t, r.extenders, 5)

	out, err := r.Render([]byte("Text[^1].\n\nTerm\n: Definition\n\n[^1]: Note.\n"), Context{})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out.HTML, `class="footnotes"`))
	require.Equal(t, 1, strings.Count(out.HTML, "<dl>"))
}

func TestRender_SharedHeadingIDs(t *testing.T) {
	r, _ := NewRenderer(config.ExtensionList{}, t.TempDir())
	ctx := Context{IDs: NewHeadingIDs()}
	first, err := r.Render([]byte("## Setup\n\n## Setup\n"), ctx)
	require.NoError(t, err)
	second, err := r.Render([]byte("## Setup {#custom}\n\n## Setup\n"), ctx)
	require.NoError(t, err)

	var ids []string
	for _, h := range append(first.Headings, second.Headings...) {
		ids = append(ids, h.ID)
	}
	require.Equal(t, []string{"setup", "setup-1", "custom", "setup-2"}, ids)

	alone, err := r.Render([]byte("## Setup\n"), Context{})
	require.NoError(t, err)
	require.Equal(t, "setup", alone.Headings[0].ID)
}
