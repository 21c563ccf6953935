package plugins

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/nav"
)

func testConfig(t *testing.T, yml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yml))
	require.NoError(t, err)
	return cfg
}

func testPage(src, title string, meta frontmatter.Meta) *Page {
	f := docs.NewFile(src, filepath.Join("/docs", src), true)
	return &Page{Page: &nav.Page{File: f, Title: title, Meta: meta}}
}

func testSite(t *testing.T, cfg *config.Config, pages ...*Page) *Site {
	t.Helper()
	md, _ := markdown.NewRenderer(cfg.MarkdownExtensions, cfg.Root)
	files := docs.NewFiles()
	for _, p := range pages {
		files.Add(p.File)
	}
	return &Site{
		Context:   context.Background(),
		Config:    cfg,
		Files:     files,
		Pages:     pages,
		Markdown:  md,
		OutputDir: t.TempDir(),
		Anchors:   NewAnchors(),
	}
}

type countingRecorder struct {
	metrics.NoopRecorder
	calls map[string]int
}

func (c *countingRecorder) IncPluginInvocation(plugin, hook string) {
	c.calls[plugin+"/"+hook]++
}

type upperPlugin struct{ name, suffix string }

func (u *upperPlugin) Name() string                   { return u.name }
func (u *upperPlugin) Configure(map[string]any) error { return nil }
func (u *upperPlugin) OnPageMarkdown(md string, _ *Page, _ *Site) (string, error) {
	return md + u.suffix, nil
}

type failingPlugin struct{}

func (failingPlugin) Name() string                   { return "boom" }
func (failingPlugin) Configure(map[string]any) error { return nil }
func (failingPlugin) OnPostBuild(*Site) error        { return stderrors.New("kaput") }

func TestSet_HooksRunInOrder(t *testing.T) {
	rec := &countingRecorder{calls: map[string]int{}}
	set := NewSet(rec, &upperPlugin{"a", "-a"}, &upperPlugin{"b", "-b"}, failingPlugin{})
	cfg := testConfig(t, "site_name: T\n")
	page := testPage("index.md", "Home", nil)
	site := testSite(t, cfg, page)

	out, err := set.OnPageMarkdown("x", page, site)
	require.NoError(t, err)
	require.Equal(t, "x-a-b", out)
	require.Equal(t, 1, rec.calls["a/page_markdown"])

	err = set.OnPostBuild(site)
	require.Error(t, err)
	require.Contains(t, err.Error(), "kaput")

	_, ok := set.Get("b")
	require.True(t, ok)
	_, ok = set.NotebookRenderer()
	require.False(t, ok)
}

func TestRegistry_DefaultAndAliases(t *testing.T) {
	r := Default()
	require.Contains(t, r.Names(), RevisionDateLocalizedName)
	for _, n := range []string{SearchName, JupyterName, MkdocstringsName, AutorefsName, RevisionDateName, TagsName} {
		require.True(t, r.Has(n), n)
	}
	p, err := r.Get(RevisionDateLocalizedName)
	require.NoError(t, err)
	require.Equal(t, RevisionDateName, p.Name())

	_, err = r.Get("social")
	require.Error(t, err)
	require.Error(t, r.Register(SearchName, func() Plugin { return NewSearch() }))
}

func TestResolve_UnknownAndInvalidOptions(t *testing.T) {
	cfg := testConfig(t, "site_name: T\nplugins:\n  - search\n  - blog\n  - tags\n")
	set, err := Resolve(Default(), cfg, nil)
	require.Error(t, err)
	var unknown *UnknownPluginsError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []string{"blog"}, unknown.Names)
	require.Len(t, set.Plugins(), 2)

	cfg = testConfig(t, "site_name: T\nplugins:\n  - search:\n      min_search_length: 0\n")
	_, err = Resolve(Default(), cfg, nil)
	require.Error(t, err)
	require.NotErrorAs(t, err, &unknown)
}

func TestSearch_IndexAndExclude(t *testing.T) {
	cfg := testConfig(t, "site_name: T\n")
	home := testPage("index.md", "Home", nil)
	hidden := testPage("secret.md", "Secret", frontmatter.Meta{"search": map[string]any{"exclude": true}})
	site := testSite(t, cfg, home, hidden)

	s := NewSearch()
	require.NoError(t, s.Configure(map[string]any{"lang": "en"}))
	_, err := s.OnPageContent(`<h2 id="a">A</h2><p>alpha</p>`, home, site)
	require.NoError(t, err)
	_, err = s.OnPageContent(`<p>hidden</p>`, hidden, site)
	require.NoError(t, err)
	require.NoError(t, s.OnPostBuild(site))

	data, err := os.ReadFile(filepath.Join(site.OutputDir, "search", "search_index.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"location":"#a"`)
	require.NotContains(t, string(data), "hidden")
}

func TestSearch_ReusedPagesKeepPreviousEntries(t *testing.T) {
	cfg := testConfig(t, "site_name: T\n")
	prev := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(prev, "search"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(prev, "search", "search_index.json"),
		[]byte(`{"config":{},"docs":[{"location":"old/","title":"Old","text":"kept"},{"location":"old/#s","title":"S","text":"kept too"},{"location":"gone/","title":"Gone","text":"x"}]}`), 0o600))

	old := testPage("old.md", "Old", nil)
	old.Reused = true
	site := testSite(t, cfg, old)
	site.PreviousDir = prev

	s := NewSearch()
	require.NoError(t, s.Configure(nil))
	require.NoError(t, s.OnPostBuild(site))
	ix := s.Index()
	require.Len(t, ix.Docs, 2)
	require.Equal(t, "old/#s", ix.Docs[1].Location)
}

func TestMkdocstrings_ExpandsDirectivesAndRegistersAnchors(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", "apidoc", "testdata"))
	require.NoError(t, err)
	cfg := testConfig(t, "site_name: T\n")
	cfg.Root = root

	m := NewMkdocstrings()
	require.NoError(t, m.Configure(map[string]any{
		"handlers": map[string]any{"python": map[string]any{
			"paths":   []any{"."},
			"options": map[string]any{"show_source": false},
		}},
	}))
	require.NoError(t, m.OnConfig(cfg))

	page := testPage("api.md", "API", nil)
	site := testSite(t, cfg, page)
	out, err := m.OnPageMarkdown("# API\n\n::: functime.feature_extraction.tsfresh.absolute_energy\n", page, site)
	require.NoError(t, err)
	require.Contains(t, out, "absolute_energy(x: TIME_SERIES_T) -> float")
	require.NotContains(t, out, ":::")

	url, ok := site.Anchors.Lookup("functime.feature_extraction.tsfresh.absolute_energy")
	require.True(t, ok)
	require.Equal(t, "api/#functime.feature_extraction.tsfresh.absolute_energy", url)

	_, err = m.OnPageMarkdown("::: functime.nope\n", page, site)
	require.Error(t, err)

	require.Error(t, NewMkdocstrings().Configure(map[string]any{"default_handler": "crystal"}))
}

func TestAutorefs_Rewrite(t *testing.T) {
	anchors := NewAnchors()
	anchors.Register("functime.metrics.mase", "api/metrics/#functime.metrics.mase")
	anchors.Register("install", "#install")

	in := `<p>See [<code>mase</code>][functime.metrics.mase] and [functime.metrics.mase][].</p>` +
		`<pre><code>x[0][functime.metrics.mase]</code></pre><p>[missing][nowhere]</p>`
	out := Rewrite(in, "guide/", anchors)

	require.Contains(t, out, `<a class="autorefs autorefs-internal" href="../api/metrics/#functime.metrics.mase"><code>mase</code></a>`)
	require.Contains(t, out, `href="../api/metrics/#functime.metrics.mase">functime.metrics.mase</a>`)
	require.Contains(t, out, `<pre><code>x[0][functime.metrics.mase]</code></pre>`)
	require.Contains(t, out, `[missing][nowhere]`)
}

func TestAutorefs_RegistersHeadings(t *testing.T) {
	cfg := testConfig(t, "site_name: T\n")
	guide := testPage("guide.md", "Guide", nil)
	guide.Rendered = &markdown.Rendered{Headings: []markdown.Heading{{Level: 2, ID: "setup", Text: "Setup"}}}
	home := testPage("index.md", "Home", nil)
	site := testSite(t, cfg, home, guide)

	a := NewAutorefs()
	out, err := a.OnPageContent(`<p>[Setup][setup]</p>`, home, site)
	require.NoError(t, err)
	require.Equal(t, `<p><a class="autorefs autorefs-internal" href="guide/#setup">Setup</a></p>`, out)
}

type fixedSource struct {
	t   time.Time
	err error
}

func (f fixedSource) LastModified(string) (time.Time, error) { return f.t, f.err }

func TestRevisionDate(t *testing.T) {
	cfg := testConfig(t, "site_name: T\n")
	page := testPage("index.md", "Home", nil)
	site := testSite(t, cfg, page)

	r := NewRevisionDate()
	require.NoError(t, r.Configure(map[string]any{"type": "iso_date"}))
	when := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	r.UseSource(fixedSource{t: when})
	nb := testPage("tour.ipynb", "Tour", nil)
	reused := testPage("guide.md", "Guide", nil)
	reused.Reused = true
	require.NoError(t, NewSet(nil, r).OnPages([]*Page{page, nb, reused}, site))
	for _, p := range []*Page{page, nb, reused} {
		require.Equal(t, "2024-05-17", p.RevisionText, p.File.SrcPath)
		require.True(t, p.RevisionDate.Equal(when), p.File.SrcPath)
	}

	r = NewRevisionDate()
	require.NoError(t, r.Configure(map[string]any{"fallback_to_build_date": false}))
	r.UseSource(fixedSource{err: stderrors.New("no history")})
	other := testPage("other.md", "Other", nil)
	require.NoError(t, r.OnPages([]*Page{other}, site))
	require.True(t, other.RevisionDate.IsZero())
	require.Len(t, site.Warnings(), 1)

	require.Error(t, NewRevisionDate().Configure(map[string]any{"type": "lunar"}))
	require.Equal(t, "May 17, 2024", FormatDate(when, DateTypeDate))
}

func TestTags_MarkerAndEmit(t *testing.T) {
	cfg := testConfig(t, "site_name: T\n")
	a := testPage("a.md", "Alpha", frontmatter.Meta{"tags": []any{"python", "Forecasting"}})
	b := testPage("b.md", "Beta", frontmatter.Meta{"tags": "python"})
	index := testPage("index.md", "Home", nil)
	site := testSite(t, cfg, index, a, b)

	tags, byTag := TagIndex(site.Pages)
	require.Equal(t, []string{"Forecasting", "python"}, tags)
	require.Len(t, byTag["python"], 2)

	var emitted []string
	site.Emit = func(dest, title, content string) error {
		emitted = append(emitted, dest, title, content)
		return nil
	}
	tp := NewTags()
	require.NoError(t, tp.OnPostBuild(site))
	require.Len(t, emitted, 3)
	require.Equal(t, "tags/index.html", emitted[0])
	require.Contains(t, emitted[2], `<a href="../a/">Alpha</a>`)

	tp = NewTags()
	out, err := tp.OnPageContent("<p>x</p>\n"+TagsMarker, index, site)
	require.NoError(t, err)
	require.Contains(t, out, `<h2 id="tag:python">python</h2>`)
	require.Contains(t, out, `<a href="b/">Beta</a>`)
	emitted = nil
	require.NoError(t, tp.OnPostBuild(site))
	require.Empty(t, emitted)
}

func TestJupyter_SelectsAndRenders(t *testing.T) {
	dir := t.TempDir()
	nbPath := filepath.Join(dir, "demo.ipynb")
	nbJSON := `{"nbformat":4,"nbformat_minor":5,"metadata":{"kernelspec":{"name":"python3","language":"python"}},
"cells":[{"cell_type":"markdown","metadata":{},"source":["# Demo\n","Text"]},
{"cell_type":"code","metadata":{},"execution_count":1,"source":"print(1)","outputs":[{"output_type":"stream","name":"stdout","text":"1\n"}]}]}`
	require.NoError(t, os.WriteFile(nbPath, []byte(nbJSON), 0o600))

	cfg := testConfig(t, "site_name: T\n")
	page := &Page{Page: &nav.Page{File: docs.NewFile("demo.ipynb", nbPath, true), Title: "Demo"}}
	skipped := docs.NewFile("drafts/wip.ipynb", filepath.Join(dir, "wip.ipynb"), true)
	site := testSite(t, cfg, page)
	site.Files.Add(skipped)

	j := NewJupyter()
	require.NoError(t, j.Configure(map[string]any{"ignore": []any{"drafts/*"}, "execute": true}))
	require.NoError(t, j.OnFiles(site.Files, site))
	require.Equal(t, docs.KindAsset, skipped.Kind)
	require.Equal(t, docs.KindNotebook, page.File.Kind)
	require.NotEmpty(t, site.Warnings())

	r, err := j.RenderNotebook([]byte(nbJSON), page, site)
	require.NoError(t, err)
	require.Equal(t, "Demo", r.Title)
	require.Contains(t, r.HTML, "print(1)")
	require.Contains(t, r.HTML, `href="../demo.ipynb"`)

	require.NoError(t, j.OnPostBuild(site))
	_, err = os.Stat(filepath.Join(site.OutputDir, "demo.ipynb"))
	require.NoError(t, err)
}
