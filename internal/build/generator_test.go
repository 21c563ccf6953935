package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

func writeProject(t *testing.T, yml string, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "mkdocs.yml"), []byte(yml), 0o644))
	for rel, body := range files {
		p := filepath.Join(root, "docs", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	cfg, err := config.Load(filepath.Join(root, "mkdocs.yml"))
	require.NoError(t, err)
	return cfg
}

func readSite(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.SiteDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

type stageLog struct {
	NoopObserver
	completed []StageName
	results   []StageResult
	reports   int
}

func (s *stageLog) OnStageComplete(stage StageName, _ time.Duration, res StageResult) {
	s.completed = append(s.completed, stage)
	s.results = append(s.results, res)
}

func (s *stageLog) OnBuildComplete(*BuildReport) { s.reports++ }

const siteYAML = `site_name: Demo
site_url: https://example.com/docs/
theme:
  name: material
  features:
    - navigation.tabs
plugins:
  - search
  - tags
nav:
  - Home: index.md
  - Usage: usage.md
  - Gone: missing.md
`

func TestBuild_RendersSite(t *testing.T) {
	cfg := writeProject(t, siteYAML, map[string]string{
		"index.md":     "# Welcome\n\nSee [usage](usage.md#install).\n",
		"usage.md":     "---\ntags: [setup]\n---\n# Usage\n\n## Install\n\n![logo](img/logo.png)\n",
		"extra.md":     "# Extra\n",
		"img/logo.png": "png",
	})
	obs := &stageLog{}
	report, err := NewGenerator(cfg, Options{Observers: []BuildObserver{obs}}).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeWarning, report.Outcome)
	require.Len(t, report.IssuesWith(IssueNavMissingFile), 1)
	require.Len(t, report.IssuesWith(IssueNavUnlisted), 1)
	require.Empty(t, report.IssuesWith(IssueBrokenLink))
	require.Equal(t, 3, report.Pages)
	require.Equal(t, 3, report.RenderedPages)
	require.Equal(t, 1, report.Assets)
	require.NotEmpty(t, report.ID)

	require.Equal(t, NewGenerator(cfg, Options{}).pipeline().Names(), obs.completed)
	require.Equal(t, 1, obs.reports)

	index := readSite(t, cfg, "index.html")
	require.Contains(t, index, "Welcome")
	require.Contains(t, index, `href="usage/#install"`)
	require.Contains(t, readSite(t, cfg, "usage/index.html"), `id="install"`)
	require.Contains(t, readSite(t, cfg, "tags/index.html"), "setup")
	require.Contains(t, readSite(t, cfg, "sitemap.xml"), "<loc>https://example.com/docs/usage/</loc>")
	require.Contains(t, readSite(t, cfg, "search/search_index.json"), `"location":"usage/#install"`)
	require.Equal(t, "png", readSite(t, cfg, "img/logo.png"))
	require.FileExists(t, filepath.Join(cfg.SiteDir, "404.html"))
	require.FileExists(t, filepath.Join(cfg.SiteDir, "sitemap.xml.gz"))
	require.FileExists(t, filepath.Join(cfg.SiteDir, "assets/stylesheets/main.css"))

	persisted, err := ReadReport(cfg.SiteDir)
	require.NoError(t, err)
	require.Equal(t, report.ID, persisted.ID)
	require.Equal(t, "warning", persisted.Outcome)

	require.NoDirExists(t, cfg.SiteDir+"_stage")
	require.NoDirExists(t, cfg.SiteDir+".prev")
}

func TestBuild_StrictFailureKeepsPreviousSite(t *testing.T) {
	cfg := writeProject(t, "site_name: Demo\n", map[string]string{
		"index.md": "# Home\n",
	})
	_, err := NewGenerator(cfg, Options{Strict: true}).Build(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.DocsDir, "index.md"), []byte("# Changed\n\n[x](nowhere.md)\n"), 0o644))
	report, err := NewGenerator(cfg, Options{Strict: true}).Build(context.Background())
	require.Error(t, err)
	require.True(t, stderrors.Is(err, ErrStrict))
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.NotEmpty(t, report.IssuesWith(IssueUnresolvedLink))
	require.NotEmpty(t, report.IssuesWith(IssueBrokenLink))
	require.Len(t, report.IssuesWith(IssueStrictAbort), 1)

	require.Contains(t, readSite(t, cfg, "index.html"), "Home")
	require.NoDirExists(t, cfg.SiteDir+"_stage")
}

func TestBuild_DirtyReusesUnchangedPages(t *testing.T) {
	cfg := writeProject(t, "site_name: Demo\n", map[string]string{
		"index.md": "# Home\n\nhello\n",
		"about.md": "# About us\n",
	})
	first, err := NewGenerator(cfg, Options{}).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, first.RenderedPages)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.DocsDir, "index.md"), []byte("# Home\n\nupdated\n"), 0o644))
	second, err := NewGenerator(cfg, Options{Dirty: true}).Build(context.Background())
	require.NoError(t, err)
	require.True(t, second.Dirty)
	require.Equal(t, 1, second.RenderedPages)
	require.Equal(t, 1, second.ReusedPages)
	require.Contains(t, readSite(t, cfg, "index.html"), "updated")
	require.Contains(t, readSite(t, cfg, "about/index.html"), "About us")
	require.Contains(t, readSite(t, cfg, "search/search_index.json"), "About us")

	clean, err := NewGenerator(cfg, Options{Dirty: true, Clean: true}).Build(context.Background())
	require.NoError(t, err)
	require.False(t, clean.Dirty)
	require.Equal(t, 2, clean.RenderedPages)
}

func TestBuild_DestinationConflictKeepsFirstPage(t *testing.T) {
	cfg := writeProject(t, "site_name: Demo\n", map[string]string{
		"index.md":     "# Home\n",
		"foo.md":       "# Foo page\n",
		"foo/index.md": "# Foo index\n",
	})
	report, err := NewGenerator(cfg, Options{}).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeWarning, report.Outcome)
	conflicts := report.IssuesWith(IssueDestinationConflict)
	require.Len(t, conflicts, 1)
	require.Equal(t, "foo/index.md", conflicts[0].Path)
	require.Equal(t, 2, report.Pages)
	foo := readSite(t, cfg, "foo/index.html")
	require.Contains(t, foo, "Foo page")
	require.NotContains(t, foo, "Foo index")
}

func TestBuild_DirtyTitleChangeRendersEveryPage(t *testing.T) {
	cfg := writeProject(t, "site_name: Demo\n", map[string]string{
		"index.md": "# Home\n",
		"about.md": "# Old Title\n",
	})
	_, err := NewGenerator(cfg, Options{}).Build(context.Background())
	require.NoError(t, err)
	require.Contains(t, readSite(t, cfg, "index.html"), "Old Title")

	require.NoError(t, os.WriteFile(filepath.Join(cfg.DocsDir, "about.md"), []byte("# New Title\n"), 0o644))
	report, err := NewGenerator(cfg, Options{Dirty: true}).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.RenderedPages)
	require.Zero(t, report.ReusedPages)

	index := readSite(t, cfg, "index.html")
	require.Contains(t, index, "New Title")
	require.NotContains(t, index, "Old Title")
}

func TestBuild_NotebookRevisionDateInSitemap(t *testing.T) {
	cfg := writeProject(t, `site_name: Demo
site_url: https://example.com/
plugins:
  - mkdocs-jupyter
  - git-revision-date
`, map[string]string{
		"index.md":   "# Home\n",
		"tour.ipynb": `{"nbformat": 4, "metadata": {}, "cells": [{"cell_type": "markdown", "metadata": {}, "source": "# Tour\n"}]}`,
	})
	when := time.Date(2020, 1, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(cfg.DocsDir, "tour.ipynb"), when, when))

	_, err := NewGenerator(cfg, Options{}).Build(context.Background())
	require.NoError(t, err)
	require.Contains(t, readSite(t, cfg, "sitemap.xml"),
		"<loc>https://example.com/tour/</loc>\n    <lastmod>2020-01-02</lastmod>")
}

func TestBuild_CanceledContext(t *testing.T) {
	cfg := writeProject(t, "site_name: Demo\n", map[string]string{"index.md": "# Home\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewGenerator(cfg, Options{}).Build(ctx)
	require.Error(t, err)
	require.Equal(t, OutcomeCanceled, report.Outcome)
	require.Len(t, report.IssuesWith(IssueCanceled), 1)
	require.NoDirExists(t, cfg.SiteDir)
}

func TestBuild_UnknownThemeIsFatal(t *testing.T) {
	cfg := writeProject(t, "site_name: Demo\ntheme: nope\n", map[string]string{"index.md": "# Home\n"})
	report, err := NewGenerator(cfg, Options{}).Build(context.Background())
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryTheme))
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, StageErrorFatal, report.StageErrorKinds[StagePrepareOutput])
}

func TestBuild_SiteDirOverrideAndNoSitemapWithoutSiteURL(t *testing.T) {
	cfg := writeProject(t, "site_name: Demo\nuse_directory_urls: false\n", map[string]string{
		"index.md": "# Home\n",
		"a/b.md":   "# B\n",
	})
	out := filepath.Join(t.TempDir(), "public")
	report, err := NewGenerator(cfg, Options{SiteDir: out}).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.FileExists(t, filepath.Join(out, "a", "b.html"))
	require.NoFileExists(t, filepath.Join(out, "sitemap.xml"))
	require.NoDirExists(t, cfg.SiteDir)
}

func TestRunStages_ClassifiesResults(t *testing.T) {
	obs := &stageLog{}
	g := NewGenerator(&config.Config{SiteDir: t.TempDir()}, Options{Observers: []BuildObserver{obs}})
	report := newBuildReport("test")
	bs := newBuildState(g, report)

	warned := func(context.Context, *BuildState) error {
		bs.warn(IssuePluginWarning, "b", "", "soft problem")
		return nil
	}
	classifiedWarning := func(context.Context, *BuildState) error {
		return ferrors.PluginError("degraded").Warning().Build()
	}
	fatal := func(context.Context, *BuildState) error { return stderrors.New("boom") }
	never := func(context.Context, *BuildState) error {
		t.Fatal("stage after fatal must not run")
		return nil
	}
	stages := NewPipeline().
		Add("a", func(context.Context, *BuildState) error { return nil }).
		Add("b", warned).
		Add("c", classifiedWarning).
		AddIf(false, "skipped", never).
		Add("d", fatal).
		Add("e", never).
		Build()

	err := runStages(context.Background(), bs, stages)
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Equal(t, StageName("d"), se.Stage)

	require.Equal(t, []StageName{"a", "b", "c", "d"}, obs.completed)
	require.Equal(t, []StageResult{StageResultSuccess, StageResultWarning, StageResultWarning, StageResultFatal}, obs.results)
	require.Equal(t, 1, report.StageCounts["c"].Warning)
	require.Equal(t, StageErrorWarning, report.StageErrorKinds["c"])

	report.deriveOutcome()
	require.Equal(t, OutcomeFailed, report.Outcome)
}

func TestBuildReport_PersistAndSummary(t *testing.T) {
	r := newBuildReport("abc")
	r.Pages = 2
	r.AddIssue(ReportIssue{Code: IssueBrokenLink, Severity: SeverityWarning, Message: "x"})
	r.AddIssue(ReportIssue{Code: IssueNavUnlisted, Severity: SeverityInfo, Message: "y"})
	dir := t.TempDir()
	require.NoError(t, r.Persist(dir))
	require.Equal(t, OutcomeWarning, r.Outcome)

	s, err := ReadReport(dir)
	require.NoError(t, err)
	require.Equal(t, "abc", s.ID)
	require.Len(t, s.Issues, 2)
	require.Equal(t, []string{"x"}, s.Warnings)

	txt, err := os.ReadFile(filepath.Join(dir, ReportTextFile))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(txt), "pages=2 "))
}

func TestBasePath(t *testing.T) {
	require.Equal(t, "/", BasePath(""))
	require.Equal(t, "/", BasePath("https://example.com"))
	require.Equal(t, "/docs/", BasePath("https://example.com/docs"))
}
