package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

func TestLoad_FullConfiguration(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "mkdocs.yml"))
	require.NoError(t, err)

	require.Equal(t, "functime", cfg.SiteName)
	require.Equal(t, "https://docs.functime.ai/", cfg.SiteURL)
	require.Equal(t, "functime-org/functime", cfg.RepoName)
	require.Equal(t, "edit/main/docs/", cfg.EditURI)

	require.Equal(t, "material", cfg.Theme.Name)
	require.True(t, cfg.HasFeature("navigation.tabs"))
	require.Len(t, cfg.Theme.Palette, 2)
	require.Equal(t, "slate", cfg.Theme.Palette[1].Scheme)

	names := make([]string, 0, len(cfg.Plugins))
	for _, p := range cfg.Plugins {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"search", "mkdocs-jupyter", "mkdocstrings"}, names)
	jupyter, ok := cfg.Plugin("mkdocs-jupyter")
	require.True(t, ok)
	require.Equal(t, true, jupyter.Options["include_source"])

	ext, ok := cfg.Extension("pymdownx.emoji")
	require.True(t, ok)
	require.Equal(t, "!!python/name:material.extensions.emoji.twemoji", ext.Options["emoji_index"])
	require.Len(t, cfg.MarkdownExtensions, 7)

	require.Len(t, cfg.Nav, 5)
	require.Equal(t, NavEntry{Title: "Home", Path: "index.md"}, cfg.Nav[0])
	require.True(t, cfg.Nav[2].Section)
	require.Len(t, cfg.Nav[2].Children, 2)
	require.Equal(t, "api/index.md", cfg.Nav[3].Children[0].Path)
	require.Empty(t, cfg.Nav[3].Children[0].Title)
	require.True(t, cfg.Nav[4].IsExternal())

	require.NotNil(t, cfg.Extra.Analytics)
	require.Equal(t, "google", cfg.Extra.Analytics.Provider)
	require.Contains(t, cfg.Extra.Values, "version")

	require.True(t, filepath.IsAbs(cfg.DocsDir))
	require.Equal(t, filepath.Join(cfg.Root, "docs"), cfg.DocsDir)
	require.Equal(t, filepath.Join(cfg.Root, "site"), cfg.SiteDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "mkdocs.yml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("site_name: Docs\n"))
	require.NoError(t, err)
	require.Equal(t, "docs", cfg.DocsDir)
	require.Equal(t, "site", cfg.SiteDir)
	require.Equal(t, "mkdocs", cfg.Theme.Name)
	require.True(t, cfg.DirectoryURLs())
	require.Equal(t, PluginList{{Name: "search", Options: map[string]any{}}}, cfg.Plugins)
}

func TestParse_ExplicitEmptyPluginsDisablesSearch(t *testing.T) {
	cfg, err := Parse([]byte("site_name: Docs\nplugins: []\n"))
	require.NoError(t, err)
	require.Empty(t, cfg.Plugins)
}

func TestParse_PluginMappingForm(t *testing.T) {
	cfg, err := Parse([]byte("site_name: Docs\nplugins:\n  search: {lang: de}\n  autorefs:\n"))
	require.NoError(t, err)
	require.Len(t, cfg.Plugins, 2)
	require.Equal(t, "de", cfg.Plugins[0].Options["lang"])
	require.Equal(t, "autorefs", cfg.Plugins[1].Name)
}

func TestParse_ThemeAsString(t *testing.T) {
	cfg, err := Parse([]byte("site_name: Docs\ntheme: readthedocs\n"))
	require.NoError(t, err)
	require.Equal(t, "readthedocs", cfg.Theme.Name)
	require.Equal(t, "en", cfg.Theme.Language)
}

func TestParse_RejectsMultiKeyPluginEntry(t *testing.T) {
	_, err := Parse([]byte("site_name: Docs\nplugins:\n  - search: {}\n    tags: {}\n"))
	require.Error(t, err)
}

func TestParse_RejectsScalarOptions(t *testing.T) {
	_, err := Parse([]byte("site_name: Docs\nmarkdown_extensions:\n  - toc: true\n"))
	require.Error(t, err)
}

func TestParse_RejectsNavEntryWithoutPath(t *testing.T) {
	_, err := Parse([]byte("site_name: Docs\nnav:\n  - Home:\n"))
	require.Error(t, err)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte("site_name: [unterminated\n"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestParse_EnvTag(t *testing.T) {
	t.Setenv("SITEGEN_TEST_URL", "https://env.example/")
	cfg, err := Parse([]byte("site_name: Docs\nsite_url: !ENV SITEGEN_TEST_URL\nsite_author: !ENV [SITEGEN_UNSET_AUTHOR, Jane]\nstrict: !ENV [SITEGEN_UNSET_STRICT, true]\n"))
	require.NoError(t, err)
	require.Equal(t, "https://env.example/", cfg.SiteURL)
	require.Equal(t, "Jane", cfg.SiteAuthor)
	require.True(t, cfg.Strict)
}

func TestLoad_ExpandsEnvReferencesAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITEGEN_TEST_PROPERTY=G-TEST\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mkdocs.yml"), []byte("site_name: Docs\nextra:\n  analytics:\n    provider: google\n    property: ${SITEGEN_TEST_PROPERTY}\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("SITEGEN_TEST_PROPERTY") })

	cfg, err := Load(filepath.Join(dir, "mkdocs.yml"))
	require.NoError(t, err)
	require.Equal(t, "G-TEST", cfg.Extra.Analytics.Property)
}

func TestEditURL(t *testing.T) {
	cfg := &Config{RepoURL: "https://github.com/org/repo/", EditURI: "edit/main/docs"}
	require.Equal(t, "https://github.com/org/repo/edit/main/docs/guide/intro.md", cfg.EditURL("guide/intro.md"))

	cfg.EditURI = "https://example.com/edit/?file="
	require.Equal(t, "https://example.com/edit/?file=a.md", cfg.EditURL("a.md"))

	require.Empty(t, (&Config{RepoURL: "https://example.com"}).EditURL("a.md"))
}

func TestInit_WritesStarterProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir, false))

	cfg, err := Load(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)
	require.Equal(t, "My Docs", cfg.SiteName)
	require.FileExists(t, filepath.Join(dir, "docs", "index.md"))

	require.Error(t, Init(dir, false))
	require.NoError(t, Init(dir, true))
}
