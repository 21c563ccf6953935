// Package config loads and models the site configuration file (mkdocs.yml).
//
// The file declares site identity, theme, the ordered plugin and Markdown
// extension lists, the navigation tree and free-form `extra` values. List
// entries accept both the bare-string and the single-key mapping form, and
// Python-specific YAML tags are tolerated so that existing configurations load
// unchanged.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// DefaultConfigFile is the configuration file name used when none is given.
const DefaultConfigFile = "mkdocs.yml"

// Config represents the site configuration.
type Config struct {
	SiteName        string `yaml:"site_name" json:"site_name"`
	SiteURL         string `yaml:"site_url" json:"site_url"`
	SiteDescription string `yaml:"site_description" json:"site_description"`
	SiteAuthor      string `yaml:"site_author" json:"site_author"`
	Copyright       string `yaml:"copyright" json:"copyright"`

	RepoURL  string `yaml:"repo_url" json:"repo_url"`
	RepoName string `yaml:"repo_name" json:"repo_name"`
	EditURI  string `yaml:"edit_uri" json:"edit_uri"`

	DocsDir          string   `yaml:"docs_dir" json:"docs_dir"`
	SiteDir          string   `yaml:"site_dir" json:"site_dir"`
	UseDirectoryURLs *bool    `yaml:"use_directory_urls" json:"use_directory_urls"`
	Strict           bool     `yaml:"strict" json:"strict"`
	ExcludeDocs      string   `yaml:"exclude_docs" json:"exclude_docs"`
	DevAddr          string   `yaml:"dev_addr" json:"dev_addr"`
	Watch            []string `yaml:"watch" json:"watch"`

	Theme              ThemeConfig    `yaml:"theme" json:"theme"`
	Plugins            PluginList     `yaml:"plugins" json:"plugins"`
	MarkdownExtensions ExtensionList  `yaml:"markdown_extensions" json:"markdown_extensions"`
	Nav                []NavEntry     `yaml:"nav" json:"nav"`
	Extra              Extra          `yaml:"extra" json:"extra"`
	ExtraCSS           []string       `yaml:"extra_css" json:"extra_css"`
	ExtraJavaScript    []string       `yaml:"extra_javascript" json:"extra_javascript"`
	Unknown            map[string]any `yaml:",inline" json:"-"`

	// Path is the absolute path of the loaded file; Root its directory.
	Path string `yaml:"-" json:"-"`
	Root string `yaml:"-" json:"-"`
}

// ThemeConfig selects the theme and its UI features. It accepts either a bare
// theme name or a mapping.
type ThemeConfig struct {
	Name      string            `yaml:"name" json:"name"`
	CustomDir string            `yaml:"custom_dir" json:"custom_dir"`
	Language  string            `yaml:"language" json:"language"`
	Features  []string          `yaml:"features" json:"features"`
	Palette   PaletteList       `yaml:"palette" json:"palette"`
	Logo      string            `yaml:"logo" json:"logo"`
	Favicon   string            `yaml:"favicon" json:"favicon"`
	Icon      map[string]any    `yaml:"icon" json:"icon"`
	Font      map[string]string `yaml:"font" json:"font"`
	Options   map[string]any    `yaml:",inline" json:"options"`
}

// Palette is one colour scheme entry of the theme.
type Palette struct {
	Scheme  string         `yaml:"scheme" json:"scheme"`
	Primary string         `yaml:"primary" json:"primary"`
	Accent  string         `yaml:"accent" json:"accent"`
	Media   string         `yaml:"media" json:"media"`
	Toggle  map[string]any `yaml:"toggle" json:"toggle"`
}

// PaletteList accepts a single palette mapping or a list of them.
type PaletteList []Palette

// PluginEntry is one configured plugin with its options.
type PluginEntry struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
}

// PluginList is the ordered plugin list.
type PluginList []PluginEntry

// ExtensionEntry is one configured Markdown extension with its options.
type ExtensionEntry struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
}

// ExtensionList is the ordered Markdown extension list.
type ExtensionList []ExtensionEntry

// NavEntry is a node of the navigation tree. Exactly one of Path or Children
// is meaningful: a section has Children, a page or link has Path.
type NavEntry struct {
	Title    string     `json:"title,omitempty"`
	Path     string     `json:"path,omitempty"`
	Children []NavEntry `json:"children,omitempty"`
	Section  bool       `json:"section,omitempty"`
}

// Extra holds the free-form `extra` mapping; analytics and social links are typed.
type Extra struct {
	Analytics *Analytics     `yaml:"analytics" json:"analytics,omitempty"`
	Social    []SocialLink   `yaml:"social" json:"social,omitempty"`
	Values    map[string]any `yaml:",inline" json:"values,omitempty"`
}

// Analytics configures a third-party analytics provider.
type Analytics struct {
	Provider string         `yaml:"provider" json:"provider"`
	Property string         `yaml:"property" json:"property"`
	Feedback map[string]any `yaml:"feedback" json:"feedback,omitempty"`
}

// SocialLink is a footer link declared under extra.social.
type SocialLink struct {
	Icon string `yaml:"icon" json:"icon"`
	Link string `yaml:"link" json:"link"`
	Name string `yaml:"name" json:"name"`
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, parses and defaults the configuration at path.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve config path").
			WithContext("path", path).Build()
	}
	if _, statErr := os.Stat(absPath); os.IsNotExist(statErr) {
		return nil, errors.NotFoundError("configuration file not found").
			WithContext("path", path).Build()
	}

	loadEnvFiles(filepath.Dir(absPath))

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", path).Build()
	}

	cfg, err := Parse(expandEnvRefs(data))
	if err != nil {
		return nil, err
	}
	cfg.Path = absPath
	cfg.Root = filepath.Dir(absPath)
	cfg.resolvePaths()
	return cfg, nil
}

// Parse decodes configuration bytes and applies defaults. Relative paths are
// left unresolved; Load anchors them to the config file directory.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").Build()
	}
	cfg := &Config{}
	if len(doc.Content) == 0 {
		cfg.applyDefaults(nil)
		return cfg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.ConfigError("configuration must be a mapping").
			WithContext("line", root.Line).Build()
	}
	if err := resolveTags(root); err != nil {
		return nil, err
	}
	if err := root.Decode(cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid configuration").Build()
	}
	cfg.applyDefaults(topLevelKeys(root))
	return cfg, nil
}

func topLevelKeys(root *yaml.Node) map[string]bool {
	keys := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys[root.Content[i].Value] = true
	}
	return keys
}

func (c *Config) applyDefaults(present map[string]bool) {
	if c.DocsDir == "" {
		c.DocsDir = "docs"
	}
	if c.SiteDir == "" {
		c.SiteDir = "site"
	}
	if c.Theme.Name == "" && c.Theme.CustomDir == "" {
		c.Theme.Name = "mkdocs"
	}
	if c.Theme.Language == "" {
		c.Theme.Language = "en"
	}
	if c.UseDirectoryURLs == nil {
		t := true
		c.UseDirectoryURLs = &t
	}
	if !present["plugins"] {
		c.Plugins = PluginList{{Name: "search", Options: map[string]any{}}}
	}
	if c.DevAddr == "" {
		c.DevAddr = "127.0.0.1:8000"
	}
	if c.RepoURL != "" {
		host := repoHost(c.RepoURL)
		if c.RepoName == "" {
			c.RepoName = host
		}
		if !present["edit_uri"] && c.EditURI == "" {
			switch host {
			case "GitHub", "GitLab":
				c.EditURI = "edit/main/docs/"
			case "Bitbucket":
				c.EditURI = "src/default/docs/"
			}
		}
	}
}

func (c *Config) resolvePaths() {
	if !filepath.IsAbs(c.DocsDir) {
		c.DocsDir = filepath.Join(c.Root, c.DocsDir)
	}
	if !filepath.IsAbs(c.SiteDir) {
		c.SiteDir = filepath.Join(c.Root, c.SiteDir)
	}
	if c.Theme.CustomDir != "" && !filepath.IsAbs(c.Theme.CustomDir) {
		c.Theme.CustomDir = filepath.Join(c.Root, c.Theme.CustomDir)
	}
	for i, w := range c.Watch {
		if !filepath.IsAbs(w) {
			c.Watch[i] = filepath.Join(c.Root, w)
		}
	}
}

// DirectoryURLs reports whether pages are written as `page/index.html`.
func (c *Config) DirectoryURLs() bool {
	return c.UseDirectoryURLs == nil || *c.UseDirectoryURLs
}

// Plugin returns the configured plugin entry with the given name.
func (c *Config) Plugin(name string) (PluginEntry, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginEntry{}, false
}

// HasPlugin reports whether the plugin is configured.
func (c *Config) HasPlugin(name string) bool {
	_, ok := c.Plugin(name)
	return ok
}

// Extension returns the configured Markdown extension with the given name.
func (c *Config) Extension(name string) (ExtensionEntry, bool) {
	for _, e := range c.MarkdownExtensions {
		if e.Name == name {
			return e, true
		}
	}
	return ExtensionEntry{}, false
}

// HasFeature reports whether a theme feature flag such as "navigation.tabs" is enabled.
func (c *Config) HasFeature(feature string) bool {
	for _, f := range c.Theme.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// EditURL returns the repository edit link for a docs-relative source path,
// or "" when no repository is configured.
func (c *Config) EditURL(srcPath string) string {
	if c.RepoURL == "" || c.EditURI == "" {
		return ""
	}
	srcPath = strings.TrimPrefix(filepath.ToSlash(srcPath), "/")
	editURI := c.EditURI
	if !strings.HasSuffix(editURI, "/") && !strings.Contains(editURI, "?") && !strings.HasSuffix(editURI, "#") {
		editURI += "/"
	}
	if strings.HasPrefix(editURI, "http://") || strings.HasPrefix(editURI, "https://") {
		return editURI + srcPath
	}
	return strings.TrimSuffix(c.RepoURL, "/") + "/" + strings.TrimPrefix(editURI, "/") + srcPath
}

func repoHost(repoURL string) string {
	lower := strings.ToLower(repoURL)
	switch {
	case strings.Contains(lower, "github.com"):
		return "GitHub"
	case strings.Contains(lower, "gitlab.com"):
		return "GitLab"
	case strings.Contains(lower, "bitbucket.org"):
		return "Bitbucket"
	default:
		return ""
	}
}

func expandEnvRefs(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(envRefPattern.FindSubmatch(m)[1])
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		return m
	})
}
