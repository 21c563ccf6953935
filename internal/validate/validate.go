package validate

import (
	"fmt"
	"net/url"
	"os"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/nav"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
	"git.home.luguber.info/inful/sitegen/internal/theme"
)

// analyticsProviders lists the analytics providers the themes can render.
var analyticsProviders = map[string]bool{"google": true}

// Validator runs every rule against a configuration.
type Validator struct {
	registry *plugins.Registry
}

// New returns a Validator resolving plugins through reg. A nil reg uses the
// built-in plugins.
func New(reg *plugins.Registry) *Validator {
	if reg == nil {
		reg = plugins.Default()
	}
	return &Validator{registry: reg}
}

// Validate checks cfg and the discovered files with the built-in plugins.
// files may be nil when the docs directory could not be read.
func Validate(cfg *config.Config, files *docs.Files) *Result {
	return New(nil).Validate(cfg, files)
}

// ValidateFile loads the configuration at path, discovers its docs and
// validates both. A configuration that cannot be parsed is reported as a
// config-syntax error.
func (v *Validator) ValidateFile(path string) *Result {
	cfg, err := config.Load(path)
	if err != nil {
		return &Result{ConfigPath: path, Issues: []Issue{{
			Path:     path,
			Severity: SeverityError,
			Rule:     RuleConfigSyntax,
			Message:  err.Error(),
			Fix:      "correct the YAML structure of the configuration file",
		}}}
	}
	files, err := docs.Discover(cfg.DocsDir, docs.SplitPatterns(cfg.ExcludeDocs), cfg.DirectoryURLs())
	res := v.Validate(cfg, files)
	res.ConfigPath = path
	if err != nil {
		res.add(Issue{
			Path:     cfg.DocsDir,
			Severity: SeverityError,
			Rule:     RuleDocsDirMissing,
			Message:  fmt.Sprintf("docs directory %s cannot be read: %v", cfg.DocsDir, err),
			Fix:      "create the directory or point docs_dir at it",
		})
	}
	return res
}

// Validate checks cfg and the discovered files. files is prepared in place
// the way a build prepares it.
func (v *Validator) Validate(cfg *config.Config, files *docs.Files) *Result {
	res := &Result{ConfigPath: cfg.Path}
	checkSiteIdentity(cfg, res)
	checkTheme(cfg, res)
	set := v.checkPlugins(cfg, res)
	checkExtensions(cfg, res)
	checkAnalytics(cfg, res)
	if files != nil {
		res.FilesTotal = files.Len()
		checkFiles(set, files, res)
		checkNav(cfg, files, res)
	}
	return res
}

// checkFiles applies the file adjustments a build makes before resolving
// the nav: notebooks become static files unless a plugin renders them, and
// files sharing an output path are dropped. files is modified in place.
func checkFiles(set *plugins.Set, files *docs.Files, res *Result) {
	if _, ok := set.NotebookRenderer(); !ok {
		files.NotebooksAsAssets()
	}
	_ = set.OnFiles(files, &plugins.Site{Files: files})
	for _, c := range files.DropConflicts() {
		res.add(Issue{
			Path:     c.SrcPath,
			Severity: SeverityWarning,
			Rule:     RulePageConflict,
			Message:  c.String(),
			Fix:      fmt.Sprintf("rename or remove %s or %s", c.SrcPath, c.KeptPath),
		})
	}
}

func checkSiteIdentity(cfg *config.Config, res *Result) {
	if cfg.SiteName == "" {
		res.add(Issue{
			Path:     "site_name",
			Severity: SeverityError,
			Rule:     RuleSiteNameRequired,
			Message:  "site_name is required",
			Fix:      "add `site_name: <title>` to the configuration",
		})
	}
	if cfg.SiteURL != "" && !validHTTPURL(cfg.SiteURL) {
		res.add(Issue{
			Path:        "site_url",
			Severity:    SeverityError,
			Rule:        RuleSiteURLInvalid,
			Message:     fmt.Sprintf("site_url %q is not an absolute http(s) URL", cfg.SiteURL),
			Explanation: "canonical links and the sitemap are built from site_url",
		})
	}
	if cfg.RepoURL != "" && !validHTTPURL(cfg.RepoURL) {
		res.add(Issue{
			Path:        "repo_url",
			Severity:    SeverityWarning,
			Rule:        RuleRepoURLInvalid,
			Message:     fmt.Sprintf("repo_url %q is not an absolute http(s) URL", cfg.RepoURL),
			Explanation: "edit links are derived from repo_url",
		})
	}
}

func validHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func checkTheme(cfg *config.Config, res *Result) {
	if _, ok := theme.Get(cfg.Theme.Name); !ok {
		res.add(Issue{
			Path:     "theme.name",
			Severity: SeverityError,
			Rule:     RuleThemeUnknown,
			Message:  fmt.Sprintf("unresolvable theme %q", cfg.Theme.Name),
			Fix:      fmt.Sprintf("use one of: %v", theme.Names()),
		})
	}
	if dir := cfg.Theme.CustomDir; dir != "" {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			res.add(Issue{
				Path:     "theme.custom_dir",
				Severity: SeverityError,
				Rule:     RuleThemeUnknown,
				Message:  fmt.Sprintf("theme custom_dir %s does not exist", dir),
			})
		}
	}
}

// checkPlugins reports unknown or misconfigured plugins and returns the
// ones that configured cleanly.
func (v *Validator) checkPlugins(cfg *config.Config, res *Result) *plugins.Set {
	var configured []plugins.Plugin
	for _, entry := range cfg.Plugins {
		p, err := v.registry.Get(entry.Name)
		if err != nil {
			res.add(Issue{
				Path:     "plugins." + entry.Name,
				Severity: SeverityError,
				Rule:     RulePluginUnknown,
				Message:  fmt.Sprintf("plugin %q is not available", entry.Name),
				Fix:      fmt.Sprintf("remove it or use one of: %v", v.registry.Names()),
			})
			continue
		}
		if err := p.Configure(entry.Options); err != nil {
			res.add(Issue{
				Path:     "plugins." + entry.Name,
				Severity: SeverityError,
				Rule:     RulePluginOptions,
				Message:  fmt.Sprintf("plugin %q: %v", entry.Name, err),
			})
			continue
		}
		configured = append(configured, p)
	}
	return plugins.NewSet(nil, configured...)
}

func checkExtensions(cfg *config.Config, res *Result) {
	for _, ext := range cfg.MarkdownExtensions {
		if !markdown.Known(ext.Name) {
			res.add(Issue{
				Path:     "markdown_extensions." + ext.Name,
				Severity: SeverityError,
				Rule:     RuleExtensionUnknown,
				Message:  fmt.Sprintf("markdown extension %q is not recognised", ext.Name),
			})
		}
	}
}

func checkAnalytics(cfg *config.Config, res *Result) {
	a := cfg.Extra.Analytics
	if a == nil {
		return
	}
	if !analyticsProviders[a.Provider] {
		res.add(Issue{
			Path:     "extra.analytics.provider",
			Severity: SeverityWarning,
			Rule:     RuleAnalyticsProvider,
			Message:  fmt.Sprintf("analytics provider %q is not supported; no tracking snippet is rendered", a.Provider),
			Fix:      "use provider: google",
		})
		return
	}
	if a.Property == "" {
		res.add(Issue{
			Path:     "extra.analytics.property",
			Severity: SeverityWarning,
			Rule:     RuleAnalyticsProvider,
			Message:  "analytics provider is set but property is empty",
		})
	}
}

func checkNav(cfg *config.Config, files *docs.Files, res *Result) {
	if len(cfg.Nav) == 0 {
		return
	}
	n, issues := nav.Build(cfg.Nav, files)
	for _, is := range issues {
		sev := SeverityWarning
		rule := RuleNavEmptySection
		if is.Rule == nav.RuleMissingFile {
			sev = SeverityError
			rule = RuleNavMissingFile
		}
		res.add(Issue{Path: is.Path, Severity: sev, Rule: rule, Message: is.Message})
	}
	for _, src := range nav.Unlisted(n, files) {
		res.add(Issue{
			Path:     src,
			Severity: SeverityInfo,
			Rule:     RuleNavUnlisted,
			Message:  fmt.Sprintf("%s is not included in the nav", src),
		})
	}
}
