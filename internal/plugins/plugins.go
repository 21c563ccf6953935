// Package plugins implements the build plugin model and the built-in plugins.
//
// A plugin implements Plugin plus any of the hook interfaces. Hooks run in
// the order plugins are listed in the configuration.
package plugins

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/nav"
)

// Plugin is the base interface every plugin implements.
type Plugin interface {
	Name() string
	// Configure receives the plugin's options from the configuration file.
	Configure(opts map[string]any) error
}

// ConfigHook may adjust the configuration before files are discovered.
type ConfigHook interface {
	OnConfig(cfg *config.Config) error
}

// FilesHook may add, remove or reclassify discovered files.
type FilesHook interface {
	OnFiles(files *docs.Files, site *Site) error
}

// PagesHook sees every page once the sources are read, before rendering.
// Unlike PageMarkdownHook it also runs for notebooks and for pages a dirty
// build reuses.
type PagesHook interface {
	OnPages(pages []*Page, site *Site) error
}

// PageMarkdownHook transforms page source before rendering.
type PageMarkdownHook interface {
	OnPageMarkdown(md string, page *Page, site *Site) (string, error)
}

// PageContentHook transforms rendered page HTML. It runs once every page has
// been rendered.
type PageContentHook interface {
	OnPageContent(html string, page *Page, site *Site) (string, error)
}

// PostBuildHook runs after pages and assets are written.
type PostBuildHook interface {
	OnPostBuild(site *Site) error
}

// NotebookRenderer renders .ipynb documents. Without one, notebooks are
// copied as static files.
type NotebookRenderer interface {
	RenderNotebook(data []byte, page *Page, site *Site) (*markdown.Rendered, error)
}

// Page is a navigation page plus its build-time state.
type Page struct {
	*nav.Page
	Markdown     string
	Content      string
	Rendered     *markdown.Rendered
	RevisionDate time.Time
	RevisionText string
	// Reused is set when a dirty build copied the page from the previous site.
	Reused bool
}

// Emitter renders content through the page template and writes it to dest.
type Emitter func(dest, title, content string) error

// Site is the shared build state handed to hooks.
type Site struct {
	Context     context.Context
	Logger      *slog.Logger
	Config      *config.Config
	Files       *docs.Files
	Nav         *nav.Nav
	Pages       []*Page
	Markdown    *markdown.Renderer
	OutputDir   string
	PreviousDir string
	BuildID     string
	Anchors     *Anchors
	Emit        Emitter

	mu       sync.Mutex
	warnings []string
}

// Warn records a non-fatal plugin problem for the build report.
func (s *Site) Warn(plugin, msg string) {
	s.mu.Lock()
	s.warnings = append(s.warnings, plugin+": "+msg)
	s.mu.Unlock()
	if s.Logger != nil {
		s.Logger.Warn(msg, slog.String("plugin", plugin))
	}
}

// Warnings returns and clears the recorded warnings.
func (s *Site) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.warnings
	s.warnings = nil
	return w
}

// Page returns the build page for a docs-relative source path.
func (s *Site) Page(src string) (*Page, bool) {
	for _, p := range s.Pages {
		if p.File.SrcPath == src {
			return p, true
		}
	}
	return nil, false
}

// Anchors maps identifiers to site-relative URLs for cross references.
type Anchors struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewAnchors returns an empty anchor map.
func NewAnchors() *Anchors {
	return &Anchors{ids: make(map[string]string)}
}

// Register maps id to url. The first registration wins.
func (a *Anchors) Register(id, url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ids[id]; !ok {
		a.ids[id] = url
	}
}

// Lookup returns the URL registered for id.
func (a *Anchors) Lookup(id string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.ids[id]
	return u, ok
}

// Len returns the number of registered anchors.
func (a *Anchors) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ids)
}

// Set is the ordered list of configured plugins.
type Set struct {
	plugins []Plugin
	metrics metrics.Recorder
}

// NewSet wraps plugins in configuration order.
func NewSet(rec metrics.Recorder, plugins ...Plugin) *Set {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Set{plugins: plugins, metrics: rec}
}

// Plugins returns the configured plugins.
func (s *Set) Plugins() []Plugin { return s.plugins }

// Get returns the configured plugin with the given name.
func (s *Set) Get(name string) (Plugin, bool) {
	for _, p := range s.plugins {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// OnConfig runs every ConfigHook.
func (s *Set) OnConfig(cfg *config.Config) error {
	for _, p := range s.plugins {
		if h, ok := p.(ConfigHook); ok {
			s.metrics.IncPluginInvocation(p.Name(), "config")
			if err := h.OnConfig(cfg); err != nil {
				return wrapHookError(p, "config", err)
			}
		}
	}
	return nil
}

// OnFiles runs every FilesHook.
func (s *Set) OnFiles(files *docs.Files, site *Site) error {
	for _, p := range s.plugins {
		if h, ok := p.(FilesHook); ok {
			s.metrics.IncPluginInvocation(p.Name(), "files")
			if err := h.OnFiles(files, site); err != nil {
				return wrapHookError(p, "files", err)
			}
		}
	}
	return nil
}

// OnPages runs every PagesHook.
func (s *Set) OnPages(pages []*Page, site *Site) error {
	for _, p := range s.plugins {
		if h, ok := p.(PagesHook); ok {
			s.metrics.IncPluginInvocation(p.Name(), "pages")
			if err := h.OnPages(pages, site); err != nil {
				return wrapHookError(p, "pages", err)
			}
		}
	}
	return nil
}

// OnPageMarkdown threads page source through every PageMarkdownHook.
func (s *Set) OnPageMarkdown(md string, page *Page, site *Site) (string, error) {
	for _, p := range s.plugins {
		if h, ok := p.(PageMarkdownHook); ok {
			s.metrics.IncPluginInvocation(p.Name(), "page_markdown")
			out, err := h.OnPageMarkdown(md, page, site)
			if err != nil {
				return md, wrapHookError(p, "page_markdown", err).WithContext("page", page.File.SrcPath)
			}
			md = out
		}
	}
	return md, nil
}

// OnPageContent threads page HTML through every PageContentHook.
func (s *Set) OnPageContent(html string, page *Page, site *Site) (string, error) {
	for _, p := range s.plugins {
		if h, ok := p.(PageContentHook); ok {
			s.metrics.IncPluginInvocation(p.Name(), "page_content")
			out, err := h.OnPageContent(html, page, site)
			if err != nil {
				return html, wrapHookError(p, "page_content", err).WithContext("page", page.File.SrcPath)
			}
			html = out
		}
	}
	return html, nil
}

// OnPostBuild runs every PostBuildHook.
func (s *Set) OnPostBuild(site *Site) error {
	for _, p := range s.plugins {
		if h, ok := p.(PostBuildHook); ok {
			s.metrics.IncPluginInvocation(p.Name(), "post_build")
			if err := h.OnPostBuild(site); err != nil {
				return wrapHookError(p, "post_build", err)
			}
		}
	}
	return nil
}

// NotebookRenderer returns the first plugin able to render notebooks.
func (s *Set) NotebookRenderer() (NotebookRenderer, bool) {
	for _, p := range s.plugins {
		if r, ok := p.(NotebookRenderer); ok {
			return r, true
		}
	}
	return nil, false
}
