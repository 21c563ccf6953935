package theme

import (
	"bytes"
	"html/template"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/nav"
)

// Engine renders pages with a theme plus any custom_dir overrides.
type Engine struct {
	name      string
	features  Features
	tmpl      *template.Template
	templates map[string]string // template name -> origin ("theme" or "custom")
	assets    map[string]fs.FS
}

// Asset is a static file to publish.
type Asset struct {
	Path string
	FS   fs.FS
}

// Open returns a reader for the asset.
func (a Asset) Open() (fs.File, error) { return a.FS.Open(a.Path) }

var funcs = template.FuncMap{
	"lower":      strings.ToLower,
	"replaceAll": strings.ReplaceAll,
	"titleCase":  nav.TitleFromName,
}

// Load builds the engine for cfg.theme. An unknown theme name without a
// custom_dir is an error.
func Load(cfg *config.Config) (*Engine, error) {
	e := &Engine{
		name:      cfg.Theme.Name,
		tmpl:      template.New("").Funcs(funcs),
		templates: map[string]string{},
		assets:    map[string]fs.FS{},
	}

	if cfg.Theme.Name != "" {
		t, ok := Get(cfg.Theme.Name)
		if !ok {
			return nil, errors.ThemeError("unresolvable theme").
				WithContext("theme", cfg.Theme.Name).
				WithContext("available", strings.Join(Names(), ", ")).
				UserAction().
				Build()
		}
		e.features = t.Features()
		if err := e.addTemplates(t.Templates(), "theme"); err != nil {
			return nil, err
		}
		if err := e.addAssets(t.Assets()); err != nil {
			return nil, err
		}
	}

	if dir := cfg.Theme.CustomDir; dir != "" {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, errors.ThemeError("custom_dir does not exist").
				WithCause(err).
				WithContext("path", dir).
				UserAction().
				Build()
		}
		custom := os.DirFS(dir)
		if err := e.addTemplates(custom, "custom"); err != nil {
			return nil, err
		}
		if err := e.addAssets(custom); err != nil {
			return nil, err
		}
	}

	if e.tmpl.Lookup("main.html") == nil {
		return nil, errors.ThemeError("theme has no main.html template").
			WithContext("theme", cfg.Theme.Name).
			Build()
	}
	return e, nil
}

func (e *Engine) addTemplates(fsys fs.FS, origin string) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return errors.ThemeError("read template").WithCause(err).WithContext("template", p).Build()
		}
		if _, err := e.tmpl.New(p).Parse(string(src)); err != nil {
			return errors.ThemeError("parse template").WithCause(err).WithContext("template", p).Build()
		}
		e.templates[p] = origin
		return nil
	})
}

func (e *Engine) addAssets(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) == ".html" || strings.HasPrefix(path.Base(p), ".") {
			return nil
		}
		e.assets[p] = fsys
		return nil
	})
}

// Name returns the configured theme name.
func (e *Engine) Name() string { return e.name }

// Features returns the base theme's capabilities.
func (e *Engine) Features() Features { return e.features }

// Has reports whether a template exists.
func (e *Engine) Has(name string) bool { return e.tmpl.Lookup(name) != nil }

// Origin reports where a template came from: "theme" or "custom".
func (e *Engine) Origin(name string) string { return e.templates[name] }

// Assets returns the static files in path order.
func (e *Engine) Assets() []Asset {
	out := make([]Asset, 0, len(e.assets))
	for p, fsys := range e.assets {
		out = append(out, Asset{Path: p, FS: fsys})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Render executes template name with ctx.
func (e *Engine) Render(name string, ctx *Context) ([]byte, error) {
	t := e.tmpl.Lookup(name)
	if t == nil {
		return nil, errors.ThemeError("template not found").WithContext("template", name).UserAction().Build()
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return nil, errors.ThemeError("render template").WithCause(err).WithContext("template", name).Build()
	}
	return buf.Bytes(), nil
}
