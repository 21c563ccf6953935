package plugins

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/apidoc"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// MkdocstringsName is the configuration name of the API reference plugin.
const MkdocstringsName = "mkdocstrings"

// Mkdocstrings expands "::: identifier" directives into API documentation.
type Mkdocstrings struct {
	handler string
	paths   []string
	options apidoc.Options
	loader  *apidoc.Loader
}

// NewMkdocstrings returns the plugin with the python handler defaults.
func NewMkdocstrings() *Mkdocstrings {
	return &Mkdocstrings{handler: "python", paths: []string{"."}, options: apidoc.DefaultOptions()}
}

func (m *Mkdocstrings) Name() string { return MkdocstringsName }

func (m *Mkdocstrings) Configure(opts map[string]any) error {
	if v, ok := opts["default_handler"].(string); ok && v != "" {
		m.handler = v
	}
	if m.handler != "python" {
		return fmt.Errorf("unsupported handler %q", m.handler)
	}
	handlers, _ := opts["handlers"].(map[string]any)
	py, _ := handlers["python"].(map[string]any)
	if list, ok := py["paths"].([]any); ok {
		m.paths = nil
		for _, p := range list {
			if s, ok := p.(string); ok {
				m.paths = append(m.paths, s)
			}
		}
	}
	if o, ok := py["options"].(map[string]any); ok {
		m.options = m.options.Merge(o)
	}
	return m.options.Validate()
}

// OnConfig anchors the search paths at the configuration directory.
func (m *Mkdocstrings) OnConfig(cfg *config.Config) error {
	m.loader = apidoc.NewLoader(m.absPaths(cfg.Root)...)
	return nil
}

func (m *Mkdocstrings) absPaths(root string) []string {
	out := make([]string, 0, len(m.paths))
	for _, p := range m.paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		out = append(out, p)
	}
	return out
}

func (m *Mkdocstrings) OnPageMarkdown(md string, page *Page, site *Site) (string, error) {
	if m.loader == nil {
		m.loader = apidoc.NewLoader(m.absPaths(site.Config.Root)...)
	}
	return apidoc.ReplaceDirectives(md, func(d apidoc.Directive) (string, error) {
		if d.Handler != "" && d.Handler != m.handler {
			return "", errors.PluginError("unsupported handler").
				WithContext("handler", d.Handler).
				WithContext("identifier", d.Identifier).
				Build()
		}
		obj, err := m.loader.Load(d.Identifier)
		if err != nil {
			return "", errors.PluginError("could not collect API object").
				WithCause(err).
				WithContext("identifier", d.Identifier).
				UserAction().
				Build()
		}
		opts := m.options.Merge(d.Options)
		if err := opts.Validate(); err != nil {
			return "", err
		}
		text, anchors := apidoc.Render(obj, opts)
		for _, a := range anchors {
			site.Anchors.Register(a.ID, page.URL()+"#"+a.ID)
		}
		return text, nil
	})
}
