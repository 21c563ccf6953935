// Package theme loads page templates and static assets for the site.
//
// Two themes are built in and embedded in the binary: "mkdocs" and
// "material". theme.custom_dir overrides templates and assets by path.
package theme

import (
	"embed"
	"io/fs"
	"sort"
	"sync"
)

//go:embed all:themes
var builtin embed.FS

// Features describes what a theme can render.
type Features struct {
	// Flags lists the theme.features values the theme understands.
	Flags []string
	// Palette reports whether theme.palette is honoured.
	Palette bool
}

// Supports reports whether flag is one of the theme's feature flags.
func (f Features) Supports(flag string) bool {
	for _, s := range f.Flags {
		if s == flag {
			return true
		}
	}
	return false
}

// Theme is a set of templates plus static assets.
type Theme interface {
	Name() string
	Features() Features
	// Template returns the source of a template such as "main.html".
	Template(name string) (string, bool)
	// Assets holds files copied verbatim into the site.
	Assets() fs.FS
	// Templates holds every template source.
	Templates() fs.FS
}

type embeddedTheme struct {
	name     string
	features Features
	root     fs.FS
}

func newEmbedded(name string, features Features) *embeddedTheme {
	root, err := fs.Sub(builtin, "themes/"+name)
	if err != nil {
		panic(err)
	}
	return &embeddedTheme{name: name, features: features, root: root}
}

func (t *embeddedTheme) Name() string       { return t.name }
func (t *embeddedTheme) Features() Features { return t.features }

func (t *embeddedTheme) Template(name string) (string, bool) {
	b, err := fs.ReadFile(t.root, "templates/"+name)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (t *embeddedTheme) Assets() fs.FS { return sub(t.root, "assets") }

func (t *embeddedTheme) Templates() fs.FS { return sub(t.root, "templates") }

func sub(fsys fs.FS, dir string) fs.FS {
	s, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return s
}

// Material feature flags.
const (
	FeatureNavigationTabs     = "navigation.tabs"
	FeatureNavigationSections = "navigation.sections"
	FeatureNavigationTop      = "navigation.top"
	FeatureTOCIntegrate       = "toc.integrate"
	FeatureSearchSuggest      = "search.suggest"
	FeatureSearchHighlight    = "search.highlight"
	FeatureContentCodeCopy    = "content.code.copy"
)

var (
	regMu sync.RWMutex
	reg   = map[string]Theme{}
)

func init() {
	Register(newEmbedded("mkdocs", Features{}))
	Register(newEmbedded("material", Features{
		Flags: []string{
			FeatureNavigationTabs, FeatureNavigationSections, FeatureNavigationTop,
			FeatureTOCIntegrate, FeatureSearchSuggest, FeatureSearchHighlight,
			FeatureContentCodeCopy,
		},
		Palette: true,
	}))
}

// Register adds a theme. Duplicate names are ignored.
func Register(t Theme) {
	if t == nil {
		return
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := reg[t.Name()]; !exists {
		reg[t.Name()] = t
	}
}

// Get returns a registered theme.
func Get(name string) (Theme, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	t, ok := reg[name]
	return t, ok
}

// Names lists the registered themes.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
