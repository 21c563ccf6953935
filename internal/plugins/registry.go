package plugins

import (
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Factory creates a fresh, unconfigured plugin instance.
type Factory func() Plugin

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name and any aliases.
func (r *Registry) Register(name string, f Factory, aliases ...string) error {
	if name == "" || f == nil {
		return errors.InternalError("invalid plugin registration").WithContext("name", name).Build()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		if _, exists := r.factories[n]; exists {
			return errors.InternalError("plugin already registered").WithContext("name", n).Build()
		}
	}
	for _, n := range append([]string{name}, aliases...) {
		r.factories[n] = f
	}
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Get returns a new instance of the named plugin.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.PluginError("unknown plugin").WithContext("plugin", name).UserAction().Build()
	}
	return f(), nil
}

// Names returns every registered name, aliases included, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns a registry with the built-in plugins.
func Default() *Registry {
	r := NewRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(r.Register(SearchName, func() Plugin { return NewSearch() }))
	must(r.Register(JupyterName, func() Plugin { return NewJupyter() }))
	must(r.Register(MkdocstringsName, func() Plugin { return NewMkdocstrings() }))
	must(r.Register(AutorefsName, func() Plugin { return NewAutorefs() }))
	must(r.Register(RevisionDateName, func() Plugin { return NewRevisionDate() }, RevisionDateLocalizedName))
	must(r.Register(TagsName, func() Plugin { return NewTags() }))
	return r
}

// UnknownPluginsError lists configured plugins the registry cannot provide.
type UnknownPluginsError struct {
	Names []string
}

func (e *UnknownPluginsError) Error() string {
	msg := "unknown plugins:"
	for _, n := range e.Names {
		msg += " " + n
	}
	return msg
}

// Resolve instantiates and configures the plugins listed in cfg, in order.
// Unknown names are collected into an *UnknownPluginsError; configuration
// errors abort immediately.
func Resolve(r *Registry, cfg *config.Config, rec metrics.Recorder) (*Set, error) {
	var list []Plugin
	var unknown []string
	for _, entry := range cfg.Plugins {
		p, err := r.Get(entry.Name)
		if err != nil {
			unknown = append(unknown, entry.Name)
			continue
		}
		if err := p.Configure(entry.Options); err != nil {
			return nil, errors.PluginError("invalid plugin options").
				WithCause(err).
				WithContext("plugin", entry.Name).
				UserAction().
				Build()
		}
		list = append(list, p)
	}
	set := NewSet(rec, list...)
	if len(unknown) > 0 {
		return set, errors.PluginError("unresolvable plugins").
			WithCause(&UnknownPluginsError{Names: unknown}).
			WithContext("plugins", unknown).
			UserAction().
			Build()
	}
	return set, nil
}

func wrapHookError(p Plugin, hook string, err error) *errors.ClassifiedError {
	return errors.PluginError("plugin hook failed").
		WithCause(err).
		WithContext("plugin", p.Name()).
		WithContext("hook", hook).
		Build()
}
