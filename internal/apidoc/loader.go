package apidoc

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Loader locates Python modules on a list of search paths and caches parsed
// modules.
type Loader struct {
	Paths []string

	mu      sync.Mutex
	modules map[string]*Object
}

// NewLoader returns a loader over paths.
func NewLoader(paths ...string) *Loader {
	return &Loader{Paths: paths, modules: map[string]*Object{}}
}

// Load resolves a dotted identifier to a module, class, function or method.
// The longest prefix that names a module file wins.
func (l *Loader) Load(identifier string) (*Object, error) {
	parts := strings.Split(identifier, ".")
	for i := len(parts); i > 0; i-- {
		modPath := strings.Join(parts[:i], ".")
		mod, err := l.module(modPath)
		if err != nil {
			return nil, err
		}
		if mod == nil {
			continue
		}
		if i == len(parts) {
			return mod, nil
		}
		obj := mod.Lookup(strings.Join(parts[i:], "."))
		if obj == nil {
			return nil, errors.NotFoundError("object not found in module").
				WithContext("identifier", identifier).
				WithContext("module", modPath).
				Build()
		}
		return obj, nil
	}
	return nil, errors.NotFoundError("module not found on search paths").
		WithContext("identifier", identifier).
		WithContext("paths", strings.Join(l.Paths, ",")).
		Build()
}

func (l *Loader) module(dotted string) (*Object, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.modules == nil {
		l.modules = map[string]*Object{}
	}
	if mod, ok := l.modules[dotted]; ok {
		return mod, nil
	}
	rel := filepath.FromSlash(strings.ReplaceAll(dotted, ".", "/"))
	for _, base := range l.Paths {
		for _, candidate := range []string{rel + ".py", filepath.Join(rel, "__init__.py")} {
			p := filepath.Join(base, candidate)
			src, err := os.ReadFile(p)
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return nil, errors.FileSystemError("read python module").WithCause(err).WithContext("path", p).Build()
			}
			mod := ParseModule(dotted, src)
			setFile(mod, filepath.ToSlash(candidate))
			l.modules[dotted] = mod
			return mod, nil
		}
	}
	l.modules[dotted] = nil
	return nil, nil
}

func setFile(o *Object, file string) {
	o.File = file
	for _, m := range o.Members {
		setFile(m, file)
	}
}
