package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Watcher reports changes below a set of watched paths. Directories are
// watched recursively; files are watched through their parent directory so
// editors that replace files on save are still seen.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger *slog.Logger

	mu    sync.RWMutex
	roots map[string]bool
	files map[string]bool
}

// NewWatcher creates an fsnotify-backed Watcher with nothing watched yet.
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create file watcher").Build()
	}
	return &Watcher{fs: fw, logger: logger, roots: map[string]bool{}, files: map[string]bool{}}, nil
}

// Watch adds paths. Paths already watched and paths that do not exist are
// skipped.
func (w *Watcher) Watch(paths ...string) {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		fi, err := os.Stat(abs)
		if err != nil {
			w.logger.Warn("Watch path does not exist", logfields.Path(abs))
			continue
		}
		w.mu.Lock()
		if fi.IsDir() {
			if w.roots[abs] {
				w.mu.Unlock()
				continue
			}
			w.roots[abs] = true
			w.mu.Unlock()
			w.addDirsRecursive(abs)
			continue
		}
		if w.files[abs] {
			w.mu.Unlock()
			continue
		}
		w.files[abs] = true
		w.mu.Unlock()
		if err := w.fs.Add(filepath.Dir(abs)); err != nil {
			w.logger.Warn("watch add failed", logfields.Path(abs), logfields.Error(err))
		}
	}
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.fs.Add(p); err != nil {
				w.logger.Warn("watch add failed", logfields.Path(p), logfields.Error(err))
			}
		}
		return nil
	})
}

// Run calls onChange for every relevant event until ctx is done or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					w.addDirsRecursive(ev.Name)
				}
			}
			w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			onChange(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

// relevant reports whether name is a watched file or lies below a watched
// directory, ignoring hidden and editor temp files.
func (w *Watcher) relevant(name string) bool {
	if shouldIgnore(name) {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.files[name] {
		return true
	}
	for root := range w.roots {
		if name == root || strings.HasPrefix(name, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
