// Package gitinfo answers revision-date questions about documentation files.
package gitinfo

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Source reports when a file last changed.
type Source interface {
	LastModified(path string) (time.Time, error)
}

// Repo resolves revision dates from a git history. A Repo with no
// repository falls back to file modification times.
type Repo struct {
	mu    sync.Mutex
	repo  *git.Repository
	root  string
	cache map[string]time.Time
}

// Open finds the repository containing dir, searching parent directories.
// When dir is not inside a repository the returned Repo uses mtimes only.
func Open(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.FileSystemError("resolve path").WithCause(err).WithContext("path", dir).Build()
	}
	r := &Repo{cache: make(map[string]time.Time)}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return r, nil
		}
		return nil, errors.FileSystemError("open git repository").WithCause(err).WithContext("path", abs).Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories carry no working files to date.
		return r, nil //nolint:nilerr // mtime fallback
	}
	r.repo = repo
	r.root = wt.Filesystem.Root()
	return r, nil
}

// InRepository reports whether dates come from git history.
func (r *Repo) InRepository() bool { return r.repo != nil }

// Root is the worktree root, empty outside a repository.
func (r *Repo) Root() string { return r.root }

// LastModified returns the author time of the newest commit touching path.
// Untracked files and paths outside the worktree fall back to mtime.
func (r *Repo) LastModified(path string) (time.Time, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, errors.FileSystemError("resolve path").WithCause(err).WithContext("path", path).Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.cache[abs]; ok {
		return t, nil
	}

	t, ok := r.commitTime(abs)
	if !ok {
		info, statErr := os.Stat(abs)
		if statErr != nil {
			return time.Time{}, errors.FileSystemError("stat file").WithCause(statErr).WithContext("path", abs).Build()
		}
		t = info.ModTime()
	}
	r.cache[abs] = t
	return t, nil
}

func (r *Repo) commitTime(abs string) (time.Time, bool) {
	if r.repo == nil {
		return time.Time{}, false
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return time.Time{}, false
	}
	rel = filepath.ToSlash(rel)
	iter, err := r.repo.Log(&git.LogOptions{FileName: &rel})
	if err != nil {
		return time.Time{}, false
	}
	defer iter.Close()
	var commit *object.Commit
	commit, err = iter.Next()
	if err != nil || commit == nil {
		return time.Time{}, false
	}
	return commit.Author.When, true
}
