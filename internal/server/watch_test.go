package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldIgnore(t *testing.T) {
	for path, want := range map[string]bool{
		"/docs/index.md":      false,
		"/docs/.index.md.swp": true,
		"/docs/index.md~":     true,
		"/docs/#index.md#":    true,
		"/docs/.DS_Store":     true,
		"/docs/page.swx":      true,
		"/docs/img/logo.png":  false,
	} {
		require.Equal(t, want, shouldIgnore(path), path)
	}
}

func TestWatcher_Relevant(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	cfgPath := filepath.Join(root, "mkdocs.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("site_name: x\n"), 0o644))

	w, err := NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	w.Watch(cfgPath, docs, filepath.Join(root, "missing"))

	require.True(t, w.relevant(cfgPath))
	require.True(t, w.relevant(filepath.Join(docs, "a", "b.md")))
	require.False(t, w.relevant(filepath.Join(root, "site", "index.html")))
	require.False(t, w.relevant(filepath.Join(root, "docs-other", "x.md")))
	require.False(t, w.relevant(filepath.Join(docs, ".hidden.md")))
}

func TestWatcher_ReportsChanges(t *testing.T) {
	docs := t.TempDir()
	w, err := NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	w.Watch(docs)

	changed := make(chan string, 16)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go w.Run(ctx, func(p string) { changed <- p })

	sub := filepath.Join(docs, "guide")
	require.NoError(t, os.Mkdir(sub, 0o755))
	select {
	case p := <-changed:
		require.Equal(t, sub, p)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for new directory")
	}

	// New directories are watched as they appear.
	page := filepath.Join(sub, "page.md")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(page, []byte("# Page\n"), 0o644)
		for {
			select {
			case p := <-changed:
				if p == page {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 50*time.Millisecond)
}

func TestScheduler_ScheduleEvery(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	_, err = s.ScheduleEvery("test", 0, func() {})
	require.Error(t, err)

	fired := make(chan struct{}, 8)
	id, err := s.ScheduleEvery("test", 20*time.Millisecond, func() { fired <- struct{}{} })
	require.NoError(t, err)
	require.NotEmpty(t, id)
	s.Start()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task did not run")
	}
}
