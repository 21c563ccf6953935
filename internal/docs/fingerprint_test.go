package docs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint_ChangesWithMetaAndBody(t *testing.T) {
	base := Fingerprint([]byte("---\ntitle: A\n---\nbody\n"))
	require.NotEmpty(t, base)
	require.Equal(t, base, Fingerprint([]byte("---\ntitle: A\n---\nbody\n")))
	require.NotEqual(t, base, Fingerprint([]byte("---\ntitle: B\n---\nbody\n")))
	require.NotEqual(t, base, Fingerprint([]byte("---\ntitle: A\n---\nother\n")))
	require.NotEmpty(t, Fingerprint([]byte("no meta")))
}

func TestManifest_SaveLoadUnchanged(t *testing.T) {
	dir := t.TempDir()

	missing, err := LoadManifest(dir)
	require.NoError(t, err)
	require.Nil(t, missing)
	require.False(t, missing.Unchanged("h", "index.md", "fp"))

	m := NewManifest("cfg1")
	m.Set("index.md", ManifestEntry{Fingerprint: "fp1", DestPath: "index.html", Title: "Home"})
	require.NoError(t, m.Save(dir))

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	require.True(t, loaded.Unchanged("cfg1", "index.md", "fp1"))
	require.False(t, loaded.Unchanged("cfg2", "index.md", "fp1"))
	require.False(t, loaded.Unchanged("cfg1", "index.md", "fp2"))
	require.False(t, loaded.Unchanged("cfg1", "other.md", "fp1"))

	e, ok := loaded.Entry("index.md")
	require.True(t, ok)
	require.Equal(t, "Home", e.Title)
}
