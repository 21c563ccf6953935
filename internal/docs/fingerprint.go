package docs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
)

// ManifestFile is the name of the fingerprint manifest kept in site_dir.
const ManifestFile = ".sitegen-manifest.json"

// Fingerprint returns the content fingerprint of a source file. Page meta and
// body are hashed separately so that meta-only edits still change the value.
func Fingerprint(content []byte) string {
	meta, body, had, err := frontmatter.Split(content)
	if err != nil || !had {
		return mdfp.CalculateFingerprintFromParts("", string(content))
	}
	return mdfp.CalculateFingerprintFromParts(string(meta), string(body))
}

// ManifestEntry records the state of one rendered page.
type ManifestEntry struct {
	Fingerprint string `json:"fingerprint"`
	DestPath    string `json:"dest_path"`
	Title       string `json:"title,omitempty"`
}

// Manifest maps source paths to the fingerprints used for the previous build.
type Manifest struct {
	ConfigHash string                   `json:"config_hash"`
	Pages      map[string]ManifestEntry `json:"pages"`
}

// NewManifest returns an empty manifest for the given configuration snapshot.
func NewManifest(configHash string) *Manifest {
	return &Manifest{ConfigHash: configHash, Pages: map[string]ManifestEntry{}}
}

// Unchanged reports whether src was rendered with the same fingerprint
// under the same configuration.
func (m *Manifest) Unchanged(configHash, src, fingerprint string) bool {
	if m == nil || m.ConfigHash != configHash {
		return false
	}
	e, ok := m.Pages[src]
	return ok && e.Fingerprint == fingerprint
}

// Set records the state of src after rendering.
func (m *Manifest) Set(src string, e ManifestEntry) {
	m.Pages[src] = e
}

// Entry returns the recorded state of src.
func (m *Manifest) Entry(src string) (ManifestEntry, bool) {
	if m == nil {
		return ManifestEntry{}, false
	}
	e, ok := m.Pages[src]
	return e, ok
}

// LoadManifest reads the manifest from dir. A missing file yields nil, nil.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.FileSystemError("read manifest").WithCause(err).Build()
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.BuildError("decode manifest").WithCause(err).Warning().Build()
	}
	if m.Pages == nil {
		m.Pages = map[string]ManifestEntry{}
	}
	return &m, nil
}

// Save writes the manifest into dir atomically.
func (m *Manifest) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.InternalError("encode manifest").WithCause(err).Build()
	}
	if err := renameio.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return errors.FileSystemError("write manifest").WithCause(err).Build()
	}
	return nil
}
