package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// Snapshot computes a stable hash of the configuration fields that affect
// rendered output. Dirty builds reuse a previous page only when the snapshot
// is unchanged. Runtime-only fields (dev_addr, watch, site_dir) are excluded.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	h := sha256.New()
	w := func(parts ...string) { h.Write([]byte(strings.Join(parts, "="))); h.Write([]byte{0}) }
	w("site_name", c.SiteName)
	w("site_url", c.SiteURL)
	w("site_description", c.SiteDescription)
	w("site_author", c.SiteAuthor)
	w("copyright", c.Copyright)
	w("repo_url", c.RepoURL)
	w("repo_name", c.RepoName)
	w("edit_uri", c.EditURI)
	w("use_directory_urls", strconv.FormatBool(c.DirectoryURLs()))
	w("theme", canonicalJSON(c.Theme))
	w("plugins", canonicalJSON(c.Plugins))
	w("markdown_extensions", canonicalJSON(c.MarkdownExtensions))
	w("nav", canonicalJSON(c.Nav))
	w("extra", canonicalJSON(c.Extra))
	w("extra_css", strings.Join(c.ExtraCSS, ","))
	w("extra_javascript", strings.Join(c.ExtraJavaScript, ","))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON relies on encoding/json sorting map keys.
func canonicalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
