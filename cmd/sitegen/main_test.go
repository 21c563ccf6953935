package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/validate"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "proj")
	code, out, errOut := runCLI(t, "-q", "new", dir)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Creating project in")
	return dir
}

func TestRun_NewAndBuild(t *testing.T) {
	dir := newProject(t)
	cfg := filepath.Join(dir, "mkdocs.yml")
	require.FileExists(t, cfg)
	require.FileExists(t, filepath.Join(dir, "docs", "index.md"))

	code, out, errOut := runCLI(t, "-q", "-f", cfg, "build")
	require.Equal(t, 0, code, errOut)
	require.Regexp(t, `^Build (success|warning): pages=1 `, out)
	require.FileExists(t, filepath.Join(dir, "site", "index.html"))

	code, _, errOut = runCLI(t, "-q", "new", dir)
	require.Equal(t, 7, code)
	require.Contains(t, errOut, "already exists")
}

func TestRun_BuildSiteDirAndHistory(t *testing.T) {
	dir := newProject(t)
	cfg := filepath.Join(dir, "mkdocs.yml")
	out := filepath.Join(t.TempDir(), "public")
	db := filepath.Join(t.TempDir(), "history.db")

	code, _, errOut := runCLI(t, "-q", "-f", cfg, "build", "-d", out, "--history", db)
	require.Equal(t, 0, code, errOut)
	require.FileExists(t, filepath.Join(out, "index.html"))

	code, listing, errOut := runCLI(t, "-q", "history", "--db", db)
	require.Equal(t, 0, code, errOut)
	lines := strings.Split(strings.TrimSpace(listing), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	id := strings.Fields(lines[1])[0]

	code, report, errOut := runCLI(t, "-q", "history", "--db", db, id)
	require.Equal(t, 0, code, errOut)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(report), &decoded))
	require.Equal(t, id, decoded["id"])
}

func TestRun_StrictBuildFailsOnWarnings(t *testing.T) {
	dir := newProject(t)
	cfg := filepath.Join(dir, "mkdocs.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("site_name: Demo\nnav:\n  - Home: index.md\n  - Gone: gone.md\n"), 0o644))

	code, _, _ := runCLI(t, "-q", "-f", cfg, "build", "--strict")
	require.Equal(t, 11, code)
	require.NoFileExists(t, filepath.Join(dir, "site", "index.html"))
}

func TestRun_BuildFlagErrors(t *testing.T) {
	dir := newProject(t)
	cfg := filepath.Join(dir, "mkdocs.yml")

	code, _, _ := runCLI(t, "-q", "-f", cfg, "build", "--dirty", "--clean")
	require.Equal(t, 2, code)

	code, _, _ = runCLI(t, "-q", "-f", filepath.Join(dir, "missing.yml"), "build")
	require.Equal(t, 7, code)

	code, _, _ = runCLI(t, "-q", "history", "--db", filepath.Join(dir, "none.db"))
	require.Equal(t, 7, code)

	code, _, _ = runCLI(t, "no-such-command")
	require.Equal(t, 2, code)
}

func TestRun_Validate(t *testing.T) {
	dir := newProject(t)
	cfg := filepath.Join(dir, "mkdocs.yml")

	code, out, _ := runCLI(t, "-q", "-f", cfg, "validate")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Configuration is valid")

	require.NoError(t, os.WriteFile(cfg, []byte("site_name: Demo\ntheme: nope\n"), 0o644))
	code, out, _ = runCLI(t, "-q", "-f", cfg, "validate", "--format", "json")
	require.Equal(t, 2, code)
	var decoded validate.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, 1, decoded.ErrorCount)
	require.Equal(t, validate.RuleThemeUnknown, decoded.Issues[0].Rule)
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	require.Equal(t, 0, code)
	require.True(t, strings.HasPrefix(out, "sitegen "))

	code, out, _ = runCLI(t, "version", "--json")
	require.Equal(t, 0, code)
	require.Contains(t, out, `"go_version"`)
}
