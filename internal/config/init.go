package config

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

const starterConfig = `site_name: My Docs
# site_url: https://example.com/
# repo_url: https://github.com/example/project

theme:
  name: material
  features:
    - navigation.sections
    - search.suggest
    - content.code.copy

plugins:
  - search

markdown_extensions:
  - admonition
  - tables
  - toc:
      permalink: true
  - pymdownx.superfences

nav:
  - Home: index.md
`

const starterIndex = `# Welcome

This site is built with sitegen.

## Commands

* ` + "`sitegen new [dir]`" + ` - Create a new project.
* ` + "`sitegen serve`" + ` - Start the live-reloading docs server.
* ` + "`sitegen build`" + ` - Build the documentation site.
`

// Init scaffolds a new project in dir: mkdocs.yml and docs/index.md.
func Init(dir string, force bool) error {
	cfgPath := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", cfgPath).Build()
	}
	docsDir := filepath.Join(dir, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create docs directory").
			WithContext("path", docsDir).Build()
	}
	if err := os.WriteFile(cfgPath, []byte(starterConfig), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", cfgPath).Build()
	}
	indexPath := filepath.Join(docsDir, "index.md")
	if _, err := os.Stat(indexPath); err == nil && !force {
		return nil
	}
	if err := os.WriteFile(indexPath, []byte(starterIndex), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write index page").
			WithContext("path", indexPath).Build()
	}
	return nil
}
