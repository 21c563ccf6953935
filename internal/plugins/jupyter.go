package plugins

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/nav"
	"git.home.luguber.info/inful/sitegen/internal/notebook"
)

// JupyterName is the configuration name of the notebook plugin.
const JupyterName = "mkdocs-jupyter"

// Jupyter renders .ipynb files as pages.
type Jupyter struct {
	opts     notebook.Options
	include  []string
	ignore   []string
	warnings []string
}

// NewJupyter returns a notebook plugin with default options.
func NewJupyter() *Jupyter {
	return &Jupyter{opts: notebook.DefaultOptions(), include: []string{"*.ipynb"}}
}

func (j *Jupyter) Name() string { return JupyterName }

func (j *Jupyter) Configure(opts map[string]any) error {
	j.opts, j.warnings = notebook.OptionsFrom(opts)
	if v, ok := opts["include"]; ok {
		list, ok := v.([]any)
		if !ok {
			return fmt.Errorf("include must be a list of patterns")
		}
		j.include = nil
		for _, p := range list {
			if s, ok := p.(string); ok {
				j.include = append(j.include, s)
			}
		}
	}
	if v, ok := opts["ignore"].([]any); ok {
		for _, p := range v {
			if s, ok := p.(string); ok {
				j.ignore = append(j.ignore, s)
			}
		}
	}
	return nil
}

// Options returns the effective rendering options.
func (j *Jupyter) Options() notebook.Options { return j.opts }

func (j *Jupyter) OnFiles(files *docs.Files, site *Site) error {
	for _, w := range j.warnings {
		site.Warn(JupyterName, w)
	}
	for _, f := range files.All() {
		if f.Kind != docs.KindNotebook {
			continue
		}
		if !j.selected(f.SrcPath) {
			f.AsAsset()
		}
	}
	return nil
}

func (j *Jupyter) selected(src string) bool {
	if docs.Excluded(src, false, j.ignore) {
		return false
	}
	for _, p := range j.include {
		if ok, _ := path.Match(p, path.Base(src)); ok {
			return true
		}
		if ok, _ := path.Match(p, src); ok {
			return true
		}
	}
	return false
}

func (j *Jupyter) RenderNotebook(data []byte, page *Page, site *Site) (*markdown.Rendered, error) {
	nb, err := notebook.Parse(data)
	if err != nil {
		return nil, err
	}
	var sourceURL string
	if j.opts.IncludeSource {
		sourceURL = nav.Relative(page.URL(), page.File.SrcPath)
	}
	ctx := markdown.Context{Resolve: markdown.FileResolver(site.Files, page.File)}
	return notebook.Render(nb, j.opts, site.Markdown, ctx, sourceURL)
}

// OnPostBuild publishes the notebook sources next to the rendered pages.
func (j *Jupyter) OnPostBuild(site *Site) error {
	if !j.opts.IncludeSource {
		return nil
	}
	for _, p := range site.Pages {
		if p.File.Kind != docs.KindNotebook {
			continue
		}
		dest := filepath.Join(site.OutputDir, filepath.FromSlash(p.File.SrcPath))
		if err := copyFile(p.File.AbsPath, dest); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.FileSystemError("open source").WithCause(err).WithContext("path", src).Build()
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return errors.FileSystemError("create directory").WithCause(err).WithContext("path", dest).Build()
	}
	out, err := os.Create(dest)
	if err != nil {
		return errors.FileSystemError("create file").WithCause(err).WithContext("path", dest).Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.FileSystemError("copy file").WithCause(err).WithContext("path", dest).Build()
	}
	if err := out.Close(); err != nil {
		return errors.FileSystemError("close file").WithCause(err).WithContext("path", dest).Build()
	}
	return nil
}
