package build

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
	"git.home.luguber.info/inful/sitegen/internal/theme"
)

// Templates rendered besides the page template.
const (
	mainTemplate     = "main.html"
	notFoundTemplate = "404.html"
	searchTemplate   = "search.html"
)

// stageWritePages renders every page through the theme into the staging
// directory. Reused pages are copied from the previous site.
func stageWritePages(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	for _, p := range bs.Pages {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageWritePages, ctx.Err())
		default:
		}
		dest := joinSlash(g.stageDir, p.File.DestPath)
		if p.Reused {
			if err := copyFile(joinSlash(g.outputDir, p.File.DestPath), dest); err != nil {
				return newFatalStageError(StageWritePages, err)
			}
		} else {
			out, err := bs.renderTemplate(p)
			if err != nil {
				return newFatalStageError(StageWritePages, err)
			}
			if err := writeFile(dest, out); err != nil {
				return newFatalStageError(StageWritePages, err)
			}
		}
		entry, _ := bs.Manifest.Entry(p.File.SrcPath)
		entry.Title = p.Title
		bs.Manifest.Set(p.File.SrcPath, entry)
		bs.Written = append(bs.Written, p.File.DestPath)
	}

	if bs.Theme.Has(notFoundTemplate) {
		data := theme.PageData{Title: "Page not found", AbsoluteBase: BasePath(bs.Config.SiteURL)}
		if err := bs.writeSpecial(notFoundTemplate, "404.html", data); err != nil {
			return newFatalStageError(StageWritePages, err)
		}
	}
	if bs.Config.HasPlugin(plugins.SearchName) && bs.Theme.Has(searchTemplate) {
		data := theme.PageData{URL: "search.html", Title: "Search"}
		if err := bs.writeSpecial(searchTemplate, "search.html", data); err != nil {
			return newFatalStageError(StageWritePages, err)
		}
	}
	return nil
}

// renderTemplate renders one page with its template. An unknown template
// named in the page meta falls back to main.html with a warning.
func (bs *BuildState) renderTemplate(p *plugins.Page) ([]byte, error) {
	name := mainTemplate
	if t := p.Meta.Template(); t != "" {
		if bs.Theme.Has(t) {
			name = t
		} else {
			bs.warn(IssueGenericStageError, StageWritePages, p.File.SrcPath,
				fmt.Sprintf("%s: template %q not found in theme, using %s", p.File.SrcPath, t, mainTemplate))
		}
	}
	data := theme.PageData{
		URL:          p.File.URL,
		Title:        p.Title,
		Content:      p.Content,
		Meta:         p.Meta,
		SrcPath:      p.File.SrcPath,
		RevisionDate: p.RevisionText,
		Nav:          p.Page,
	}
	if p.Rendered != nil {
		data.TOC = p.Rendered.TOC
	}
	return bs.Theme.Render(name, theme.NewContext(bs.Config, bs.Nav, data))
}

func (bs *BuildState) writeSpecial(tmpl, dest string, data theme.PageData) error {
	out, err := bs.Theme.Render(tmpl, theme.NewContext(bs.Config, bs.Nav, data))
	if err != nil {
		return err
	}
	if err := writeFile(joinSlash(bs.Generator.stageDir, dest), out); err != nil {
		return err
	}
	bs.Written = append(bs.Written, dest)
	return nil
}

// emit renders generated content through the page template. Plugins use it
// for pages that have no source file.
func (bs *BuildState) emit(dest, title, content string) error {
	u := dest
	if strings.HasSuffix(dest, "index.html") {
		u = strings.TrimSuffix(dest, "index.html")
	}
	data := theme.PageData{URL: u, Title: title, Content: content}
	if err := bs.writeSpecial(mainTemplate, dest, data); err != nil {
		return err
	}
	bs.Logger.Debug("Emitted generated page", logfields.Path(dest))
	return nil
}

// BasePath returns the path component of site_url as an absolute
// directory, "/" when unset.
func BasePath(siteURL string) string {
	if siteURL == "" {
		return "/"
	}
	u, err := url.Parse(siteURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	p := path.Clean("/" + u.Path)
	if p == "/" {
		return p
	}
	return p + "/"
}
