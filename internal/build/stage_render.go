package build

import (
	"context"
	"errors"
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
)

// stageRenderPages runs the page Markdown hooks and renders every page that
// is not reused to HTML. When a re-rendered page changed its title, the
// sidebar and prev/next links of every other page change too, so the
// reused pages are rendered as well.
func stageRenderPages(ctx context.Context, bs *BuildState) error {
	counts := map[docs.Kind]int{}
	render := func(p *plugins.Page) error {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageRenderPages, ctx.Err())
		default:
		}
		r, err := bs.renderPage(p)
		if err != nil {
			return newFatalStageError(StageRenderPages, err)
		}
		for _, w := range r.Warnings {
			bs.warn(IssueUnresolvedLink, StageRenderPages, p.File.SrcPath, w)
		}
		p.Rendered = r
		p.Content = r.HTML
		p.ResolveTitle(r.Title)
		counts[p.File.Kind]++
		bs.Report.RenderedPages++
		bs.Logger.Debug("Rendered page", logfields.Page(p.File.SrcPath))
		return nil
	}

	var reused []*plugins.Page
	for _, p := range bs.Pages {
		if p.Reused {
			reused = append(reused, p)
			continue
		}
		if err := render(p); err != nil {
			return err
		}
	}
	if len(reused) > 0 && bs.titlesChanged() {
		bs.Logger.Info("Page titles changed, rendering reused pages", logfields.Count(len(reused)))
		for _, p := range reused {
			p.Reused = false
			if err := render(p); err != nil {
				return err
			}
		}
		reused = nil
	}
	bs.Report.ReusedPages = len(reused)

	bs.drainPluginWarnings(StageRenderPages)
	for kind, n := range counts {
		bs.Generator.recorder.IncPagesRendered(string(kind), n)
	}
	return nil
}

// titlesChanged reports whether a freshly rendered page resolved to a
// different title than the previous build recorded for it.
func (bs *BuildState) titlesChanged() bool {
	if bs.Previous == nil {
		return false
	}
	for _, p := range bs.Pages {
		if p.Reused {
			continue
		}
		prev, ok := bs.Previous.Entry(p.File.SrcPath)
		if !ok || prev.Title != p.Title {
			return true
		}
	}
	return false
}

func (bs *BuildState) renderPage(p *plugins.Page) (*markdown.Rendered, error) {
	rctx := markdown.Context{Resolve: markdown.FileResolver(bs.Files, p.File)}
	if p.File.Kind == docs.KindNotebook {
		nr, ok := bs.Plugins.NotebookRenderer()
		if !ok {
			return nil, fmt.Errorf("%w: no notebook renderer for %s", ErrRender, p.File.SrcPath)
		}
		return nr.RenderNotebook(bs.sources[p.File.SrcPath], p, bs.Site)
	}

	md, err := bs.Plugins.OnPageMarkdown(p.Markdown, p, bs.Site)
	if err != nil {
		return nil, err
	}
	p.Markdown = md
	r, err := bs.Markdown.Render([]byte(md), rctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRender, p.File.SrcPath, err)
	}
	return r, nil
}

// stagePostRender runs the page content hooks once every page is rendered,
// so cross-page anchors are known to all of them.
func stagePostRender(ctx context.Context, bs *BuildState) error {
	for _, p := range bs.Pages {
		if p.Reused {
			continue
		}
		select {
		case <-ctx.Done():
			return newCanceledStageError(StagePostRender, ctx.Err())
		default:
		}
		out, err := bs.Plugins.OnPageContent(p.Content, p, bs.Site)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return newCanceledStageError(StagePostRender, err)
			}
			return newFatalStageError(StagePostRender, err)
		}
		p.Content = out
	}
	bs.drainPluginWarnings(StagePostRender)
	return nil
}
