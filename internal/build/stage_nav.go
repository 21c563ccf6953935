package build

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/nav"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
)

// stageResolveNav builds the navigation tree, reads every page source and
// decides which pages a dirty build can reuse.
func stageResolveNav(ctx context.Context, bs *BuildState) error {
	cfg := bs.Config
	var n *nav.Nav
	if len(cfg.Nav) > 0 {
		var issues []nav.Issue
		n, issues = nav.Build(cfg.Nav, bs.Files)
		for _, is := range issues {
			code := IssueNavMissingFile
			if is.Rule == nav.RuleEmptySection {
				code = IssueNavEmptySection
			}
			bs.warn(code, StageResolveNav, is.Path, is.Message)
		}
		for _, src := range nav.Unlisted(n, bs.Files) {
			bs.info(IssueNavUnlisted, StageResolveNav, src,
				fmt.Sprintf("page %s exists in the docs directory but is not included in the nav", src))
		}
	} else {
		n = nav.Auto(bs.Files)
	}
	bs.Nav = n
	bs.Site.Nav = n

	reusable := bs.Previous != nil && sameDocuments(bs.Previous, bs.Files)
	for _, np := range n.AllPages() {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageResolveNav, ctx.Err())
		default:
		}
		raw, err := np.File.Read()
		if err != nil {
			return newFatalStageError(StageResolveNav, err)
		}
		page := &plugins.Page{Page: np}
		switch np.File.Kind {
		case docs.KindNotebook:
			bs.sources[np.File.SrcPath] = raw
		default:
			meta, body, err := frontmatter.Parse(raw)
			if err != nil {
				bs.warn(IssueInvalidFrontMatter, StageResolveNav, np.File.SrcPath, fmt.Sprintf("%s: %v", np.File.SrcPath, err))
				body = raw
			}
			np.Meta = meta
			page.Markdown = string(body)
		}

		fp := docs.Fingerprint(raw)
		entry := docs.ManifestEntry{Fingerprint: fp, DestPath: np.File.DestPath}
		if reusable && bs.reusable(np.File, fp) {
			prev, _ := bs.Previous.Entry(np.File.SrcPath)
			np.ResolveTitle(prev.Title)
			page.Reused = true
			entry.Title = np.Title
		}
		bs.Manifest.Set(np.File.SrcPath, entry)
		bs.Pages = append(bs.Pages, page)
	}
	bs.Site.Pages = bs.Pages
	bs.Report.Pages = len(bs.Pages)
	if err := bs.Plugins.OnPages(bs.Pages, bs.Site); err != nil {
		return newFatalStageError(StageResolveNav, err)
	}
	bs.drainPluginWarnings(StageResolveNav)
	return nil
}

// sameDocuments reports whether the previous build rendered exactly the
// current documents. Any addition or removal changes the navigation of every
// page, so nothing can be reused. Title changes are caught after rendering.
func sameDocuments(prev *docs.Manifest, files *docs.Files) bool {
	documents := files.Documents()
	if len(prev.Pages) != len(documents) {
		return false
	}
	for _, f := range documents {
		if _, ok := prev.Entry(f.SrcPath); !ok {
			return false
		}
	}
	return true
}

func (bs *BuildState) reusable(f *docs.File, fingerprint string) bool {
	if !bs.Previous.Unchanged(bs.Report.ConfigHash, f.SrcPath, fingerprint) {
		return false
	}
	prev, _ := bs.Previous.Entry(f.SrcPath)
	if prev.DestPath != f.DestPath {
		return false
	}
	return fileExists(joinSlash(bs.Generator.outputDir, f.DestPath))
}
