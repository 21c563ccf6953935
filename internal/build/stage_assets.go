package build

import (
	"context"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// stageCopyAssets copies theme assets, then docs assets. A docs file at the
// same path replaces the theme's.
func stageCopyAssets(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	docsAssets := bs.Files.Assets()
	shadowed := make(map[string]bool, len(docsAssets))
	for _, f := range docsAssets {
		shadowed[f.DestPath] = true
	}

	for _, a := range bs.Theme.Assets() {
		if shadowed[a.Path] {
			continue
		}
		if err := copyFS(a.FS, a.Path, joinSlash(g.stageDir, a.Path)); err != nil {
			return newFatalStageError(StageCopyAssets, err)
		}
	}
	for _, f := range docsAssets {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageCopyAssets, ctx.Err())
		default:
		}
		if err := copyFile(f.AbsPath, joinSlash(g.stageDir, f.DestPath)); err != nil {
			return newFatalStageError(StageCopyAssets, err)
		}
	}
	bs.Report.Assets = len(docsAssets)
	bs.Logger.Debug("Copied assets", logfields.Count(len(docsAssets)))
	return nil
}
