package build

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
	"git.home.luguber.info/inful/sitegen/internal/theme"
)

// stagePrepareOutput resolves plugins, theme and Markdown renderer and loads
// the previous manifest for dirty builds.
func stagePrepareOutput(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	cfg := bs.Config

	set, err := plugins.Resolve(g.registry, cfg, g.recorder)
	if err != nil {
		return newFatalStageError(StagePrepareOutput, err)
	}
	bs.Plugins = set
	if err := set.OnConfig(cfg); err != nil {
		return newFatalStageError(StagePrepareOutput, err)
	}

	eng, err := theme.Load(cfg)
	if err != nil {
		return newFatalStageError(StagePrepareOutput, err)
	}
	bs.Theme = eng
	bs.Logger.Debug("Loaded theme", logfields.Theme(eng.Name()))

	renderer, unknown := markdown.NewRenderer(cfg.MarkdownExtensions, cfg.Root)
	for _, name := range unknown {
		bs.warn(IssueUnknownExtension, StagePrepareOutput, "",
			fmt.Sprintf("markdown extension %q is not supported and was ignored", name))
	}
	bs.Markdown = renderer

	hash := cfg.Snapshot()
	bs.Report.ConfigHash = hash
	bs.Manifest = docs.NewManifest(hash)

	previousDir := ""
	if bs.Report.Dirty {
		prev, err := docs.LoadManifest(g.outputDir)
		switch {
		case err != nil:
			bs.Logger.Warn("Previous manifest unreadable, rebuilding every page", logfields.Error(err))
		case prev == nil:
			bs.Logger.Info("No previous build found, rebuilding every page", logfields.Output(g.outputDir))
		default:
			bs.Previous = prev
			previousDir = g.outputDir
		}
	}

	bs.Site = &plugins.Site{
		Context:     ctx,
		Logger:      bs.Logger,
		Config:      cfg,
		Markdown:    renderer,
		OutputDir:   g.stageDir,
		PreviousDir: previousDir,
		BuildID:     bs.Report.ID,
		Anchors:     plugins.NewAnchors(),
		Emit:        bs.emit,
	}
	return nil
}
