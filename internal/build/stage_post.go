package build

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/linkcheck"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// stagePostBuild runs the post-build plugin hooks and saves the manifest for
// the next dirty build.
func stagePostBuild(_ context.Context, bs *BuildState) error {
	if err := bs.Plugins.OnPostBuild(bs.Site); err != nil {
		return newFatalStageError(StagePostBuild, err)
	}
	bs.drainPluginWarnings(StagePostBuild)
	if err := bs.Manifest.Save(bs.Generator.stageDir); err != nil {
		return newFatalStageError(StagePostBuild, err)
	}
	return nil
}

// stageCheckLinks verifies internal links of every written page. Broken
// links are warnings.
func stageCheckLinks(ctx context.Context, bs *BuildState) error {
	checker := linkcheck.New(bs.Generator.stageDir)
	broken := 0
	for _, page := range bs.Written {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageCheckLinks, ctx.Err())
		default:
		}
		issues, err := checker.CheckPage(page)
		if err != nil {
			return newWarnStageError(StageCheckLinks, err)
		}
		for _, is := range issues {
			bs.Report.AddIssue(ReportIssue{
				Code:     IssueBrokenLink,
				Stage:    StageCheckLinks,
				Severity: SeverityWarning,
				Message:  is.String(),
				Path:     is.Page,
				Target:   is.Link,
			})
			broken++
		}
	}
	if broken > 0 {
		bs.Logger.Warn(fmt.Sprintf("Found %d broken internal links", broken), logfields.Count(broken))
	}
	return nil
}
