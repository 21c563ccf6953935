package build

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/docs"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// stageDiscoverDocs walks docs_dir and lets plugins adjust the file set.
func stageDiscoverDocs(_ context.Context, bs *BuildState) error {
	cfg := bs.Config
	files, err := docs.Discover(cfg.DocsDir, docs.SplitPatterns(cfg.ExcludeDocs), cfg.DirectoryURLs())
	if err != nil {
		if ferrors.IsClassified(err) {
			return newFatalStageError(StageDiscoverDocs, err)
		}
		return newFatalStageError(StageDiscoverDocs, fmt.Errorf("%w: %v", ErrDiscovery, err))
	}

	// Without a notebook renderer notebooks are published as downloads.
	if _, ok := bs.Plugins.NotebookRenderer(); !ok {
		files.NotebooksAsAssets()
	}

	bs.Files = files
	bs.Site.Files = files
	if err := bs.Plugins.OnFiles(files, bs.Site); err != nil {
		return newFatalStageError(StageDiscoverDocs, err)
	}
	bs.drainPluginWarnings(StageDiscoverDocs)
	for _, c := range files.DropConflicts() {
		bs.warn(IssueDestinationConflict, StageDiscoverDocs, c.SrcPath, c.String())
	}

	bs.Report.Files = files.Len()
	if len(files.Documents()) == 0 {
		bs.warn(IssueNoDocuments, StageDiscoverDocs, cfg.DocsDir, "no documentation pages found in docs directory")
	}
	bs.Logger.Debug("Discovered docs", logfields.Count(files.Len()), logfields.Path(cfg.DocsDir))
	return nil
}

// drainPluginWarnings moves warnings recorded by plugins into the report.
func (bs *BuildState) drainPluginWarnings(stage StageName) {
	for _, w := range bs.Site.Warnings() {
		bs.Report.AddIssue(ReportIssue{Code: IssuePluginWarning, Stage: stage, Severity: SeverityWarning, Message: w})
	}
}
