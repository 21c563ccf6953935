package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
)

// Options tune a Generator. The zero value builds into the configured
// site_dir with the built-in plugins.
type Options struct {
	// SiteDir overrides the configured output directory.
	SiteDir string
	// Strict fails the build on any warning. The configuration's strict
	// setting also enables it.
	Strict bool
	// Dirty re-renders only pages whose source or configuration changed.
	Dirty bool
	// Clean ignores any previous build state.
	Clean bool

	Registry  *plugins.Registry
	Recorder  metrics.Recorder
	Observers []BuildObserver
	Logger    *slog.Logger
}

// Generator builds a static site from a configuration.
type Generator struct {
	config    *config.Config
	opts      Options
	outputDir string // final output dir
	stageDir  string // ephemeral staging dir for the current build
	registry  *plugins.Registry
	recorder  metrics.Recorder
	observers []BuildObserver
	logger    *slog.Logger
}

// NewGenerator creates a site generator for cfg.
func NewGenerator(cfg *config.Config, opts Options) *Generator {
	out := opts.SiteDir
	if out == "" {
		out = cfg.SiteDir
	}
	g := &Generator{
		config:    cfg,
		opts:      opts,
		outputDir: filepath.Clean(out),
		registry:  opts.Registry,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
	}
	if g.registry == nil {
		g.registry = plugins.Default()
	}
	if g.recorder == nil {
		g.recorder = metrics.NoopRecorder{}
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.observers = append([]BuildObserver{recorderObserver{rec: g.recorder}}, opts.Observers...)
	return g
}

// Config exposes the configuration the generator builds.
func (g *Generator) Config() *config.Config { return g.config }

// OutputDir is the directory the site is promoted into.
func (g *Generator) OutputDir() string { return g.outputDir }

// Strict reports whether warnings fail the build.
func (g *Generator) Strict() bool { return g.opts.Strict || g.config.Strict }

// AddObserver registers an additional build observer.
func (g *Generator) AddObserver(o BuildObserver) { g.observers = append(g.observers, o) }

// pipeline returns the ordered build stages.
func (g *Generator) pipeline() *Pipeline {
	return NewPipeline().
		Add(StagePrepareOutput, stagePrepareOutput).
		Add(StageDiscoverDocs, stageDiscoverDocs).
		Add(StageResolveNav, stageResolveNav).
		Add(StageRenderPages, stageRenderPages).
		Add(StagePostRender, stagePostRender).
		Add(StageWritePages, stageWritePages).
		Add(StageCopyAssets, stageCopyAssets).
		Add(StageSitemap, stageSitemap).
		Add(StagePostBuild, stagePostBuild).
		Add(StageCheckLinks, stageCheckLinks)
}

// Build runs every stage and promotes the result to the output directory.
// The report is returned even when the build fails; the previous site is
// left in place in that case.
func (g *Generator) Build(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport(uuid.NewString())
	report.SiteName = g.config.SiteName
	report.SiteDir = g.outputDir
	report.Strict = g.Strict()
	report.Dirty = g.opts.Dirty && !g.opts.Clean

	log := g.logger.With(logfields.BuildID(report.ID))
	log.Info("Starting site build", logfields.Output(g.outputDir), slog.Bool("strict", report.Strict), slog.Bool("dirty", report.Dirty))

	if err := g.beginStaging(); err != nil {
		report.AddIssue(ReportIssue{Code: IssueGenericStageError, Stage: StagePrepareOutput, Severity: SeverityError, Message: err.Error()})
		return g.complete(report, ferrors.FileSystemError("cannot prepare staging directory").WithCause(err).Build())
	}

	bs := newBuildState(g, report)
	err := runStages(ctx, bs, g.pipeline().Build())
	if err == nil && report.Strict && len(report.Warnings) > 0 {
		msg := fmt.Sprintf("aborted with %d warnings in strict mode", len(report.Warnings))
		report.AddIssue(ReportIssue{Code: IssueStrictAbort, Severity: SeverityError, Message: msg})
		err = ferrors.BuildError(msg).WithCause(ErrStrict).WithContext("warnings", len(report.Warnings)).Build()
	}
	if err != nil {
		g.abortStaging()
		if !ferrors.IsClassified(err) {
			err = ferrors.BuildError("site build failed").WithCause(err).Build()
		}
		return g.complete(report, err)
	}

	report.finish()
	report.deriveOutcome()
	if err := g.finalizeStaging(); err != nil {
		g.abortStaging()
		report.AddIssue(ReportIssue{Code: IssueGenericStageError, Stage: StageCheckLinks, Severity: SeverityError, Message: err.Error()})
		return g.complete(report, ferrors.FileSystemError("cannot promote staged site").WithCause(err).Build())
	}
	if err := report.Persist(g.outputDir); err != nil {
		log.Warn("Failed to persist build report", logfields.Error(err))
	}
	g.notifyBuildComplete(report)
	log.Info("Site build completed", logfields.Output(g.outputDir),
		logfields.Count(report.Pages), slog.String("outcome", string(report.Outcome)),
		logfields.DurationMS(float64(report.Duration().Microseconds())/1000))
	return report, nil
}

// complete finalizes a failed build.
func (g *Generator) complete(report *BuildReport, err error) (*BuildReport, error) {
	report.finish()
	report.deriveOutcome()
	g.notifyBuildComplete(report)
	g.logger.Error("Site build failed", logfields.BuildID(report.ID), slog.String("outcome", string(report.Outcome)), logfields.Error(err))
	return report, err
}
