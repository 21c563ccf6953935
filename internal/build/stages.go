package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/docs"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/nav"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
	"git.home.luguber.info/inful/sitegen/internal/theme"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// classifyStageError wraps a bare stage error. Cancellation maps to canceled,
// classified warnings map to warning, everything else is fatal.
func classifyStageError(stage StageName, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newCanceledStageError(stage, err)
	}
	if ce, ok := ferrors.AsClassified(err); ok && ce.Severity() == ferrors.SeverityWarning {
		return newWarnStageError(stage, err)
	}
	return newFatalStageError(stage, err)
}

// BuildState carries mutable state across stages.
type BuildState struct {
	Generator *Generator
	Config    *config.Config
	Report    *BuildReport
	Logger    *slog.Logger

	Plugins  *plugins.Set
	Theme    *theme.Engine
	Markdown *markdown.Renderer
	Files    *docs.Files
	Nav      *nav.Nav
	Site     *plugins.Site
	Pages    []*plugins.Page

	// Previous is the manifest of the site being replaced; nil for full builds.
	Previous *docs.Manifest
	Manifest *docs.Manifest
	// Written lists site-relative HTML outputs, in write order, for link checking.
	Written []string
	// sources holds raw notebook documents keyed by source path.
	sources map[string][]byte
}

func newBuildState(g *Generator, report *BuildReport) *BuildState {
	return &BuildState{
		Generator: g,
		Config:    g.config,
		Report:    report,
		Logger:    g.logger.With(logfields.BuildID(report.ID)),
		sources:   make(map[string][]byte),
	}
}

// warn records a structured warning issue.
func (bs *BuildState) warn(code ReportIssueCode, stage StageName, path, msg string) {
	bs.Report.AddIssue(ReportIssue{Code: code, Stage: stage, Severity: SeverityWarning, Path: path, Message: msg})
	bs.Logger.Warn(msg, logfields.Stage(string(stage)), logfields.Path(path))
}

// info records an informational issue that never affects the outcome.
func (bs *BuildState) info(code ReportIssueCode, stage StageName, path, msg string) {
	bs.Report.AddIssue(ReportIssue{Code: code, Stage: stage, Severity: SeverityInfo, Path: path, Message: msg})
	bs.Logger.Info(msg, logfields.Stage(string(stage)), logfields.Path(path))
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage. A stage that records warnings without
// returning an error is classified as a warning.
func runStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	g := bs.Generator
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.Name, ctx.Err())
			bs.Report.recordStageError(se, g.recorder)
			g.notifyStageComplete(st.Name, 0, StageResultCanceled)
			return se
		default:
		}

		g.notifyStageStart(st.Name)
		warningsBefore := len(bs.Report.Warnings)
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)
		bs.Report.StageDurations[string(st.Name)] = dur
		g.recorder.ObserveStageDuration(string(st.Name), dur)

		if err != nil {
			se := classifyStageError(st.Name, err)
			bs.Report.recordStageError(se, g.recorder)
			result := StageResult(se.Kind)
			g.notifyStageComplete(st.Name, dur, result)
			bs.Logger.Debug("Stage finished", logfields.Stage(string(st.Name)),
				logfields.DurationMS(float64(dur.Microseconds())/1000), slog.String("result", string(result)))
			if se.Kind == StageErrorWarning {
				continue
			}
			return se
		}

		result := StageResultSuccess
		if len(bs.Report.Warnings) > warningsBefore {
			result = StageResultWarning
		}
		bs.Report.recordStageResult(st.Name, result, g.recorder)
		g.notifyStageComplete(st.Name, dur, result)
		bs.Logger.Debug("Stage finished", logfields.Stage(string(st.Name)),
			logfields.DurationMS(float64(dur.Microseconds())/1000), slog.String("result", string(result)))
	}
	return nil
}
