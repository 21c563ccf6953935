package build

import (
	"time"

	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// BuildObserver receives callbacks around stage execution and build lifecycle.
type BuildObserver interface {
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult)
	OnBuildComplete(report *BuildReport)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(StageName)                                {}
func (NoopObserver) OnStageComplete(StageName, time.Duration, StageResult) {}
func (NoopObserver) OnBuildComplete(*BuildReport)                          {}

// recorderObserver adapts metrics.Recorder into a BuildObserver.
type recorderObserver struct{ rec metrics.Recorder }

func (recorderObserver) OnStageStart(StageName)                                {}
func (recorderObserver) OnStageComplete(StageName, time.Duration, StageResult) {}
func (r recorderObserver) OnBuildComplete(report *BuildReport) {
	r.rec.ObserveBuildDuration(report.Duration())
	r.rec.IncBuildOutcome(string(report.Outcome))
	r.rec.IncPagesRendered("reused", report.ReusedPages)
}

func (g *Generator) notifyStageStart(stage StageName) {
	for _, o := range g.observers {
		o.OnStageStart(stage)
	}
}

func (g *Generator) notifyStageComplete(stage StageName, d time.Duration, res StageResult) {
	for _, o := range g.observers {
		o.OnStageComplete(stage, d, res)
	}
}

func (g *Generator) notifyBuildComplete(report *BuildReport) {
	for _, o := range g.observers {
		o.OnBuildComplete(report)
	}
}
