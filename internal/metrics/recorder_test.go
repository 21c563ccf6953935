package metrics

import (
	"testing"
	"time"
)

type testRecorder struct {
	stageResults  map[string]map[ResultLabel]int
	buildOutcomes map[string]int
	pages         map[string]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{stageResults: map[string]map[ResultLabel]int{}, buildOutcomes: map[string]int{}, pages: map[string]int{}}
}

func (t *testRecorder) ObserveStageDuration(string, time.Duration) {}
func (t *testRecorder) ObserveBuildDuration(time.Duration)         {}
func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}
func (t *testRecorder) IncBuildOutcome(outcome string)      { t.buildOutcomes[outcome]++ }
func (t *testRecorder) IncPagesRendered(kind string, n int) { t.pages[kind] += n }
func (t *testRecorder) IncPluginInvocation(string, string)  {}

func TestRecorderInterfaceSatisfied(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)

	r := newTestRecorder()
	var rec Recorder = r
	rec.IncStageResult("sitemap", ResultWarning)
	rec.IncPagesRendered("notebook", 2)
	if r.stageResults["sitemap"][ResultWarning] != 1 || r.pages["notebook"] != 2 {
		t.Fatalf("unexpected recorder state: %+v", r)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var p *PrometheusRecorder
	p.IncBuildOutcome("success")
	p.ObserveStageDuration("x", time.Second)
}
