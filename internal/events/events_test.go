package events

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

type memoryPublisher struct {
	builds []BuildCompleted
	links  []LinkBroken
	fail   error
}

func (m *memoryPublisher) PublishBuildCompleted(_ context.Context, ev BuildCompleted) error {
	m.builds = append(m.builds, ev)
	return m.fail
}

func (m *memoryPublisher) PublishLinkBroken(_ context.Context, ev LinkBroken) error {
	m.links = append(m.links, ev)
	return m.fail
}

func (m *memoryPublisher) Close() error { return nil }

func testReport() *build.BuildReport {
	r := &build.BuildReport{
		ID:       "b-1",
		SiteName: "Demo",
		Outcome:  build.OutcomeWarning,
		Pages:    4,
		Start:    time.Unix(100, 0),
		End:      time.Unix(102, 0),
	}
	r.AddIssue(build.ReportIssue{Code: build.IssueBrokenLink, Severity: build.SeverityWarning, Path: "index.html", Target: "missing/", Message: "broken"})
	r.AddIssue(build.ReportIssue{Code: build.IssueBrokenLink, Severity: build.SeverityWarning, Path: "a/index.html", Target: "#x", Message: "broken"})
	r.AddIssue(build.ReportIssue{Code: build.IssueNavUnlisted, Severity: build.SeverityInfo, Message: "unlisted"})
	return r
}

func TestObserver_PublishesBuildAndBrokenLinks(t *testing.T) {
	pub := &memoryPublisher{}
	NewObserver(pub).OnBuildComplete(testReport())

	require.Len(t, pub.builds, 1)
	ev := pub.builds[0]
	require.Equal(t, "b-1", ev.BuildID)
	require.Equal(t, "warning", ev.Outcome)
	require.Equal(t, 2, ev.BrokenLinks)
	require.Equal(t, 2, ev.Warnings)
	require.EqualValues(t, 2000, ev.DurationMS)

	require.Len(t, pub.links, 2)
	require.Equal(t, "index.html", pub.links[0].Page)
	require.Equal(t, "missing/", pub.links[0].Link)
}

func TestObserver_StopsLinkEventsOnFailure(t *testing.T) {
	pub := &memoryPublisher{fail: stderrors.New("down")}
	NewObserver(pub).OnBuildComplete(testReport())
	require.Len(t, pub.builds, 1)
	require.Len(t, pub.links, 1)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.PublishBuildCompleted(context.Background(), BuildCompleted{}))
	require.NoError(t, p.PublishLinkBroken(context.Background(), LinkBroken{}))
	require.NoError(t, p.Close())
}

func TestNewNATSPublisher_UnreachableServer(t *testing.T) {
	_, err := NewNATSPublisher(context.Background(), "nats://127.0.0.1:1")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}
