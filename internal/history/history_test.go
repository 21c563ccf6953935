package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func report(id string, start time.Time, outcome build.BuildOutcome) *build.BuildReport {
	return &build.BuildReport{
		ID:         id,
		Start:      start,
		End:        start.Add(1500 * time.Millisecond),
		Outcome:    outcome,
		Pages:      3,
		ConfigHash: "hash",
	}
}

func TestSQLiteStore_RecordListGet(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := report("a", base, build.OutcomeSuccess)
	second := report("b", base.Add(time.Hour), build.OutcomeWarning)
	second.AddIssue(build.ReportIssue{Code: build.IssueBrokenLink, Severity: build.SeverityWarning, Message: "broken"})
	require.NoError(t, s.Record(ctx, first))
	require.NoError(t, s.Record(ctx, second))

	builds, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	require.Equal(t, "b", builds[0].ID)
	require.Equal(t, "warning", builds[0].Outcome)
	require.Equal(t, 1, builds[0].Warnings)
	require.Equal(t, 1500*time.Millisecond, builds[0].Duration())

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 3, got.Pages)
	require.True(t, got.StartedAt.Equal(base))
	require.Contains(t, string(got.Report), `"id": "a"`)
}

func TestSQLiteStore_GetUnknown(t *testing.T) {
	_, err := newStore(t).Get(t.Context(), "missing")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestObserver_RecordsReport(t *testing.T) {
	s := newStore(t)
	NewObserver(s).OnBuildComplete(report("c", time.Now(), build.OutcomeFailed))
	got, err := s.Get(t.Context(), "c")
	require.NoError(t, err)
	require.Equal(t, "failed", got.Outcome)
}
