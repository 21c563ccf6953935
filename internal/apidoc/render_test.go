package apidoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_ModuleWithRootHeading(t *testing.T) {
	mod := loadFixture(t)
	mod.File = "functime/feature_extraction/tsfresh.py"
	opts := DefaultOptions().Merge(map[string]any{"show_root_heading": true, "show_source": false})

	md, anchors := Render(mod, opts)

	require.Contains(t, md, "## `functime.feature_extraction.tsfresh` {#functime.feature_extraction.tsfresh}\n")
	require.Contains(t, md, "### `absolute_energy` {#functime.feature_extraction.tsfresh.absolute_energy}\n")
	require.Contains(t, md, "```python\nabsolute_energy(x: TIME_SERIES_T) -> float\n```")
	require.Contains(t, md, "| `x` | `pl.Expr \\| pl.Series` | Input time-series. |")
	require.Contains(t, md, "| Type | Description |")
	require.Contains(t, md, "```python\n>>> change_quantiles(x, 0.1, 0.9, True)\n0.5\n```")
	require.NotContains(t, md, "_private_helper")
	require.NotContains(t, md, "undocumented")
	require.NotContains(t, md, "<details")

	var ids []string
	for _, a := range anchors {
		ids = append(ids, a.ID)
	}
	require.Contains(t, ids, "functime.feature_extraction.tsfresh")
	require.Contains(t, ids, "functime.feature_extraction.tsfresh.FeatureCalculator.compute")
}

func TestRender_MembersListAndSource(t *testing.T) {
	mod := loadFixture(t)
	opts := DefaultOptions().Merge(map[string]any{
		"members":              []any{"undocumented"},
		"show_if_no_docstring": true,
		"heading_level":        3,
	})
	md, anchors := Render(mod, opts)

	require.Contains(t, md, "### `undocumented` {#functime.feature_extraction.tsfresh.undocumented}")
	require.NotContains(t, md, "absolute_energy")
	require.Contains(t, md, "<details class=\"quote\">")
	require.Len(t, anchors, 2)
}

func TestRender_ClassGoogleStyle(t *testing.T) {
	mod := loadFixture(t)
	cls := mod.Member("FeatureCalculator")
	opts := DefaultOptions().Merge(map[string]any{
		"docstring_style":   "google",
		"show_root_heading": true,
		"show_source":       false,
		"filters":           []any{},
	})
	md, _ := Render(cls, opts)

	require.Contains(t, md, "## `functime.feature_extraction.tsfresh.FeatureCalculator`")
	require.Contains(t, md, "| `col_values` | `str` | Column holding the values. |")
	require.Contains(t, md, "```python\nasync compute(self, X: pl.DataFrame) -> pl.DataFrame\n```")
	require.Contains(t, md, "| `pl.DataFrame` | One row per entity. |")
	require.NotContains(t, md, "`__init__`")
}

func TestOptions_MembersFalseAndValidate(t *testing.T) {
	opts := DefaultOptions().Merge(map[string]any{"members": false})
	require.False(t, opts.selected("anything"))

	bad := DefaultOptions().Merge(map[string]any{"filters": []any{"!(["}})
	require.Error(t, bad.Validate())
	require.NoError(t, DefaultOptions().Validate())
}
