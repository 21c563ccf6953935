package apidoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindDirectives(t *testing.T) {
	body := "# API\n\n::: functime.feature_extraction.tsfresh\n    handler: python\n    options:\n      show_source: false\n\n      heading_level: 3\n\nText after.\n\n```\n::: not.a.directive\n```\n\n::: functime.metrics\n"

	ds, err := FindDirectives(body)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	require.Equal(t, "functime.feature_extraction.tsfresh", ds[0].Identifier)
	require.Equal(t, "python", ds[0].Handler)
	require.Equal(t, false, ds[0].Options["show_source"])
	require.Equal(t, 3, ds[0].Options["heading_level"])
	require.Equal(t, "functime.metrics", ds[1].Identifier)
	require.Empty(t, ds[1].Options)
}

func TestFindDirectives_InvalidYAML(t *testing.T) {
	_, err := FindDirectives("::: a.b\n    options: [unclosed\n")
	require.Error(t, err)
}

func TestReplaceDirectives(t *testing.T) {
	body := "Intro\n::: a.b\n    options:\n      x: 1\nOutro\n"
	out, err := ReplaceDirectives(body, func(d Directive) (string, error) {
		return "RENDERED " + d.Identifier + "\n", nil
	})
	require.NoError(t, err)
	require.Equal(t, "Intro\nRENDERED a.b\nOutro\n", out)
}
