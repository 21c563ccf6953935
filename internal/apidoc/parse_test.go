package apidoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Object {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", "functime", "feature_extraction", "tsfresh.py"))
	require.NoError(t, err)
	return ParseModule("functime.feature_extraction.tsfresh", src)
}

func TestParseModule_Outline(t *testing.T) {
	mod := loadFixture(t)

	require.Equal(t, KindModule, mod.Kind)
	require.Equal(t, "tsfresh", mod.Name)
	require.Equal(t, "Feature extractors ported from tsfresh.\n\nAll functions accept a Polars series or expression.", mod.Docstring)

	var names []string
	for _, m := range mod.Members {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"absolute_energy", "change_quantiles", "_private_helper", "undocumented", "FeatureCalculator"}, names)

	energy := mod.Member("absolute_energy")
	require.Equal(t, KindFunction, energy.Kind)
	require.Equal(t, "functime.feature_extraction.tsfresh.absolute_energy", energy.Path)
	require.Equal(t, "(x: TIME_SERIES_T) -> float", energy.Signature)
	require.Contains(t, energy.Docstring, "Compute the absolute energy of a time series.")
	require.Equal(t, 12, energy.LineStart)
	require.Equal(t, 25, energy.LineEnd)

	cq := mod.Member("change_quantiles")
	require.Equal(t, "(x: TIME_SERIES_T, ql: float, qh: float, is_abs: bool) -> List[float]", cq.Signature)
	require.Contains(t, cq.Source, "return x")

	require.Empty(t, mod.Member("undocumented").Docstring)
}

func TestParseModule_ClassMembers(t *testing.T) {
	mod := loadFixture(t)
	cls := mod.Member("FeatureCalculator")
	require.Equal(t, KindClass, cls.Kind)
	require.Len(t, cls.Members, 3)

	prop := cls.Member("features")
	require.Equal(t, KindMethod, prop.Kind)
	require.Equal(t, []string{"property"}, prop.Decorators)
	require.Equal(t, "Registered expressions.", prop.Docstring)
	require.Contains(t, prop.Source, "@property")

	compute := mod.Lookup("FeatureCalculator.compute")
	require.NotNil(t, compute)
	require.True(t, compute.Async)
	require.Equal(t, "(self, X: pl.DataFrame) -> pl.DataFrame", compute.Signature)
}

func TestParseModule_IgnoresDefsInsideStrings(t *testing.T) {
	mod := loadFixture(t)
	require.Nil(t, mod.Member("not_a_function"))
}

func TestParseModule_SingleLineDocstringAndOneLiners(t *testing.T) {
	mod := ParseModule("m", []byte("'''Module.'''\n\ndef f(): return 1\n\n\ndef g(a,\n      b=(1, 2)):\n    r'''Raw \\d.'''\n    return a\n"))
	require.Equal(t, "Module.", mod.Docstring)
	require.Len(t, mod.Members, 2)
	require.Equal(t, "()", mod.Member("f").Signature)
	require.Equal(t, "(a, b=(1, 2))", mod.Member("g").Signature)
	require.Equal(t, `Raw \d.`, mod.Member("g").Docstring)
}

func TestLoader_ResolvesModulesAndMembers(t *testing.T) {
	l := NewLoader("testdata")

	pkg, err := l.Load("functime")
	require.NoError(t, err)
	require.Equal(t, "Time-series machine learning at scale.", pkg.Docstring)
	require.Equal(t, "functime/__init__.py", pkg.File)

	fn, err := l.Load("functime.feature_extraction.tsfresh.absolute_energy")
	require.NoError(t, err)
	require.Equal(t, KindFunction, fn.Kind)
	require.Equal(t, "functime/feature_extraction/tsfresh.py", fn.File)

	method, err := l.Load("functime.feature_extraction.tsfresh.FeatureCalculator.compute")
	require.NoError(t, err)
	require.Equal(t, KindMethod, method.Kind)

	_, err = l.Load("functime.feature_extraction.tsfresh.missing")
	require.Error(t, err)
	_, err = l.Load("nope.module")
	require.Error(t, err)
}
