package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoMeta_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	meta, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, meta)
	require.Equal(t, input, body)
}

func TestSplit_YAMLMeta_SplitsMetaAndBody(t *testing.T) {
	input := []byte("---\ntitle: Intro\n---\n# Title\n")

	meta, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Intro\n"), meta)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_DotsCloser(t *testing.T) {
	meta, body, had, err := Split([]byte("---\ntitle: Intro\n...\nBody\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Intro\n"), meta)
	require.Equal(t, []byte("Body\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF(t *testing.T) {
	meta, body, had, err := Split([]byte("---\r\nkey: value\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), meta)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyMetaBlock(t *testing.T) {
	meta, body, had, err := Split([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, meta)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestParseYAML_InvalidYAML_ReturnsError(t *testing.T) {
	_, err := ParseYAML([]byte(": not yaml\n"))
	require.Error(t, err)
}

func TestParse_MetaHelpers(t *testing.T) {
	input := []byte("---\ntitle: Forecasting\ntags: [models, guide]\nhide:\n  - toc\nsearch:\n  exclude: true\n---\nBody\n")

	meta, body, err := Parse(input)
	require.NoError(t, err)
	require.Equal(t, []byte("Body\n"), body)
	require.Equal(t, "Forecasting", meta.Title())
	require.Equal(t, []string{"models", "guide"}, meta.Tags())
	require.True(t, meta.Hidden("toc"))
	require.False(t, meta.Hidden("navigation"))
	require.True(t, meta.SearchExcluded())
	require.Empty(t, meta.Template())
}

func TestParse_NoMetaGivesEmptyMap(t *testing.T) {
	meta, body, err := Parse([]byte("plain"))
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.Equal(t, []byte("plain"), body)
	require.Nil(t, meta.Tags())
}

func TestJoin_RoundTrip(t *testing.T) {
	input := []byte("---\ntitle: Intro\n---\n# Title\n")
	meta, body, _, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, input, Join(meta, body))
}

func TestJoin_AddsMissingNewline(t *testing.T) {
	require.Equal(t, []byte("---\ntitle: x\n---\nbody"), Join([]byte("title: x"), []byte("body")))
	require.Equal(t, []byte("body"), Join(nil, []byte("body")))
}
