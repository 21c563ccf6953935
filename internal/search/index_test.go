package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIndex_Defaults(t *testing.T) {
	ix := NewIndex(nil, "")
	require.Equal(t, []string{"en"}, ix.Config.Lang)
	require.Equal(t, DefaultSeparator, ix.Config.Separator)
	require.Equal(t, 3, ix.Config.MinSearchLength)

	ix = NewIndex(map[string]any{"lang": []any{"en", "de"}, "separator": `[\s]+`, "min_search_length": 2}, "fr")
	require.Equal(t, []string{"en", "de"}, ix.Config.Lang)
	require.Equal(t, `[\s]+`, ix.Config.Separator)
	require.Equal(t, 2, ix.Config.MinSearchLength)

	require.Equal(t, []string{"fr"}, NewIndex(map[string]any{}, "fr").Config.Lang)
}

func TestAddPage_SplitsSections(t *testing.T) {
	ix := NewIndex(nil, "en")
	content := `<p>Intro   text.</p>
<h2 id="install">Install<a class="headerlink" href="#install">¶</a></h2>
<p>Run <code>pip install functime</code>.</p>
<script>ignored()</script>
<h3>No id</h3>
<p>Still install.</p>
<h2 id="usage">Usage</h2><p>Fit a model.</p>`

	ix.AddPage("guide/", "Guide", content)
	require.Len(t, ix.Docs, 3)
	require.Equal(t, Doc{Location: "guide/", Title: "Guide", Text: "Intro text. Run pip install functime . No id Still install. Fit a model."}, ix.Docs[0])
	require.Equal(t, Doc{Location: "guide/#install", Title: "Install", Text: "Run pip install functime . No id Still install."}, ix.Docs[1])
	require.Equal(t, "guide/#usage", ix.Docs[2].Location)
	require.Equal(t, "Fit a model.", ix.Docs[2].Text)

	data, err := ix.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Contains(t, decoded, "config")
	require.Contains(t, decoded, "docs")
	require.NotContains(t, decoded["config"], "MinSearchLength")
}

func TestText(t *testing.T) {
	require.Equal(t, "Title Body text", Text("<h1 id=\"t\">Title</h1>\n<p>Body\n text</p>"))
}
