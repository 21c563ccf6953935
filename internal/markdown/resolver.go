package markdown

import (
	"fmt"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/nav"
)

// FileResolver resolves links relative to the source page against the
// discovered files. Links to Markdown or notebook sources that do not exist
// are reported; other unknown targets are left alone.
func FileResolver(files *docs.Files, page *docs.File) LinkResolver {
	return func(dest string) (string, bool, error) {
		target, frag, _ := strings.Cut(dest, "#")
		target, query, _ := strings.Cut(target, "?")
		if target == "" {
			return dest, false, nil
		}
		src := path.Clean(path.Join(path.Dir(page.SrcPath), target))
		f, ok := files.Get(src)
		if !ok {
			if isDocumentLink(target) {
				return "", false, fmt.Errorf("%s: link target %q not found in docs", page.SrcPath, dest)
			}
			return "", false, nil
		}
		url := nav.Relative(page.URL, f.URL)
		if query != "" {
			url += "?" + query
		}
		if frag != "" {
			url += "#" + frag
		}
		return url, true, nil
	}
}

func isDocumentLink(target string) bool {
	switch strings.ToLower(path.Ext(target)) {
	case ".md", ".markdown", ".ipynb":
		return true
	}
	return false
}
