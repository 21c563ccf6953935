package plugins

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/nav"
)

// TagsName is the configuration name of the tags plugin.
const TagsName = "tags"

// TagsMarker is replaced with the tags index on the page that contains it.
const TagsMarker = "<!-- material/tags -->"

// Tags builds an index of page meta tags.
type Tags struct {
	placed bool
}

// NewTags returns the tags plugin.
func NewTags() *Tags { return &Tags{} }

func (t *Tags) Name() string { return TagsName }

func (t *Tags) Configure(opts map[string]any) error {
	if v, ok := opts["tags_file"]; ok {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("tags_file must be a string")
		}
	}
	return nil
}

// TagIndex groups pages by tag, tags sorted case-insensitively and pages in
// navigation order.
func TagIndex(pages []*Page) (tags []string, byTag map[string][]*Page) {
	byTag = map[string][]*Page{}
	for _, p := range pages {
		for _, tag := range p.Meta.Tags() {
			if _, ok := byTag[tag]; !ok {
				tags = append(tags, tag)
			}
			byTag[tag] = append(byTag[tag], p)
		}
	}
	sort.SliceStable(tags, func(i, j int) bool { return strings.ToLower(tags[i]) < strings.ToLower(tags[j]) })
	return tags, byTag
}

func (t *Tags) render(from string, pages []*Page) string {
	tags, byTag := TagIndex(pages)
	var b strings.Builder
	b.WriteString("<div class=\"md-tags-index\">\n")
	for _, tag := range tags {
		id := "tag:" + strings.ReplaceAll(strings.ToLower(tag), " ", "-")
		fmt.Fprintf(&b, "<h2 id=\"%s\">%s</h2>\n<ul>\n", html.EscapeString(id), html.EscapeString(tag))
		for _, p := range byTag[tag] {
			fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(nav.Relative(from, p.URL())), html.EscapeString(p.Title))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</div>\n")
	return b.String()
}

func (t *Tags) OnPageContent(content string, page *Page, site *Site) (string, error) {
	if !strings.Contains(content, TagsMarker) {
		return content, nil
	}
	t.placed = true
	return strings.Replace(content, TagsMarker, t.render(page.URL(), site.Pages), 1), nil
}

// OnPostBuild emits a standalone tags page unless a page hosted the index.
func (t *Tags) OnPostBuild(site *Site) error {
	if t.placed {
		return nil
	}
	tags, _ := TagIndex(site.Pages)
	if len(tags) == 0 || site.Emit == nil {
		return nil
	}
	dest, url := "tags.html", "tags.html"
	if site.Config.DirectoryURLs() {
		dest, url = "tags/index.html", "tags/"
	}
	if _, exists := site.Files.Get("tags.md"); exists {
		site.Warn(TagsName, "tags page collides with docs/tags.md; add the tags marker to it instead")
		return nil
	}
	return site.Emit(dest, "Tags", t.render(url, site.Pages))
}
