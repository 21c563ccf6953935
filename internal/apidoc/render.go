package apidoc

import (
	"fmt"
	"strings"
)

// Anchor is a heading emitted for an object, registered for cross-references.
type Anchor struct {
	ID    string
	Title string
}

// Render produces Markdown for obj and its selected members. Headings carry
// `{#dotted.path}` ids so that the page table of contents and
// cross-references can point at them.
func Render(obj *Object, opts Options) (string, []Anchor) {
	r := &mdRenderer{opts: opts}
	level := opts.HeadingLevel
	if opts.ShowRootHeading {
		r.object(obj, level, true)
		level++
	} else {
		r.anchors = append(r.anchors, Anchor{ID: obj.Path, Title: obj.Name})
		r.body(obj)
	}
	if obj.Kind == KindModule || obj.Kind == KindClass {
		r.members(obj, level)
	}
	return strings.TrimRight(r.b.String(), "\n") + "\n", r.anchors
}

type mdRenderer struct {
	b       strings.Builder
	opts    Options
	anchors []Anchor
}

func (r *mdRenderer) members(parent *Object, level int) {
	for _, m := range parent.Members {
		if !r.opts.selected(m.Name) {
			continue
		}
		if m.Docstring == "" && !r.opts.ShowIfNoDocstring && !hasDocumentedMembers(m) {
			continue
		}
		r.object(m, level, false)
		if m.Kind == KindClass {
			r.members(m, min(level+1, 6))
		}
	}
}

func hasDocumentedMembers(o *Object) bool {
	for _, m := range o.Members {
		if m.Docstring != "" || hasDocumentedMembers(m) {
			return true
		}
	}
	return false
}

func (r *mdRenderer) object(o *Object, level int, root bool) {
	title := o.Name
	if root && r.opts.ShowRootFullPath {
		title = o.Path
	}
	r.anchors = append(r.anchors, Anchor{ID: o.Path, Title: title})
	fmt.Fprintf(&r.b, "%s `%s` {#%s}\n\n", strings.Repeat("#", level), title, o.Path)
	r.body(o)
}

func (r *mdRenderer) body(o *Object) {
	if r.opts.ShowSignature {
		switch o.Kind {
		case KindFunction, KindMethod:
			prefix := ""
			if o.Async {
				prefix = "async "
			}
			fmt.Fprintf(&r.b, "```python\n%s%s%s\n```\n\n", prefix, o.Name, o.Signature)
		case KindClass:
			if r.opts.ShowBases && o.Bases != "" {
				fmt.Fprintf(&r.b, "Bases: `%s`\n\n", o.Bases)
			}
		}
	}
	if o.Docstring != "" {
		r.docstring(ParseDocstring(o.Docstring, r.opts.Style))
	}
	if r.opts.ShowSource && o.Kind != KindModule && o.Source != "" {
		fmt.Fprintf(&r.b, "<details class=\"quote\">\n<summary>Source code in <code>%s</code></summary>\n\n", o.File)
		fmt.Fprintf(&r.b, "```python\n%s```\n\n</details>\n\n", o.Source)
	}
}

func (r *mdRenderer) docstring(d *Docstring) {
	if d.Summary != "" {
		r.b.WriteString(d.Summary + "\n\n")
	}
	if d.Description != "" {
		r.b.WriteString(d.Description + "\n\n")
	}
	for _, s := range d.Sections {
		switch {
		case len(s.Items) > 0:
			r.table(s)
		case s.Kind == SectionExamples:
			fmt.Fprintf(&r.b, "**%s:**\n\n%s\n\n", s.Title, doctestBlocks(s.Text))
		case s.Kind == SectionSeeAlso:
			fmt.Fprintf(&r.b, "**%s:**\n\n", s.Title)
			for _, line := range strings.Split(s.Text, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					name, desc, _ := strings.Cut(line, ":")
					fmt.Fprintf(&r.b, "- [`%s`][%s]", strings.TrimSpace(name), strings.TrimSpace(name))
					if desc = strings.TrimSpace(desc); desc != "" {
						r.b.WriteString(": " + desc)
					}
					r.b.WriteString("\n")
				}
			}
			r.b.WriteString("\n")
		case strings.TrimSpace(s.Text) != "":
			fmt.Fprintf(&r.b, "**%s:**\n\n%s\n\n", s.Title, s.Text)
		}
	}
}

func (r *mdRenderer) table(s Section) {
	fmt.Fprintf(&r.b, "**%s:**\n\n", s.Title)
	hasName := false
	for _, it := range s.Items {
		if it.Name != "" {
			hasName = true
		}
	}
	if hasName {
		r.b.WriteString("| Name | Type | Description |\n| --- | --- | --- |\n")
	} else {
		r.b.WriteString("| Type | Description |\n| --- | --- |\n")
	}
	for _, it := range s.Items {
		typ := ""
		if it.Type != "" {
			typ = "`" + cell(it.Type) + "`"
		}
		if hasName {
			fmt.Fprintf(&r.b, "| `%s` | %s | %s |\n", cell(it.Name), typ, cell(it.Description))
		} else {
			fmt.Fprintf(&r.b, "| %s | %s |\n", typ, cell(it.Description))
		}
	}
	r.b.WriteString("\n")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n\n", "<br>")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// doctestBlocks wraps runs of `>>>` lines and their output in python fences.
func doctestBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var (
		out    []string
		inTest bool
	)
	for _, l := range lines {
		isPrompt := strings.HasPrefix(strings.TrimSpace(l), ">>>")
		switch {
		case isPrompt && !inTest:
			out = append(out, "```python")
			inTest = true
		case inTest && strings.TrimSpace(l) == "":
			out = append(out, "```")
			inTest = false
		}
		out = append(out, l)
	}
	if inTest {
		out = append(out, "```")
	}
	return strings.Join(out, "\n")
}
