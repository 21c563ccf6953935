package apidoc

import (
	"regexp"
	"strings"
)

// Style is a docstring convention.
type Style string

const (
	StyleNumpy  Style = "numpy"
	StyleGoogle Style = "google"
)

// SectionKind identifies a docstring section.
type SectionKind string

const (
	SectionParameters SectionKind = "parameters"
	SectionOther      SectionKind = "other_parameters"
	SectionReturns    SectionKind = "returns"
	SectionYields     SectionKind = "yields"
	SectionRaises     SectionKind = "raises"
	SectionWarns      SectionKind = "warns"
	SectionAttributes SectionKind = "attributes"
	SectionExamples   SectionKind = "examples"
	SectionNotes      SectionKind = "notes"
	SectionSeeAlso    SectionKind = "see_also"
	SectionReferences SectionKind = "references"
	SectionText       SectionKind = "text"
)

// Item is a named entry of a structured section.
type Item struct {
	Name        string
	Type        string
	Description string
}

// Section is a parsed docstring section. Structured sections carry Items,
// free-text sections carry Text.
type Section struct {
	Kind  SectionKind
	Title string
	Items []Item
	Text  string
}

// Docstring is a parsed docstring.
type Docstring struct {
	Summary     string
	Description string
	Sections    []Section
}

// Section returns the first section of the given kind.
func (d *Docstring) Section(kind SectionKind) (Section, bool) {
	for _, s := range d.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

var sectionTitles = map[string]SectionKind{
	"parameters":        SectionParameters,
	"params":            SectionParameters,
	"args":              SectionParameters,
	"arguments":         SectionParameters,
	"keyword args":      SectionParameters,
	"keyword arguments": SectionParameters,
	"other parameters":  SectionOther,
	"returns":           SectionReturns,
	"return":            SectionReturns,
	"yields":            SectionYields,
	"yield":             SectionYields,
	"raises":            SectionRaises,
	"raise":             SectionRaises,
	"warns":             SectionWarns,
	"warnings":          SectionWarns,
	"attributes":        SectionAttributes,
	"examples":          SectionExamples,
	"example":           SectionExamples,
	"notes":             SectionNotes,
	"note":              SectionNotes,
	"see also":          SectionSeeAlso,
	"references":        SectionReferences,
}

func structured(kind SectionKind) bool {
	switch kind {
	case SectionParameters, SectionOther, SectionReturns, SectionYields, SectionRaises, SectionWarns, SectionAttributes:
		return true
	}
	return false
}

var dashes = regexp.MustCompile(`^\s*-{3,}\s*$`)

// ParseDocstring splits a cleaned docstring into summary, description and
// sections according to style.
func ParseDocstring(text string, style Style) *Docstring {
	lines := strings.Split(text, "\n")
	type header struct {
		line  int // first line of the header
		body  int // first line of the body
		kind  SectionKind
		title string
	}
	var headers []header
	for i := 0; i < len(lines); i++ {
		title := strings.TrimSpace(lines[i])
		switch style {
		case StyleGoogle:
			if strings.HasPrefix(lines[i], " ") || !strings.HasSuffix(title, ":") {
				continue
			}
			name := strings.TrimSuffix(title, ":")
			if kind, ok := sectionTitles[strings.ToLower(name)]; ok {
				headers = append(headers, header{line: i, body: i + 1, kind: kind, title: name})
			}
		default:
			if i+1 >= len(lines) || !dashes.MatchString(lines[i+1]) {
				continue
			}
			kind, ok := sectionTitles[strings.ToLower(title)]
			if !ok {
				kind = SectionText
			}
			headers = append(headers, header{line: i, body: i + 2, kind: kind, title: title})
			i++
		}
	}

	d := &Docstring{}
	introEnd := len(lines)
	if len(headers) > 0 {
		introEnd = headers[0].line
	}
	d.Summary, d.Description = splitIntro(lines[:introEnd])

	for n, h := range headers {
		end := len(lines)
		if n+1 < len(headers) {
			end = headers[n+1].line
		}
		body := lines[h.body:end]
		sec := Section{Kind: h.kind, Title: h.title}
		if structured(h.kind) {
			if style == StyleGoogle {
				sec.Items = googleItems(body, h.kind)
			} else {
				sec.Items = numpyItems(body, h.kind)
			}
		} else {
			sec.Text = dedentBlock(body)
		}
		d.Sections = append(d.Sections, sec)
	}
	return d
}

func splitIntro(lines []string) (string, string) {
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return "", ""
	}
	summary, rest, _ := strings.Cut(text, "\n\n")
	return strings.Join(strings.Fields(summary), " "), strings.TrimSpace(rest)
}

// numpyItems parses "name : type" lines followed by indented descriptions.
// Return and raise entries may give only a type.
func numpyItems(body []string, kind SectionKind) []Item {
	var (
		items []Item
		cur   *Item
		desc  []string
	)
	flush := func() {
		if cur != nil {
			cur.Description = joinDescription(desc)
			items = append(items, *cur)
		}
		cur, desc = nil, nil
	}
	base := minIndent(body)
	for _, l := range body {
		if strings.TrimSpace(l) == "" {
			if cur != nil {
				desc = append(desc, "")
			}
			continue
		}
		if indentWidth(l) <= base {
			flush()
			entry := strings.TrimSpace(l)
			name, typ, hasColon := strings.Cut(entry, " : ")
			if !hasColon {
				name, typ, hasColon = strings.Cut(entry, ":")
			}
			switch {
			case hasColon:
				cur = &Item{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)}
			case kind == SectionReturns || kind == SectionYields || kind == SectionRaises || kind == SectionWarns:
				cur = &Item{Type: entry}
			default:
				cur = &Item{Name: entry}
			}
			continue
		}
		if cur != nil {
			desc = append(desc, strings.TrimSpace(l))
		}
	}
	flush()
	return items
}

var googleEntry = regexp.MustCompile(`^([\w*.]+)\s*(?:\(([^)]*)\))?\s*:\s*(.*)$`)

// googleItems parses "name (type): description" entries. Returns and raises
// use "type: description".
func googleItems(body []string, kind SectionKind) []Item {
	var (
		items []Item
		cur   *Item
		desc  []string
	)
	flush := func() {
		if cur != nil {
			cur.Description = joinDescription(desc)
			items = append(items, *cur)
		}
		cur, desc = nil, nil
	}
	base := minIndent(body)
	for _, l := range body {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if indentWidth(l) > base && cur != nil {
			desc = append(desc, strings.TrimSpace(l))
			continue
		}
		flush()
		entry := strings.TrimSpace(l)
		switch kind {
		case SectionReturns, SectionYields, SectionRaises, SectionWarns:
			typ, d, ok := strings.Cut(entry, ":")
			if !ok {
				cur = &Item{Description: entry}
				continue
			}
			cur = &Item{Type: strings.TrimSpace(typ)}
			desc = []string{strings.TrimSpace(d)}
		default:
			m := googleEntry.FindStringSubmatch(entry)
			if m == nil {
				cur = &Item{Name: entry}
				continue
			}
			cur = &Item{Name: m[1], Type: m[2]}
			desc = []string{m[3]}
		}
	}
	flush()
	return items
}

func joinDescription(lines []string) string {
	var paras []string
	var cur []string
	for _, l := range lines {
		if l == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, " "))
				cur = nil
			}
			continue
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, " "))
	}
	return strings.TrimSpace(strings.Join(paras, "\n\n"))
}

func minIndent(lines []string) int {
	m := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if w := indentWidth(l); m < 0 || w < m {
			m = w
		}
	}
	if m < 0 {
		return 0
	}
	return m
}

func dedentBlock(lines []string) string {
	m := minIndent(lines)
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= m {
			out[i] = l[m:]
		} else {
			out[i] = strings.TrimLeft(l, " ")
		}
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
