// Package apidoc extracts API documentation from Python sources without
// running an interpreter. Only the module outline is parsed: definitions,
// signatures, decorators and docstrings.
package apidoc

import (
	"regexp"
	"strings"
)

// Kind classifies a documented object.
type Kind string

const (
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
)

// Object is a module, class or function found in a source file.
type Object struct {
	Kind       Kind
	Name       string
	Path       string // dotted path, e.g. pkg.mod.func
	Signature  string // parameters and return annotation, e.g. "(x: int) -> float"
	Bases      string
	Async      bool
	Decorators []string
	Docstring  string
	Source     string
	File       string
	LineStart  int // 1-based
	LineEnd    int
	Members    []*Object
	Parent     *Object
}

// Member returns the direct member with the given name.
func (o *Object) Member(name string) *Object {
	for _, m := range o.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Lookup resolves a dotted path relative to o.
func (o *Object) Lookup(rel string) *Object {
	cur := o
	for _, part := range strings.Split(rel, ".") {
		if cur = cur.Member(part); cur == nil {
			return nil
		}
	}
	return cur
}

var (
	defPattern   = regexp.MustCompile(`^(async\s+)?def\s+([A-Za-z_]\w*)\s*`)
	classPattern = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*`)
)

type sourceLine struct {
	text   string
	indent int
	// code is false for blank lines, comments and lines inside a
	// multi-line string that began on an earlier line.
	code bool
}

// ParseModule parses Python source into a module object named path.
func ParseModule(path string, src []byte) *Object {
	lines := scanLines(string(src))
	name := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		name = path[i+1:]
	}
	mod := &Object{
		Kind:      KindModule,
		Name:      name,
		Path:      path,
		LineStart: 1,
		LineEnd:   len(lines),
	}
	mod.Docstring, _ = docstringAt(lines, 0, -1)
	p := &moduleParser{lines: lines}
	p.parseBlock(mod, 0, len(lines), 0)
	return mod
}

type moduleParser struct {
	lines []sourceLine
}

// parseBlock finds definitions at exactly indent within [start, end).
func (p *moduleParser) parseBlock(parent *Object, start, end, indent int) {
	var decorators []string
	decoStart := -1
	for i := start; i < end; i++ {
		ln := p.lines[i]
		if !ln.code || ln.indent != indent {
			if ln.code && ln.indent < indent {
				return
			}
			continue
		}
		stmt := strings.TrimSpace(ln.text)
		if strings.HasPrefix(stmt, "@") {
			if decoStart < 0 {
				decoStart = i
			}
			decorators = append(decorators, strings.TrimPrefix(stmt, "@"))
			continue
		}

		var obj *Object
		if m := defPattern.FindStringSubmatch(stmt); m != nil {
			obj = &Object{Kind: KindFunction, Name: m[2], Async: m[1] != ""}
			if parent.Kind == KindClass {
				obj.Kind = KindMethod
			}
		} else if m := classPattern.FindStringSubmatch(stmt); m != nil {
			obj = &Object{Kind: KindClass, Name: m[1]}
		} else {
			decorators, decoStart = nil, -1
			continue
		}

		header, headerEnd := p.header(i, end)
		bodyEnd := p.blockEnd(headerEnd+1, end, indent)
		first := i
		if decoStart >= 0 {
			first = decoStart
		}

		obj.Parent = parent
		obj.Path = parent.Path + "." + obj.Name
		obj.Decorators = decorators
		obj.LineStart = first + 1
		obj.LineEnd = bodyEnd
		obj.Source = p.text(first, bodyEnd)
		if obj.Kind == KindClass {
			obj.Bases = classBases(header)
		} else {
			obj.Signature = signature(header, obj.Name)
		}
		obj.Docstring, _ = docstringAt(p.lines, headerEnd+1, indent)
		parent.Members = append(parent.Members, obj)

		if obj.Kind == KindClass {
			if bodyIndent, ok := p.bodyIndent(headerEnd+1, bodyEnd, indent); ok {
				p.parseBlock(obj, headerEnd+1, bodyEnd, bodyIndent)
			}
		}
		decorators, decoStart = nil, -1
		i = bodyEnd - 1
	}
}

// header joins a def/class header spanning several lines up to the colon
// that closes it, returning the joined text and its last line index.
func (p *moduleParser) header(start, end int) (string, int) {
	var b strings.Builder
	depth := 0
	for i := start; i < end; i++ {
		code := stripComment(p.lines[i].text)
		b.WriteString(strings.TrimSpace(code))
		b.WriteByte(' ')
		depth += bracketDelta(code)
		if depth <= 0 && strings.HasSuffix(strings.TrimSpace(code), ":") {
			return strings.TrimSpace(b.String()), i
		}
		// One-line bodies: "def f(): return 1"
		if depth <= 0 && strings.Contains(code, "):") {
			return strings.TrimSpace(b.String()), i
		}
	}
	return strings.TrimSpace(b.String()), end - 1
}

func (p *moduleParser) blockEnd(start, end, indent int) int {
	last := start
	for i := start; i < end; i++ {
		ln := p.lines[i]
		if !ln.code {
			continue
		}
		if ln.indent <= indent {
			return last
		}
		last = i + 1
	}
	return last
}

func (p *moduleParser) bodyIndent(start, end, indent int) (int, bool) {
	for i := start; i < end; i++ {
		if p.lines[i].code && p.lines[i].indent > indent {
			return p.lines[i].indent, true
		}
	}
	return 0, false
}

func (p *moduleParser) text(start, end int) string {
	var parts []string
	for i := start; i < end && i < len(p.lines); i++ {
		parts = append(parts, p.lines[i].text)
	}
	return strings.TrimRight(strings.Join(parts, "\n"), "\n ") + "\n"
}

func signature(header, name string) string {
	rest := strings.TrimPrefix(header, "async ")
	rest = strings.TrimPrefix(rest, "def ")
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), name))
	if i := headerColon(rest); i >= 0 {
		rest = rest[:i]
	}
	return collapseSpaces(rest)
}

func classBases(header string) string {
	open := strings.Index(header, "(")
	if open < 0 {
		return ""
	}
	closeIdx := strings.LastIndex(header, ")")
	if closeIdx <= open {
		return ""
	}
	return collapseSpaces(header[open+1 : closeIdx])
}

// headerColon finds the first colon outside brackets.
func headerColon(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func collapseSpaces(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "( ", "(")
	s = strings.ReplaceAll(s, " )", ")")
	s = strings.ReplaceAll(s, ", )", ")")
	s = strings.ReplaceAll(s, ",)", ")")
	return s
}

func bracketDelta(code string) int {
	d := 0
	inStr := byte(0)
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inStr != 0:
			if c == '\\' {
				i++
			} else if c == inStr {
				inStr = 0
			}
		case c == '"' || c == '\'':
			inStr = c
		case c == '(' || c == '[' || c == '{':
			d++
		case c == ')' || c == ']' || c == '}':
			d--
		}
	}
	return d
}

func stripComment(line string) string {
	inStr := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inStr != 0:
			if c == '\\' {
				i++
			} else if c == inStr {
				inStr = 0
			}
		case c == '"' || c == '\'':
			inStr = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// scanLines splits source into lines and marks which ones start code
// statements. Lines continuing a triple-quoted string are not code.
func scanLines(src string) []sourceLine {
	raw := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	out := make([]sourceLine, len(raw))
	inTriple := ""
	for i, text := range raw {
		out[i].text = text
		trimmed := strings.TrimLeft(text, " \t")
		out[i].indent = indentWidth(text)
		startsInString := inTriple != ""
		inTriple = advanceTriple(text, inTriple)
		out[i].code = !startsInString && trimmed != "" && !strings.HasPrefix(trimmed, "#")
	}
	return out
}

// advanceTriple tracks whether a triple-quoted string is open at the end of line.
func advanceTriple(line, open string) string {
	for i := 0; i < len(line); {
		if open != "" {
			j := strings.Index(line[i:], open)
			if j < 0 {
				return open
			}
			i += j + 3
			open = ""
			continue
		}
		c := line[i]
		switch {
		case c == '#':
			return ""
		case strings.HasPrefix(line[i:], `"""`) || strings.HasPrefix(line[i:], `'''`):
			open = line[i : i+3]
			i += 3
		case c == '"' || c == '\'':
			// Skip a single-quoted string on this line.
			j := i + 1
			for j < len(line) && line[j] != c {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			i = j + 1
		default:
			i++
		}
	}
	return open
}

func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 8 - w%8
		default:
			return w
		}
	}
	return w
}

var stringPrefix = regexp.MustCompile(`^(?i:[rub]|br|rb)?("""|'''|"|')`)

// docstringAt returns the docstring that is the first statement at or after
// line start whose indent is greater than parentIndent.
func docstringAt(lines []sourceLine, start, parentIndent int) (string, bool) {
	for i := start; i < len(lines); i++ {
		if !lines[i].code {
			continue
		}
		if lines[i].indent <= parentIndent {
			return "", false
		}
		stmt := strings.TrimSpace(lines[i].text)
		m := stringPrefix.FindStringSubmatch(stmt)
		if m == nil {
			return "", false
		}
		quote := m[1]
		body := stmt[len(m[0]):]
		if end := strings.Index(body, quote); end >= 0 {
			return cleanDoc(body[:end]), true
		}
		if len(quote) == 1 {
			return "", false
		}
		parts := []string{body}
		for j := i + 1; j < len(lines); j++ {
			text := lines[j].text
			if end := strings.Index(text, quote); end >= 0 {
				parts = append(parts, text[:end])
				return cleanDoc(strings.Join(parts, "\n")), true
			}
			parts = append(parts, text)
		}
		return cleanDoc(strings.Join(parts, "\n")), true
	}
	return "", false
}

// cleanDoc dedents a docstring the way inspect.cleandoc does.
func cleanDoc(doc string) string {
	doc = strings.ReplaceAll(doc, `\\`, `\`)
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	margin := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if w := indentWidth(l); margin < 0 || w < margin {
			margin = w
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if margin > 0 && len(lines[i]) >= margin {
			lines[i] = lines[i][margin:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " ")
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
