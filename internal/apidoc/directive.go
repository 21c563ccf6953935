package apidoc

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

var directiveLine = regexp.MustCompile(`^:::[ \t]+([A-Za-z_][\w.]*)[ \t]*$`)

// Directive is a `::: identifier` block with its YAML configuration.
type Directive struct {
	Identifier string
	Handler    string
	Options    map[string]any
	// Line is the 0-based line of the ::: marker; End is exclusive.
	Line int
	End  int
}

// FindDirectives returns the directives in a Markdown body. Fenced code
// blocks are skipped.
func FindDirectives(body string) ([]Directive, error) {
	lines := strings.Split(body, "\n")
	var (
		out   []Directive
		fence string
	)
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = trimmed[:3]
			continue
		}
		m := directiveLine.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		d := Directive{Identifier: m[1], Line: i, Options: map[string]any{}}
		j := i + 1
		var block []string
		for ; j < len(lines); j++ {
			l := lines[j]
			if strings.TrimSpace(l) == "" {
				if j+1 < len(lines) && indentWidth(lines[j+1]) > 0 && strings.TrimSpace(lines[j+1]) != "" {
					block = append(block, "")
					continue
				}
				break
			}
			if indentWidth(l) == 0 {
				break
			}
			block = append(block, l)
		}
		d.End = j
		if len(block) > 0 {
			var cfg struct {
				Handler string         `yaml:"handler"`
				Options map[string]any `yaml:"options"`
			}
			if err := yaml.Unmarshal([]byte(dedentBlock(block)), &cfg); err != nil {
				return nil, errors.DocsError("invalid directive options").
					WithCause(err).
					WithContext("identifier", d.Identifier).
					Build()
			}
			d.Handler = cfg.Handler
			if cfg.Options != nil {
				d.Options = cfg.Options
			}
		}
		out = append(out, d)
		i = j - 1
	}
	return out, nil
}

// ReplaceDirectives substitutes each directive block with the output of fn.
func ReplaceDirectives(body string, fn func(Directive) (string, error)) (string, error) {
	directives, err := FindDirectives(body)
	if err != nil || len(directives) == 0 {
		return body, err
	}
	lines := strings.Split(body, "\n")
	var b strings.Builder
	prev := 0
	for _, d := range directives {
		b.WriteString(strings.Join(lines[prev:d.Line], "\n"))
		if d.Line > prev {
			b.WriteString("\n")
		}
		out, err := fn(d)
		if err != nil {
			return "", err
		}
		b.WriteString(strings.TrimRight(out, "\n"))
		b.WriteString("\n")
		prev = d.End
	}
	b.WriteString(strings.Join(lines[prev:], "\n"))
	return b.String(), nil
}
