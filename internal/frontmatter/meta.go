package frontmatter

import (
	"fmt"
	"strings"
)

// Meta is the parsed page meta block.
type Meta map[string]any

// Parse splits content and decodes its meta block.
func Parse(content []byte) (Meta, []byte, error) {
	raw, body, had, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	if !had {
		return Meta{}, body, nil
	}
	fields, err := ParseYAML(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page meta: %w", err)
	}
	return Meta(fields), body, nil
}

// String returns a string-valued key or "".
func (m Meta) String(key string) string {
	if v, ok := m[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

// Title returns the `title` key.
func (m Meta) Title() string { return m.String("title") }

// Description returns the `description` key.
func (m Meta) Description() string { return m.String("description") }

// Template returns the `template` key.
func (m Meta) Template() string { return m.String("template") }

// Tags returns the `tags` list; a single string is accepted as one tag.
func (m Meta) Tags() []string {
	switch v := m["tags"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s := strings.TrimSpace(fmt.Sprint(t)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Hidden reports whether a UI element (navigation, toc, footer) is listed under `hide`.
func (m Meta) Hidden(element string) bool {
	list, ok := m["hide"].([]any)
	if !ok {
		return false
	}
	for _, v := range list {
		if fmt.Sprint(v) == element {
			return true
		}
	}
	return false
}

// SearchExcluded reports `search: {exclude: true}`.
func (m Meta) SearchExcluded() bool {
	s, ok := m["search"].(map[string]any)
	if !ok {
		return false
	}
	b, _ := s["exclude"].(bool)
	return b
}
