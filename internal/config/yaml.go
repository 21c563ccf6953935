package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

const longTagPrefix = "tag:yaml.org,2002:"

// resolveTags rewrites application-specific tags in place so the tree can be
// decoded into plain Go values. `!ENV` is resolved from the environment,
// Python object tags degrade to their textual form.
func resolveTags(n *yaml.Node) error {
	if n == nil {
		return nil
	}
	tag := n.Tag
	if strings.HasPrefix(tag, longTagPrefix) {
		tag = "!!" + strings.TrimPrefix(tag, longTagPrefix)
	}
	switch {
	case tag == "!ENV":
		resolveEnvTag(n)
		return nil
	case strings.HasPrefix(tag, "!!python/"):
		if n.Kind == yaml.ScalarNode {
			if n.Value != "" {
				n.Value = tag + " " + n.Value
			} else {
				n.Value = tag
			}
			n.Tag = "!!str"
			n.Style = 0
			return nil
		}
		n.Tag = ""
	case strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!"):
		if n.Kind == yaml.ScalarNode {
			n.Tag = "!!str"
		} else {
			n.Tag = ""
		}
	}
	for _, child := range n.Content {
		if err := resolveTags(child); err != nil {
			return err
		}
	}
	return nil
}

// resolveEnvTag implements `!ENV VAR` and `!ENV [VAR1, VAR2, default]`.
func resolveEnvTag(n *yaml.Node) {
	var value string
	found := false
	switch n.Kind {
	case yaml.ScalarNode:
		value, found = os.LookupEnv(n.Value)
	case yaml.SequenceNode:
		items := n.Content
		for i, item := range items {
			if i == len(items)-1 && len(items) > 1 {
				value, found = item.Value, true
				break
			}
			if v, ok := os.LookupEnv(item.Value); ok {
				value, found = v, true
				break
			}
		}
	}
	n.Kind = yaml.ScalarNode
	n.Content = nil
	n.Style = 0
	if !found {
		n.Tag = "!!null"
		n.Value = ""
		return
	}
	n.Tag = ""
	n.Value = value
}

// UnmarshalYAML accepts `theme: name` as well as the mapping form.
func (t *ThemeConfig) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		t.Name = n.Value
		return nil
	}
	type plain ThemeConfig
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*t = ThemeConfig(p)
	return nil
}

// UnmarshalYAML accepts a single palette mapping or a list of them.
func (p *PaletteList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		var single Palette
		if err := n.Decode(&single); err != nil {
			return err
		}
		*p = PaletteList{single}
		return nil
	}
	var list []Palette
	if err := n.Decode(&list); err != nil {
		return err
	}
	*p = list
	return nil
}

// UnmarshalYAML accepts the list form (`- search`, `- mkdocstrings: {...}`)
// and the mapping form (`search: {}`).
func (l *PluginList) UnmarshalYAML(n *yaml.Node) error {
	entries, err := decodeEntries(n, "plugins")
	if err != nil {
		return err
	}
	out := make(PluginList, 0, len(entries))
	for _, e := range entries {
		out = append(out, PluginEntry(e))
	}
	*l = out
	return nil
}

// UnmarshalYAML accepts the same shapes as PluginList.
func (l *ExtensionList) UnmarshalYAML(n *yaml.Node) error {
	entries, err := decodeEntries(n, "markdown_extensions")
	if err != nil {
		return err
	}
	out := make(ExtensionList, 0, len(entries))
	for _, e := range entries {
		out = append(out, ExtensionEntry(e))
	}
	*l = out
	return nil
}

type namedOptions struct {
	Name    string
	Options map[string]any
}

func decodeEntries(n *yaml.Node, key string) ([]namedOptions, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" || n.Value == "" {
			return nil, nil
		}
		return nil, listShapeError(key, n)
	case yaml.MappingNode:
		out := make([]namedOptions, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			opts, err := decodeOptions(n.Content[i+1], key, n.Content[i].Value)
			if err != nil {
				return nil, err
			}
			out = append(out, namedOptions{Name: n.Content[i].Value, Options: opts})
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]namedOptions, 0, len(n.Content))
		for _, item := range n.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, namedOptions{Name: item.Value, Options: map[string]any{}})
			case yaml.MappingNode:
				if len(item.Content) != 2 {
					return nil, errors.ConfigError("list entry must have exactly one key").
						WithContext("key", key).WithContext("line", item.Line).Build()
				}
				name := item.Content[0].Value
				opts, err := decodeOptions(item.Content[1], key, name)
				if err != nil {
					return nil, err
				}
				out = append(out, namedOptions{Name: name, Options: opts})
			default:
				return nil, listShapeError(key, item)
			}
		}
		return out, nil
	default:
		return nil, listShapeError(key, n)
	}
}

func decodeOptions(n *yaml.Node, key, name string) (map[string]any, error) {
	if n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || n.Value == "") {
		return map[string]any{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errors.ConfigError("options must be a mapping").
			WithContext("key", key).WithContext("name", name).WithContext("line", n.Line).Build()
	}
	opts := map[string]any{}
	if err := n.Decode(&opts); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid options").
			WithContext("key", key).WithContext("name", name).Build()
	}
	return opts, nil
}

func listShapeError(key string, n *yaml.Node) error {
	return errors.ConfigError("expected a list of names or single-key mappings").
		WithContext("key", key).WithContext("line", n.Line).Build()
}

// UnmarshalYAML decodes the three nav shapes: `path.md`, `Title: path.md`
// and `Section: [...]`.
func (e *NavEntry) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" {
			return errors.ConfigError("nav entry cannot be empty").WithContext("line", n.Line).Build()
		}
		e.Path = n.Value
		return nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return errors.ConfigError("nav entry must have exactly one title").
				WithContext("line", n.Line).Build()
		}
		e.Title = n.Content[0].Value
		value := n.Content[1]
		switch value.Kind {
		case yaml.ScalarNode:
			if value.Tag == "!!null" || value.Value == "" {
				return errors.ConfigError("nav entry has no path").
					WithContext("title", e.Title).WithContext("line", value.Line).Build()
			}
			e.Path = value.Value
			return nil
		case yaml.SequenceNode:
			e.Section = true
			return value.Decode(&e.Children)
		}
		return errors.ConfigError("nav entry value must be a path or a list").
			WithContext("title", e.Title).WithContext("line", value.Line).Build()
	}
	return errors.ConfigError("invalid nav entry").WithContext("line", n.Line).Build()
}

// IsExternal reports whether the entry links outside the site.
func (e NavEntry) IsExternal() bool {
	p := strings.ToLower(e.Path)
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") || strings.HasPrefix(p, "mailto:") || strings.HasPrefix(p, "//")
}
