package apidoc

import (
	"regexp"
)

// Options control how an object is rendered.
type Options struct {
	ShowRootHeading   bool
	ShowRootFullPath  bool
	HeadingLevel      int
	ShowSource        bool
	ShowSignature     bool
	ShowBases         bool
	ShowIfNoDocstring bool
	// Members lists the members to render; nil renders all that pass the
	// filters. NoMembers disables member rendering.
	Members   []string
	NoMembers bool
	Filters   []string
	Style     Style
}

// DefaultOptions are used before handler and directive options apply.
func DefaultOptions() Options {
	return Options{
		ShowRootFullPath: true,
		HeadingLevel:     2,
		ShowSource:       true,
		ShowSignature:    true,
		ShowBases:        true,
		Filters:          []string{"!^_"},
		Style:            StyleNumpy,
	}
}

// Merge overlays a YAML options mapping onto o.
func (o Options) Merge(m map[string]any) Options {
	setBool := func(key string, dst *bool) {
		if v, ok := m[key].(bool); ok {
			*dst = v
		}
	}
	setBool("show_root_heading", &o.ShowRootHeading)
	setBool("show_root_full_path", &o.ShowRootFullPath)
	setBool("show_source", &o.ShowSource)
	setBool("show_signature", &o.ShowSignature)
	setBool("show_bases", &o.ShowBases)
	setBool("show_if_no_docstring", &o.ShowIfNoDocstring)
	if v, ok := m["heading_level"].(int); ok && v >= 1 && v <= 6 {
		o.HeadingLevel = v
	}
	switch v := m["members"].(type) {
	case bool:
		o.NoMembers = !v
		o.Members = nil
	case []any:
		o.NoMembers = false
		o.Members = nil
		for _, item := range v {
			if s, ok := item.(string); ok {
				o.Members = append(o.Members, s)
			}
		}
	}
	if v, ok := m["filters"].([]any); ok {
		o.Filters = nil
		for _, item := range v {
			if s, ok := item.(string); ok {
				o.Filters = append(o.Filters, s)
			}
		}
	}
	if v, ok := m["docstring_style"].(string); ok {
		switch Style(v) {
		case StyleGoogle, StyleNumpy:
			o.Style = Style(v)
		}
	}
	return o
}

// Validate reports option values that cannot be used.
func (o Options) Validate() error {
	for _, f := range o.Filters {
		if _, err := regexp.Compile(trimNegation(f)); err != nil {
			return err
		}
	}
	return nil
}

// selected reports whether a member name passes the members list and filters.
func (o Options) selected(name string) bool {
	if o.NoMembers {
		return false
	}
	if o.Members != nil {
		for _, m := range o.Members {
			if m == name {
				return true
			}
		}
		return false
	}
	keep := true
	for _, f := range o.Filters {
		re, err := regexp.Compile(trimNegation(f))
		if err != nil {
			continue
		}
		negated := len(f) > 0 && f[0] == '!'
		if negated && re.MatchString(name) {
			keep = false
		}
		if !negated && !re.MatchString(name) {
			keep = false
		}
	}
	return keep
}

func trimNegation(f string) string {
	if len(f) > 0 && f[0] == '!' {
		return f[1:]
	}
	return f
}
