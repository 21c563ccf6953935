package notebook

// Options are the mkdocs-jupyter plugin settings that affect rendering.
type Options struct {
	IncludeSource    bool
	IgnoreH1Titles   bool
	ShowInput        bool
	RemoveCellTags   []string
	RemoveInputTags  []string
	RemoveOutputTags []string
	Execute          bool
}

// DefaultOptions mirrors the plugin defaults.
func DefaultOptions() Options {
	return Options{IncludeSource: true, ShowInput: true}
}

// OptionsFrom reads plugin options. Unsupported settings come back as warnings.
func OptionsFrom(m map[string]any) (Options, []string) {
	o := DefaultOptions()
	var warnings []string
	if v, ok := m["include_source"].(bool); ok {
		o.IncludeSource = v
	}
	if v, ok := m["ignore_h1_titles"].(bool); ok {
		o.IgnoreH1Titles = v
	}
	if v, ok := m["show_input"].(bool); ok {
		o.ShowInput = v
	}
	if v, ok := m["no_input"].(bool); ok && v {
		o.ShowInput = false
	}
	if rc, ok := m["remove_tag_config"].(map[string]any); ok {
		o.RemoveCellTags = stringList(rc["remove_cell_tags"])
		o.RemoveInputTags = stringList(rc["remove_input_tags"])
		o.RemoveOutputTags = stringList(rc["remove_all_outputs_tags"])
		o.RemoveOutputTags = append(o.RemoveOutputTags, stringList(rc["remove_single_output_tags"])...)
	}
	if v, ok := m["execute"].(bool); ok && v {
		o.Execute = true
		warnings = append(warnings, "mkdocs-jupyter: execute is not supported; stored outputs are rendered")
	}
	if v, ok := m["kernel_name"].(string); ok && v != "" {
		warnings = append(warnings, "mkdocs-jupyter: kernel_name is ignored")
	}
	return o, warnings
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
