// Package notebook converts Jupyter notebooks (nbformat 4) into page HTML.
package notebook

import (
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Notebook is the subset of nbformat 4 used for rendering.
type Notebook struct {
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
	Metadata      Metadata `json:"metadata"`
	Cells         []Cell   `json:"cells"`
}

type Metadata struct {
	KernelSpec   KernelSpec   `json:"kernelspec"`
	LanguageInfo LanguageInfo `json:"language_info"`
}

type KernelSpec struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
}

type LanguageInfo struct {
	Name string `json:"name"`
}

// Cell is one notebook cell.
type Cell struct {
	CellType       string       `json:"cell_type"`
	Source         MultiString  `json:"source"`
	Metadata       CellMetadata `json:"metadata"`
	ExecutionCount *int         `json:"execution_count,omitempty"`
	Outputs        []Output     `json:"outputs,omitempty"`
}

type CellMetadata struct {
	Tags []string `json:"tags"`
}

// HasTag reports whether the cell carries any of tags.
func (m CellMetadata) HasTag(tags []string) bool {
	for _, t := range m.Tags {
		for _, want := range tags {
			if t == want {
				return true
			}
		}
	}
	return false
}

// Output is one code cell output.
type Output struct {
	OutputType     string                 `json:"output_type"`
	Name           string                 `json:"name,omitempty"`
	Text           MultiString            `json:"text,omitempty"`
	Data           map[string]MultiString `json:"data,omitempty"`
	ExecutionCount *int                   `json:"execution_count,omitempty"`
	EName          string                 `json:"ename,omitempty"`
	EValue         string                 `json:"evalue,omitempty"`
	Traceback      []string               `json:"traceback,omitempty"`
}

// MultiString is a notebook text field: a string or a list of lines.
type MultiString string

func (m *MultiString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MultiString(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*m = MultiString(strings.Join(lines, ""))
		return nil
	}
	// JSON mime bundles (application/json) are kept verbatim.
	*m = MultiString(data)
	return nil
}

func (m MultiString) String() string { return string(m) }

// Parse decodes notebook JSON.
func Parse(data []byte) (*Notebook, error) {
	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, errors.DocsError("invalid notebook JSON").WithCause(err).Build()
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return nil, errors.DocsError("unsupported notebook format").
			WithContext("nbformat", nb.NBFormat).
			Build()
	}
	return &nb, nil
}

// Language returns the kernel language, defaulting to python.
func (nb *Notebook) Language() string {
	switch {
	case nb.Metadata.KernelSpec.Language != "":
		return nb.Metadata.KernelSpec.Language
	case nb.Metadata.LanguageInfo.Name != "":
		return nb.Metadata.LanguageInfo.Name
	default:
		return "python"
	}
}
