package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter writes a validation result.
type Formatter interface {
	Format(w io.Writer, result *Result) error
}

// NewFormatter returns the formatter for format ("text" or "json").
func NewFormatter(format string) Formatter {
	if format == "json" {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// TextFormatter formats results as human-readable text.
type TextFormatter struct{}

// Format outputs results in text form.
func (f *TextFormatter) Format(w io.Writer, result *Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Validating %s\n", result.ConfigPath)
	b.WriteString(strings.Repeat("━", 60) + "\n\n")

	for _, is := range result.Issues {
		icon := "ℹ"
		switch is.Severity {
		case SeverityError:
			icon = "✗"
		case SeverityWarning:
			icon = "⚠"
		}
		fmt.Fprintf(&b, "%s %s [%s]\n", icon, is.Path, is.Rule)
		fmt.Fprintf(&b, "  %s: %s\n", is.Severity, is.Message)
		if is.Explanation != "" {
			for line := range strings.SplitSeq(strings.TrimSpace(is.Explanation), "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
		if is.Fix != "" {
			fmt.Fprintf(&b, "  Fix: %s\n", is.Fix)
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("━", 60) + "\n")
	b.WriteString("Results:\n")
	fmt.Fprintf(&b, "  %d files scanned\n", result.FilesTotal)
	if n := result.ErrorCount(); n > 0 {
		fmt.Fprintf(&b, "  %d error%s\n", n, pluralize(n))
	}
	if n := result.WarningCount(); n > 0 {
		fmt.Fprintf(&b, "  %d warning%s\n", n, pluralize(n))
	}
	if n := result.InfoCount(); n > 0 {
		fmt.Fprintf(&b, "  %d info\n", n)
	}
	b.WriteString("\n")
	switch {
	case result.HasErrors():
		b.WriteString("❌ Configuration has errors; the site cannot be built.\n")
	case result.HasWarnings():
		b.WriteString("⚠️  Configuration has warnings; strict builds will fail.\n")
	default:
		b.WriteString("✨ Configuration is valid.\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// JSONOutput is the JSON document written by JSONFormatter.
type JSONOutput struct {
	Config       string      `json:"config"`
	FilesTotal   int         `json:"files_total"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	InfoCount    int         `json:"info_count"`
	Issues       []JSONIssue `json:"issues"`
}

// JSONIssue represents a single issue in JSON format.
type JSONIssue struct {
	Path        string `json:"path"`
	Severity    string `json:"severity"`
	Rule        string `json:"rule"`
	Message     string `json:"message"`
	Explanation string `json:"explanation,omitempty"`
	Fix         string `json:"fix,omitempty"`
}

// Format outputs results as an indented JSON document.
func (f *JSONFormatter) Format(w io.Writer, result *Result) error {
	out := JSONOutput{
		Config:       result.ConfigPath,
		FilesTotal:   result.FilesTotal,
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
		InfoCount:    result.InfoCount(),
		Issues:       []JSONIssue{},
	}
	for _, is := range result.Issues {
		out.Issues = append(out.Issues, JSONIssue{
			Path:        is.Path,
			Severity:    strings.ToLower(is.Severity.String()),
			Rule:        is.Rule,
			Message:     is.Message,
			Explanation: is.Explanation,
			Fix:         is.Fix,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
