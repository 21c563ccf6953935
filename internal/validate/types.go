// Package validate checks a site configuration against its docs directory
// without building it.
package validate

// Severity indicates the importance level of an issue.
type Severity int

const (
	// SeverityInfo marks informational findings that never fail validation.
	SeverityInfo Severity = iota
	// SeverityWarning marks problems the build tolerates outside strict mode.
	SeverityWarning
	// SeverityError marks problems that make the configuration unusable.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Rule identifiers.
const (
	RuleConfigSyntax      = "config-syntax"
	RuleSiteNameRequired  = "site-name-required"
	RuleSiteURLInvalid    = "site-url-invalid"
	RuleRepoURLInvalid    = "repo-url-invalid"
	RuleThemeUnknown      = "theme-unknown"
	RulePluginUnknown     = "plugin-unknown"
	RulePluginOptions     = "plugin-options"
	RuleExtensionUnknown  = "extension-unknown"
	RuleDocsDirMissing    = "docs-dir-missing"
	RuleNavMissingFile    = "nav-missing-file"
	RuleNavEmptySection   = "nav-empty-section"
	RuleNavUnlisted       = "nav-unlisted"
	RulePageConflict      = "page-conflict"
	RuleAnalyticsProvider = "analytics-provider"
)

// Issue is a single validation finding.
type Issue struct {
	Path        string // config key or docs-relative file the issue is about
	Severity    Severity
	Rule        string
	Message     string
	Explanation string
	Fix         string
}

// Result contains all issues found.
type Result struct {
	ConfigPath string
	Issues     []Issue
	FilesTotal int
}

func (r *Result) add(is Issue) { r.Issues = append(r.Issues, is) }

func (r *Result) count(s Severity) int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == s {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-level issue exists.
func (r *Result) HasErrors() bool { return r.count(SeverityError) > 0 }

// HasWarnings reports whether any warning-level issue exists.
func (r *Result) HasWarnings() bool { return r.count(SeverityWarning) > 0 }

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int { return r.count(SeverityError) }

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int { return r.count(SeverityWarning) }

// InfoCount returns the number of informational issues.
func (r *Result) InfoCount() int { return r.count(SeverityInfo) }

// ExitCode maps the result to a process exit code: 2 with errors, 1 with
// warnings, 0 otherwise.
func (r *Result) ExitCode() int {
	switch {
	case r.HasErrors():
		return 2
	case r.HasWarnings():
		return 1
	default:
		return 0
	}
}

// Rules returns the issues reported by the named rule.
func (r *Result) Rules(rule string) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Rule == rule {
			out = append(out, is)
		}
	}
	return out
}
