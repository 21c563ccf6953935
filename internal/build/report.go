package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Report file names written into the site directory.
const (
	ReportJSONFile = "build-report.json"
	ReportTextFile = "build-report.txt"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// StageResult enumerates per-stage classification outcomes.
// Mirrors metrics.ResultLabel values to simplify emission.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

// ReportIssueCode enumerates machine-parseable issue identifiers.
type ReportIssueCode string

const (
	IssueNavMissingFile      ReportIssueCode = "NAV_MISSING_FILE"
	IssueNavEmptySection     ReportIssueCode = "NAV_EMPTY_SECTION"
	IssueNavUnlisted         ReportIssueCode = "NAV_UNLISTED"
	IssueUnknownExtension    ReportIssueCode = "UNKNOWN_EXTENSION"
	IssueUnresolvedLink      ReportIssueCode = "UNRESOLVED_LINK"
	IssueBrokenLink          ReportIssueCode = "BROKEN_LINK"
	IssuePluginWarning       ReportIssueCode = "PLUGIN_WARNING"
	IssueInvalidFrontMatter  ReportIssueCode = "INVALID_FRONT_MATTER"
	IssueNoDocuments         ReportIssueCode = "NO_DOCUMENTS"
	IssueDestinationConflict ReportIssueCode = "DESTINATION_CONFLICT"
	IssueStrictAbort         ReportIssueCode = "STRICT_ABORT"
	IssueCanceled            ReportIssueCode = "BUILD_CANCELED"
	IssueGenericStageError   ReportIssueCode = "GENERIC_STAGE_ERROR"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// ReportIssue is a structured entry describing a discrete problem.
type ReportIssue struct {
	Code     ReportIssueCode `json:"code"`
	Stage    StageName       `json:"stage"`
	Severity IssueSeverity   `json:"severity"`
	Message  string          `json:"message"`
	Path     string          `json:"path,omitempty"`
	Target   string          `json:"target,omitempty"`
}

// StageCount aggregates counts of outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// BuildReport captures the result of a site build.
type BuildReport struct {
	SchemaVersion   int
	ID              string
	SiteName        string
	SiteDir         string
	ConfigHash      string
	Strict          bool
	Dirty           bool
	Start           time.Time
	End             time.Time
	Files           int
	Pages           int
	RenderedPages   int
	ReusedPages     int
	Assets          int
	Errors          []error
	Warnings        []error
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	StageCounts     map[StageName]StageCount
	Outcome         BuildOutcome
	Issues          []ReportIssue
}

func newBuildReport(id string) *BuildReport {
	return &BuildReport{
		SchemaVersion:   1,
		ID:              id,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		StageCounts:     make(map[StageName]StageCount),
	}
}

// AddIssue appends a structured issue and mirrors warnings and errors into
// the Warnings and Errors slices.
func (r *BuildReport) AddIssue(issue ReportIssue) {
	r.Issues = append(r.Issues, issue)
	switch issue.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, errors.New(issue.Message))
	case SeverityWarning:
		r.Warnings = append(r.Warnings, errors.New(issue.Message))
	}
}

// IssuesWith returns the issues carrying the given code.
func (r *BuildReport) IssuesWith(code ReportIssueCode) []ReportIssue {
	var out []ReportIssue
	for _, is := range r.Issues {
		if is.Code == code {
			out = append(out, is)
		}
	}
	return out
}

func (r *BuildReport) finish() { r.End = time.Now() }

// Duration is the wall time of the build.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("pages=%d rendered=%d reused=%d assets=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.Pages, r.RenderedPages, r.ReusedPages, r.Assets, r.Duration().Truncate(time.Millisecond),
		len(r.Errors), len(r.Warnings), r.Outcome)
}

// deriveOutcome sets Outcome from the recorded errors and warnings.
func (r *BuildReport) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// recordStageResult updates stage counters and emits metrics.
func (r *BuildReport) recordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	sc := r.StageCounts[stage]
	switch res {
	case StageResultSuccess:
		sc.Success++
		recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	case StageResultWarning:
		sc.Warning++
		recorder.IncStageResult(string(stage), metrics.ResultWarning)
	case StageResultFatal:
		sc.Fatal++
		recorder.IncStageResult(string(stage), metrics.ResultFatal)
	case StageResultCanceled:
		sc.Canceled++
		recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	}
	r.StageCounts[stage] = sc
}

// recordStageError classifies a failed stage in the report.
func (r *BuildReport) recordStageError(se *StageError, recorder metrics.Recorder) {
	r.StageErrorKinds[se.Stage] = se.Kind
	r.recordStageResult(se.Stage, StageResult(se.Kind), recorder)
	switch se.Kind {
	case StageErrorWarning:
		r.Issues = append(r.Issues, ReportIssue{Code: IssueGenericStageError, Stage: se.Stage, Severity: SeverityWarning, Message: se.Err.Error()})
		r.Warnings = append(r.Warnings, se)
	case StageErrorCanceled:
		r.Issues = append(r.Issues, ReportIssue{Code: IssueCanceled, Stage: se.Stage, Severity: SeverityError, Message: se.Err.Error()})
		r.Errors = append(r.Errors, se)
	default:
		r.Issues = append(r.Issues, ReportIssue{Code: IssueGenericStageError, Stage: se.Stage, Severity: SeverityError, Message: se.Err.Error()})
		r.Errors = append(r.Errors, se)
	}
}

// Persist writes build-report.json and build-report.txt atomically into root.
func (r *BuildReport) Persist(root string) error {
	if r.End.IsZero() {
		r.finish()
		r.deriveOutcome()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := r.JSON()
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(filepath.Join(root, ReportJSONFile), jb, 0o644); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(root, ReportTextFile), []byte(r.Summary()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write report summary: %w", err)
	}
	return nil
}

// JSON returns the indented serialized form of the report.
func (r *BuildReport) JSON() ([]byte, error) {
	jb, err := json.MarshalIndent(r.Serializable(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report json: %w", err)
	}
	return jb, nil
}

// Serializable returns a copy with errors converted to strings.
func (r *BuildReport) Serializable() *BuildReportSerializable {
	stageCounts := make(map[string]StageCount, len(r.StageCounts))
	for k, v := range r.StageCounts {
		stageCounts[string(k)] = v
	}
	sek := make(map[string]string, len(r.StageErrorKinds))
	for k, v := range r.StageErrorKinds {
		sek[string(k)] = string(v)
	}
	durations := make(map[string]int64, len(r.StageDurations))
	for k, v := range r.StageDurations {
		durations[k] = v.Milliseconds()
	}
	issues := r.Issues
	if issues == nil {
		issues = []ReportIssue{}
	}
	s := &BuildReportSerializable{
		SchemaVersion:    r.SchemaVersion,
		ID:               r.ID,
		SiteName:         r.SiteName,
		SiteDir:          r.SiteDir,
		ConfigHash:       r.ConfigHash,
		Strict:           r.Strict,
		Dirty:            r.Dirty,
		Start:            r.Start,
		End:              r.End,
		Files:            r.Files,
		Pages:            r.Pages,
		RenderedPages:    r.RenderedPages,
		ReusedPages:      r.ReusedPages,
		Assets:           r.Assets,
		Errors:           make([]string, len(r.Errors)),
		Warnings:         make([]string, len(r.Warnings)),
		StageDurationsMS: durations,
		StageErrorKinds:  sek,
		StageCounts:      stageCounts,
		Outcome:          string(r.Outcome),
		Issues:           issues,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// BuildReportSerializable mirrors BuildReport with string errors for JSON output.
type BuildReportSerializable struct {
	SchemaVersion    int                   `json:"schema_version"`
	ID               string                `json:"id"`
	SiteName         string                `json:"site_name"`
	SiteDir          string                `json:"site_dir"`
	ConfigHash       string                `json:"config_hash"`
	Strict           bool                  `json:"strict"`
	Dirty            bool                  `json:"dirty"`
	Start            time.Time             `json:"start"`
	End              time.Time             `json:"end"`
	Files            int                   `json:"files"`
	Pages            int                   `json:"pages"`
	RenderedPages    int                   `json:"rendered_pages"`
	ReusedPages      int                   `json:"reused_pages"`
	Assets           int                   `json:"assets"`
	Errors           []string              `json:"errors"`
	Warnings         []string              `json:"warnings"`
	StageDurationsMS map[string]int64      `json:"stage_durations_ms"`
	StageErrorKinds  map[string]string     `json:"stage_error_kinds"`
	StageCounts      map[string]StageCount `json:"stage_counts"`
	Outcome          string                `json:"outcome"`
	Issues           []ReportIssue         `json:"issues"`
}

// ReadReport loads a persisted build-report.json from a site directory.
func ReadReport(siteDir string) (*BuildReportSerializable, error) {
	data, err := os.ReadFile(filepath.Join(siteDir, ReportJSONFile))
	if err != nil {
		return nil, err
	}
	var s BuildReportSerializable
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ReportJSONFile, err)
	}
	return &s, nil
}
