package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPage       = "page"
	KeyPath       = "path"
	KeyPlugin     = "plugin"
	KeyTheme      = "theme"
	KeyOutput     = "output"
	KeyCount      = "count"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Page(src string) slog.Attr       { return slog.String(KeyPage, src) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func Theme(name string) slog.Attr     { return slog.String(KeyTheme, name) }
func Output(dir string) slog.Attr     { return slog.String(KeyOutput, dir) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
