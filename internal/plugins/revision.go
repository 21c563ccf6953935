package plugins

import (
	"fmt"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/docs"
	"git.home.luguber.info/inful/sitegen/internal/gitinfo"
)

// Revision date plugin names.
const (
	RevisionDateName          = "git-revision-date"
	RevisionDateLocalizedName = "git-revision-date-localized"
)

// Date display types.
const (
	DateTypeDate        = "date"
	DateTypeDatetime    = "datetime"
	DateTypeISODate     = "iso_date"
	DateTypeISODatetime = "iso_datetime"
	DateTypeTimeago     = "timeago"
)

// RevisionDate stamps each page with the date of its last commit.
type RevisionDate struct {
	dateType     string
	fallback     bool
	exclude      []string
	buildStarted time.Time

	mu   sync.Mutex
	repo gitinfo.Source
}

// NewRevisionDate returns the plugin with the "date" display type.
func NewRevisionDate() *RevisionDate {
	return &RevisionDate{dateType: DateTypeDate, fallback: true, buildStarted: time.Now()}
}

func (r *RevisionDate) Name() string { return RevisionDateName }

func (r *RevisionDate) Configure(opts map[string]any) error {
	if v, ok := opts["type"].(string); ok && v != "" {
		switch v {
		case DateTypeDate, DateTypeDatetime, DateTypeISODate, DateTypeISODatetime, DateTypeTimeago:
			r.dateType = v
		default:
			return fmt.Errorf("unknown date type %q", v)
		}
	}
	if v, ok := opts["fallback_to_build_date"].(bool); ok {
		r.fallback = v
	}
	if v, ok := opts["exclude"].([]any); ok {
		for _, p := range v {
			if s, ok := p.(string); ok {
				r.exclude = append(r.exclude, s)
			}
		}
	}
	return nil
}

// UseSource replaces the git lookup, mainly for tests.
func (r *RevisionDate) UseSource(src gitinfo.Source) {
	r.mu.Lock()
	r.repo = src
	r.mu.Unlock()
}

func (r *RevisionDate) OnConfig(cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.repo != nil {
		return nil
	}
	repo, err := gitinfo.Open(cfg.DocsDir)
	if err != nil {
		return err
	}
	r.repo = repo
	return nil
}

// OnPages stamps every page, notebooks and reused pages included.
func (r *RevisionDate) OnPages(pages []*Page, site *Site) error {
	r.mu.Lock()
	src := r.repo
	r.mu.Unlock()
	if src == nil {
		if err := r.OnConfig(site.Config); err != nil {
			return err
		}
		r.mu.Lock()
		src = r.repo
		r.mu.Unlock()
	}
	for _, page := range pages {
		if docs.Excluded(page.File.SrcPath, false, r.exclude) {
			continue
		}
		t, err := src.LastModified(page.File.AbsPath)
		if err != nil {
			if !r.fallback {
				site.Warn(RevisionDateName, "no revision date for "+page.File.SrcPath)
				continue
			}
			t = r.buildStarted
		}
		page.RevisionDate = t
		page.RevisionText = FormatDate(t, r.dateType)
	}
	return nil
}

// FormatDate renders t in one of the supported display types.
func FormatDate(t time.Time, dateType string) string {
	switch dateType {
	case DateTypeDatetime:
		return t.Format("January 2, 2006 15:04:05")
	case DateTypeISODate:
		return t.Format("2006-01-02")
	case DateTypeISODatetime:
		return t.Format("2006-01-02 15:04:05")
	case DateTypeTimeago:
		return t.UTC().Format(time.RFC3339)
	default:
		return t.Format("January 2, 2006")
	}
}
