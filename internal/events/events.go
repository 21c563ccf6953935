// Package events publishes build notifications for downstream consumers.
package events

import (
	"context"
	"time"
)

// Subjects events are published on.
const (
	SubjectBuildCompleted = "sitegen.build.completed"
	SubjectLinkBroken     = "sitegen.link.broken"
)

// BuildCompleted is published once per finished build, whatever its outcome.
type BuildCompleted struct {
	BuildID       string    `json:"build_id"`
	SiteName      string    `json:"site_name"`
	SiteDir       string    `json:"site_dir"`
	Outcome       string    `json:"outcome"`
	Pages         int       `json:"pages"`
	RenderedPages int       `json:"rendered_pages"`
	ReusedPages   int       `json:"reused_pages"`
	Warnings      int       `json:"warnings"`
	Errors        int       `json:"errors"`
	BrokenLinks   int       `json:"broken_links"`
	DurationMS    int64     `json:"duration_ms"`
	ConfigHash    string    `json:"config_hash"`
	Timestamp     time.Time `json:"timestamp"`
}

// LinkBroken is published for every broken internal link a build found.
type LinkBroken struct {
	BuildID   string    `json:"build_id"`
	SiteName  string    `json:"site_name"`
	Page      string    `json:"page"`
	Link      string    `json:"link"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers build events.
type Publisher interface {
	PublishBuildCompleted(ctx context.Context, ev BuildCompleted) error
	PublishLinkBroken(ctx context.Context, ev LinkBroken) error
	Close() error
}

// NoopPublisher drops every event. It is the default when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBuildCompleted(context.Context, BuildCompleted) error { return nil }
func (NoopPublisher) PublishLinkBroken(context.Context, LinkBroken) error         { return nil }
func (NoopPublisher) Close() error                                                { return nil }
