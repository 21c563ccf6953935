package events

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Observer publishes build results as events. Publish failures are logged
// and never affect the build.
type Observer struct {
	build.NoopObserver
	pub     Publisher
	timeout time.Duration
}

// NewObserver returns a build observer publishing through pub.
func NewObserver(pub Publisher) *Observer {
	return &Observer{pub: pub, timeout: 10 * time.Second}
}

// OnBuildComplete publishes build.completed and one link.broken per broken link.
func (o *Observer) OnBuildComplete(r *build.BuildReport) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	broken := r.IssuesWith(build.IssueBrokenLink)
	ev := BuildCompleted{
		BuildID:       r.ID,
		SiteName:      r.SiteName,
		SiteDir:       r.SiteDir,
		Outcome:       string(r.Outcome),
		Pages:         r.Pages,
		RenderedPages: r.RenderedPages,
		ReusedPages:   r.ReusedPages,
		Warnings:      len(r.Warnings),
		Errors:        len(r.Errors),
		BrokenLinks:   len(broken),
		DurationMS:    r.Duration().Milliseconds(),
		ConfigHash:    r.ConfigHash,
		Timestamp:     r.End,
	}
	if err := o.pub.PublishBuildCompleted(ctx, ev); err != nil {
		slog.Warn("Failed to publish build event", logfields.BuildID(r.ID), logfields.Error(err))
	}
	for _, is := range broken {
		lb := LinkBroken{
			BuildID:   r.ID,
			SiteName:  r.SiteName,
			Page:      is.Path,
			Link:      is.Target,
			Message:   is.Message,
			Timestamp: r.End,
		}
		if err := o.pub.PublishLinkBroken(ctx, lb); err != nil {
			slog.Warn("Failed to publish broken link event", logfields.BuildID(r.ID), logfields.Error(err))
			return
		}
	}
}
