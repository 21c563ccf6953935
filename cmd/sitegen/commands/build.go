package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/events"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Strict  bool   `short:"s" help:"Abort the build on any warning"`
	Dirty   bool   `help:"Only re-render pages that changed since the last build"`
	Clean   bool   `short:"c" help:"Ignore any previous build state"`
	SiteDir string `short:"d" name:"site-dir" help:"Directory to write the site to (overrides site_dir)" type:"path"`
	History string `help:"Record the build in this SQLite database" type:"path" env:"SITEGEN_HISTORY_DB"`
	NatsURL string `name:"nats-url" help:"Publish build events to this NATS server" env:"SITEGEN_NATS_URL"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	if b.Dirty && b.Clean {
		return ferrors.ValidationError("--dirty and --clean cannot be combined").UserAction().Build()
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	opts := build.Options{
		SiteDir: b.SiteDir,
		Strict:  b.Strict,
		Dirty:   b.Dirty,
		Clean:   b.Clean,
		Logger:  g.Logger,
	}
	if b.History != "" {
		store, err := history.NewSQLiteStore(b.History)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts.Observers = append(opts.Observers, history.NewObserver(store))
	}
	if b.NatsURL != "" {
		pub, err := events.NewNATSPublisher(ctx, b.NatsURL)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		opts.Observers = append(opts.Observers, events.NewObserver(pub))
	}

	report, err := build.NewGenerator(cfg, opts).Build(ctx)
	if report != nil {
		g.Logger.Debug("Build report", logfields.BuildID(report.ID), slog.String("summary", report.Summary()))
		_, _ = fmt.Fprintf(g.Out, "Build %s: %s\n", report.Outcome, report.Summary())
	}
	return err
}
