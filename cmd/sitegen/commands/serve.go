package commands

import (
	"time"

	"git.home.luguber.info/inful/sitegen/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	DevAddr      string        `short:"a" name:"dev-addr" help:"IP address and port to serve on (overrides dev_addr)" placeholder:"HOST:PORT"`
	Strict       bool          `short:"s" help:"Treat warnings as failed rebuilds"`
	Dirty        bool          `help:"Only re-render changed pages on rebuild"`
	RebuildEvery time.Duration `name:"rebuild-every" help:"Additionally rebuild at this interval (e.g. 10m)"`
	Metrics      bool          `help:"Expose Prometheus metrics at /metrics"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	srv, err := server.New(server.Options{
		ConfigFile:   root.ConfigFile,
		DevAddr:      s.DevAddr,
		Strict:       s.Strict,
		Dirty:        s.Dirty,
		RebuildEvery: s.RebuildEvery,
		Metrics:      s.Metrics,
		Logger:       g.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	ctx, cancel := signalContext()
	defer cancel()
	return srv.Run(ctx)
}
