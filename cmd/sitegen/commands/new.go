package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// NewCmd implements the 'new' command.
type NewCmd struct {
	Dir   string `arg:"" optional:"" default:"." help:"Project directory" type:"path"`
	Force bool   `help:"Overwrite an existing configuration file"`
}

func (n *NewCmd) Run(g *Global, _ *CLI) error {
	_, _ = fmt.Fprintf(g.Out, "Creating project in %s\n", n.Dir)
	if err := config.Init(n.Dir, n.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Wrote %s and %s\n",
		filepath.Join(n.Dir, config.DefaultConfigFile),
		filepath.Join(n.Dir, "docs", "index.md"))
	return nil
}
