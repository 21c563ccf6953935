package commands

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct {
	JSON bool `help:"Print as JSON"`
}

func (v *VersionCmd) Run(g *Global, _ *CLI) error {
	info := version.Get()
	if v.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	_, err := fmt.Fprintln(g.Out, info.String())
	return err
}
