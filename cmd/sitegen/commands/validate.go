package commands

import (
	"git.home.luguber.info/inful/sitegen/internal/validate"
)

// ValidateCmd implements the 'validate' command. It exits 2 when errors were
// found and 1 when only warnings were.
type ValidateCmd struct {
	Format string `default:"text" help:"Output format (text or json)" enum:"text,json"`
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	result := validate.New(nil).ValidateFile(root.ConfigFile)
	if err := validate.NewFormatter(v.Format).Format(g.Out, result); err != nil {
		return err
	}
	if code := result.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
