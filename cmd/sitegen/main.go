package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegen/cmd/sitegen/commands"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes the selected command and returns the process
// exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cli := &commands.CLI{}
	global := &commands.Global{Out: stdout, Err: stderr}

	parser, err := kong.New(cli,
		kong.Name("sitegen"),
		kong.Description("Static documentation site generator for mkdocs.yml projects."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version.Get().String()},
		kong.Bind(global),
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	err = kctx.Run(global, cli)
	if err == nil {
		return 0
	}
	var exit *commands.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ferrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).WithOutput(stderr).HandleError(err)
}
