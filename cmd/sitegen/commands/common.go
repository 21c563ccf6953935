package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	ConfigFile string           `short:"f" name:"config-file" help:"Path to the mkdocs.yml configuration file" default:"mkdocs.yml" type:"path"`
	Verbose    bool             `short:"v" help:"Enable verbose logging" xor:"loudness"`
	Quiet      bool             `short:"q" help:"Only log warnings and errors" xor:"loudness"`
	Version    kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build the documentation site"`
	Serve    ServeCmd    `cmd:"" help:"Run the live-reloading development server"`
	Validate ValidateCmd `cmd:"" help:"Check the configuration and navigation without building"`
	New      NewCmd      `cmd:"" help:"Create a new project"`
	History  HistoryCmd  `cmd:"" help:"List recorded builds"`
	Versions VersionCmd  `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	if g.Out == nil {
		g.Out = os.Stdout
	}
	if g.Err == nil {
		g.Err = os.Stderr
	}
	g.Logger = slog.New(slog.NewTextHandler(g.Err, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose, c.Quiet)}))
	slog.SetDefault(g.Logger)
	return nil
}

// parseLogLevel maps the verbosity flags and SITEGEN_LOG_LEVEL to a level.
// Flags take precedence over the environment.
func parseLogLevel(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelWarn
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SITEGEN_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ExitError ends the process with Code without further error output. The
// command has already reported the problem.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.ConfigFile)
}
