package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	DB    string `name:"db" help:"SQLite history database" default:"sitegen-history.db" type:"path" env:"SITEGEN_HISTORY_DB"`
	Limit int    `short:"n" help:"Number of builds to list (0 for all)" default:"20"`
	ID    string `arg:"" optional:"" help:"Print the stored report of this build"`
}

func (h *HistoryCmd) Run(g *Global, _ *CLI) error {
	if _, err := os.Stat(h.DB); err != nil {
		return ferrors.NotFoundError("history database not found").
			WithContext("path", h.DB).UserAction().Build()
	}
	store, err := history.NewSQLiteStore(h.DB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.ID != "" {
		b, err := store.Get(ctx, h.ID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(g.Out, "%s\n", b.Report)
		return err
	}

	builds, err := store.List(ctx, h.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tOUTCOME\tPAGES\tWARNINGS\tERRORS")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			b.ID, b.StartedAt.Local().Format(time.DateTime), b.Duration().Round(time.Millisecond),
			b.Outcome, b.Pages, b.Warnings, b.Errors)
	}
	return tw.Flush()
}
