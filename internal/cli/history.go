package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/raoulx24/dropzip/internal/history"
)

func cmdHistory(e *env) *cli.Command {
	var limit int

	return &cli.Command{
		Name:  "history",
		Usage: "List recorded builds, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "Maximum number of builds to show (0 = all)",
				Value:       20,
				Destination: &limit,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := history.Open(e.cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(e.out, "no builds recorded")
				return nil
			}

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "STARTED\tSTATUS\tTRIGGER\tENTRIES\tARCHIVE\tERROR")
			for _, r := range records {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Status, r.Trigger, r.Entries, r.OutputPath, r.Error)
			}
			return tw.Flush()
		},
	}
}
