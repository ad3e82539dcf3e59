package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
	"github.com/urfave/cli/v3"
)

func compareCommand() *cli.Command {
	var (
		cfg  config
		date string
		day  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Session date (YYYY-MM-DD)",
			Destination: &date,
		},
		&cli.StringFlag{
			Name:        "day",
			Usage:       "Weekday, resolved to the most recent one",
			Destination: &day,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, proposalFlags(&cfg)...)

	return &cli.Command{
		Name:  "compare",
		Usage: "Compare a logged session with the plan for its weekday",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			ws, err := cfg.newWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			cmp, err := ws.client.Differ.Compare(ctx, date, day)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			color.New(color.Bold).Fprintf(w, "%s (%s)\n", cmp.Criteria.Date, cmp.Criteria.Day)

			styles := map[string]*color.Color{
				plan.StatusMatched:  color.New(color.FgGreen),
				plan.StatusModified: color.New(color.FgYellow),
				plan.StatusMissing:  color.New(color.FgRed),
				plan.StatusExtra:    color.New(color.FgCyan),
			}
			for _, d := range cmp.Diff {
				line := fmt.Sprintf("  %-8s %s", d.Status, d.Exercise)
				if d.SetIdx != nil {
					line += fmt.Sprintf(" [round %d]", *d.SetIdx+1)
				}
				if d.Detail != "" {
					line += " " + d.Detail
				} else if d.Actual != "" {
					line += " " + d.Actual
				}
				styles[d.Status].Fprintln(w, line)
			}

			fmt.Fprintf(w, "matched %d, modified %d, missing %d, extra %d\n",
				cmp.Summary[plan.StatusMatched], cmp.Summary[plan.StatusModified],
				cmp.Summary[plan.StatusMissing], cmp.Summary[plan.StatusExtra])
			return nil
		},
	}
}
