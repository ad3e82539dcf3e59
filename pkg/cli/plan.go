package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
	"github.com/urfave/cli/v3"
)

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show or import the weekly plan",
		Commands: []*cli.Command{
			planShowCommand(),
			planImportCommand(),
		},
	}
}

func planShowCommand() *cli.Command {
	var (
		cfg config
		day string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "day",
			Aliases:     []string{"d"},
			Usage:       "Only show one weekday",
			Destination: &day,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Print the plan",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			reader := plan.NewReader(repo)
			w := c.Root().Writer

			if day != "" {
				blocks, err := reader.DayPlan(ctx, day)
				if err != nil {
					return err
				}
				canonical, _ := model.CanonicalDay(day)
				printDay(w, canonical, blocks)
				return nil
			}

			week, err := reader.WeeklyPlan(ctx)
			if err != nil {
				return err
			}
			if len(week) == 0 {
				fmt.Fprintln(w, "No plan yet. Use 'spotter plan import <file.yaml>'.")
				return nil
			}
			for _, d := range model.Weekdays {
				if blocks, ok := week[d]; ok {
					printDay(w, d, blocks)
				}
			}
			return nil
		},
	}
}

func printDay(w io.Writer, day string, blocks []*model.PlanBlock) {
	color.New(color.Bold).Fprintf(w, "%s\n", day)
	if len(blocks) == 0 {
		color.New(color.Faint).Fprintln(w, "  (rest)")
		return
	}

	faint := color.New(color.Faint)
	for _, b := range blocks {
		if b.IsCircuit() {
			fmt.Fprintf(w, "  %d. %s %s\n", b.OrderIndex+1, b.Label, faint.Sprintf("(circuit x%d)", b.Meta.Rounds))
			for _, m := range b.Members {
				fmt.Fprintf(w, "       - %s\n", joinNonEmpty(" ", m.Exercise, m.Reps, m.Weight, m.Tempo))
			}
			continue
		}

		target := ""
		if b.TargetSets > 0 {
			target = fmt.Sprintf("%dx", b.TargetSets)
		}
		target += b.TargetReps
		if b.TargetWeight != "" {
			target += "@" + b.TargetWeight
		}
		fmt.Fprintf(w, "  %d. %s %s %s\n", b.OrderIndex+1, b.Exercise, target, faint.Sprint(shortID(string(b.ID))))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinNonEmpty(sep string, values ...string) string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}

func planImportCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "import",
		Usage:     "Replace the listed days with the blocks in a YAML file",
		ArgsUsage: "<file.yaml>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			if c.Args().Len() != 1 {
				return goerr.New("exactly one plan file is required")
			}
			path := c.Args().First()

			f, err := os.Open(path)
			if err != nil {
				return goerr.Wrap(err, "failed to open plan file", goerr.V("path", path))
			}
			defer f.Close()

			week, err := plan.ParseWeekYAML(f)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := plan.ImportWeek(ctx, repo, week)
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(c.Root().Writer, "✓ Imported %d blocks across %d days\n", n, len(week))
			return nil
		},
	}
}
