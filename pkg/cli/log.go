package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/urfave/cli/v3"
)

func logCommand() *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Record or list workout entries",
		Commands: []*cli.Command{
			logAddCommand(),
			logListCommand(),
		},
	}
}

func logAddCommand() *cli.Command {
	var (
		cfg   config
		entry model.LogEntry
		sets  int64
		day   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "exercise",
			Aliases:     []string{"e"},
			Usage:       "Exercise name",
			Required:    true,
			Destination: &entry.Exercise,
		},
		&cli.IntFlag{
			Name:        "sets",
			Aliases:     []string{"s"},
			Usage:       "Number of sets",
			Value:       1,
			Destination: &sets,
		},
		&cli.StringFlag{
			Name:        "reps",
			Aliases:     []string{"r"},
			Usage:       "Reps per set (e.g. 8, 8-10, 45s)",
			Destination: &entry.Reps,
		},
		&cli.StringFlag{
			Name:        "weight",
			Aliases:     []string{"w"},
			Usage:       "Load (e.g. 185lbs, bodyweight)",
			Destination: &entry.Weight,
		},
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Session date YYYY-MM-DD (default today)",
			Destination: &entry.Date,
		},
		&cli.StringFlag{
			Name:        "day",
			Usage:       "Weekday of the session, resolved to the most recent one",
			Destination: &day,
		},
		&cli.StringFlag{
			Name:        "notes",
			Usage:       "Free-form notes",
			Destination: &entry.Notes,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "add",
		Usage: "Record one exercise entry",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			resolver, err := cfg.newResolver()
			if err != nil {
				return err
			}

			if entry.Date != "" || day != "" {
				res, ok := resolver.Resolve(entry.Date, day)
				if !ok {
					return goerr.New("could not resolve date", goerr.V("date", entry.Date), goerr.V("day", day))
				}
				entry.Date = res.DateString
			} else {
				entry.Date = resolver.Today().DateString
			}
			entry.Sets = int(sets)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.InsertLog(ctx, &entry); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(c.Root().Writer, "✓ Logged %s %s on %s\n",
				entry.Exercise, formatEntry(&entry), entry.Date)
			return nil
		},
	}
}

func logListCommand() *cli.Command {
	var (
		cfg   config
		date  string
		day   string
		limit int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Only entries on this date (YYYY-MM-DD)",
			Destination: &date,
		},
		&cli.StringFlag{
			Name:        "day",
			Usage:       "Only entries on the most recent such weekday",
			Destination: &day,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of entries",
			Value:       20,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List logged entries, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			if date != "" || day != "" {
				resolver, err := cfg.newResolver()
				if err != nil {
					return err
				}
				res, ok := resolver.Resolve(date, day)
				if !ok {
					return goerr.New("could not resolve date", goerr.V("date", date), goerr.V("day", day))
				}
				date = res.DateString
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			entries, err := repo.ListLogs(ctx, date, int(limit))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(entries) == 0 {
				fmt.Fprintln(w, "No entries found.")
				return nil
			}

			faint := color.New(color.Faint)
			for _, e := range entries {
				notes := ""
				if e.Notes != "" {
					notes = faint.Sprintf(" (%s)", e.Notes)
				}
				fmt.Fprintf(w, "%s %s %s%s\n", faint.Sprint(e.Date), e.Exercise, formatEntry(e), notes)
			}
			return nil
		},
	}
}

func formatEntry(e *model.LogEntry) string {
	var b strings.Builder
	if e.Sets > 0 {
		fmt.Fprintf(&b, "%dx", e.Sets)
	}
	b.WriteString(e.Reps)
	if e.Weight != "" {
		b.WriteString("@")
		b.WriteString(e.Weight)
	}
	return b.String()
}
