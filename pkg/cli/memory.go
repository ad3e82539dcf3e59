package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect or edit what the assistant remembers",
		Commands: []*cli.Command{
			memoryPinCommand(),
			memoryFactsCommand(),
			memorySearchCommand(),
		},
	}
}

func memoryPinCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "pin",
		Usage:     "Store a durable fact",
		ArgsUsage: "<key> <value>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			args := c.Args().Slice()
			if len(args) < 2 {
				return goerr.New("key and value are required")
			}
			key := args[0]
			value := strings.Join(args[1:], " ")

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := memory.New(repo).SetPinnedFact(ctx, key, value); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(c.Root().Writer, "✓ Pinned %s\n", key)
			return nil
		},
	}
}

func memoryFactsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "facts",
		Usage: "List pinned facts",
		Flags: globalFlags(&cfg),
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

			w := c.Root().Writer
			facts := memory.New(repo).PinnedFacts(ctx)
			if len(facts) == 0 {
				fmt.Fprintln(w, "No pinned facts.")
				return nil
			}
			for _, f := range facts {
				fmt.Fprintf(w, "%s: %s\n", color.CyanString(f.Key), f.Value)
			}
			return nil
		},
	}
}

func memorySearchCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of results",
			Value:       5,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Keyword search over past conversation",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			w := c.Root().Writer
			episodes := memory.New(repo).Search(ctx, query, int(limit))
			if len(episodes) == 0 {
				fmt.Fprintln(w, "No matches.")
				return nil
			}
			faint := color.New(color.Faint)
			for _, e := range episodes {
				fmt.Fprintf(w, "%s %s %s\n", faint.Sprint(e.CreatedAt.Format("2006-01-02 15:04")), e.Role, e.Text)
			}
			return nil
		},
	}
}
