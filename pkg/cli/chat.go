package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/usecase/chat"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the training assistant interactively",
		Flags: allFlags(&cfg),
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

			agent, err := cfg.newAgent(ctx, ws)
			if err != nil {
				return err
			}

			rl, err := readline.New(color.CyanString("you> "))
			if err != nil {
				return goerr.Wrap(err, "failed to start line editor")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Chat session started. Type 'exit' to quit.\n")

			var history []model.Message
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" || message == "quit" {
					break
				}
				if message == "" {
					continue
				}

				res := runWithSpinner(ctx, agent, chat.Request{Message: message, History: history})
				printResult(w, res)

				history = append(history,
					model.Message{Role: model.RoleUser, Text: message},
					model.Message{Role: model.RoleAssistant, Text: res.Response},
				)
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

func askCommand() *cli.Command {
	var (
		cfg    config
		asJSON bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the full result including tool results as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a single question and exit",
		ArgsUsage: "<message>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if message == "" {
				return goerr.New("message is required")
			}

			ws, err := cfg.newWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			agent, err := cfg.newAgent(ctx, ws)
			if err != nil {
				return err
			}

			res := agent.Run(ctx, chat.Request{Message: message})
			w := c.Root().Writer
			if asJSON {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return goerr.Wrap(err, "failed to marshal result")
				}
				fmt.Fprintf(w, "%s\n", string(data))
			} else {
				printResult(w, res)
			}

			if !res.Success {
				return goerr.New("agent failed", goerr.V("error", res.Error))
			}
			return nil
		},
	}
}

func runWithSpinner(ctx context.Context, agent *chat.Agent, req chat.Request) *chat.Result {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " thinking..."
	s.Start()
	defer s.Stop()

	return agent.Run(ctx, req)
}

func printResult(w io.Writer, res *chat.Result) {
	faint := color.New(color.Faint)
	if len(res.ToolsUsed) > 0 {
		faint.Fprintf(w, "[tools: %s]\n", strings.Join(res.ToolsUsed, ", "))
	}

	if res.Success {
		fmt.Fprintf(w, "%s %s\n", color.GreenString("spotter>"), res.Response)
	} else {
		fmt.Fprintf(w, "%s %s\n", color.RedString("spotter>"), res.Response)
	}

	if res.Warning != "" {
		color.New(color.FgYellow).Fprintf(w, "⚠ %s\n", res.Warning)
	}
}
