package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is overridden at build time.
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "spotter",
		Usage:   "Conversational workout plan and training log agent",
		Version: Version,
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			planCommand(),
			logCommand(),
			compareCommand(),
			memoryCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
