package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/service/mcp"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("SPOTTER_MCP_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, proposalFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose the workout tools as an MCP server",
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

			server, err := mcp.NewServer(ws.registry, c.Root().Version)
			if err != nil {
				return err
			}
			if addr == "" {
				return server.RunStdio(ctx)
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.HTTPHandler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
			}()

			logging.From(ctx).Info("serving MCP over HTTP", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "failed to serve MCP", goerr.V("addr", addr))
			}
			return nil
		},
	}
}
