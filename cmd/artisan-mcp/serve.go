package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/artisan-mcp/mcp"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			g, ctx := errgroup.WithContext(ctx)

			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

			g.Go(func() error {
				server, err := newServer(ctx, opts, logger)
				if err != nil {
					return fmt.Errorf("error creating server: %w", err)
				}

				transport := mcp.NewStdioTransport(cmd.InOrStdin(), cmd.OutOrStdout())
				err = server.Serve(ctx, transport)
				if errors.Is(err, context.Canceled) {
					logger.Info("shutting down")
					return nil
				}
				return err
			})

			return g.Wait()
		},
	}
}
