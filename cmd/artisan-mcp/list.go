package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loopwork-ai/artisan-mcp/mcp"
)

func newToolsCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the enabled tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
			server, err := newServer(cmd.Context(), opts, logger)
			if err != nil {
				return fmt.Errorf("error creating server: %w", err)
			}

			if asJSON {
				return listJSON(cmd, server)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tREAD-ONLY\tDESCRIPTION")
			for _, tool := range server.Registry().All() {
				fmt.Fprintf(w, "%s\t%t\t%s\n", tool.Name(), tool.ReadOnly(), tool.Description())
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tools/list result as JSON")

	return cmd
}

// listJSON prints exactly what an initialized client receives from tools/list
func listJSON(cmd *cobra.Command, server *mcp.Server) error {
	var result mcp.ToolsListResponse
	if err := request(cmd.Context(), server, "tools/list", nil, &result); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
