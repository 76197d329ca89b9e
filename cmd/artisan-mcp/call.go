package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loopwork-ai/artisan-mcp/jsonrpc"
	"github.com/loopwork-ai/artisan-mcp/mcp"
)

// errReportedFailure is returned when a tool reports an error status and
// --fail-on-error is set
var errReportedFailure = errors.New("tool reported an error")

func newCallCmd(opts *options) *cobra.Command {
	var failOnError bool

	cmd := &cobra.Command{
		Use:   "call <tool> [arguments]",
		Short: "Run a tool and print its result",
		Long: `Run a tool directly and print its result envelope as JSON.

Arguments are a JSON object, given inline or as "-" to read from stdin.
The command exits non-zero when the tool fails to produce a result. A result
with status "error" exits non-zero only with --fail-on-error.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := map[string]any{}
			if len(args) == 2 {
				raw := []byte(args[1])
				if args[1] == "-" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("error reading arguments: %w", err)
					}
					raw = data
				}
				if strings.TrimSpace(string(raw)) != "" {
					if err := json.Unmarshal(raw, &toolArgs); err != nil {
						return fmt.Errorf("arguments must be a JSON object: %w", err)
					}
				}
			}

			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
			server, err := newServer(cmd.Context(), opts, logger)
			if err != nil {
				return fmt.Errorf("error creating server: %w", err)
			}

			result, err := server.CallTool(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return fmt.Errorf("error calling %s: %w", args[0], err)
			}

			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}

			if failOnError && result.Status == mcp.StatusError {
				return fmt.Errorf("%w: %s", errReportedFailure, result.Summary)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, `Exit non-zero when the result status is "error"`)

	return cmd
}

// request sends one request through the server's dispatcher, initializing
// it first, and decodes the result into out
func request(ctx context.Context, server *mcp.Server, method string, params any, out any) error {
	if !server.Initialized() {
		response := server.Handle(ctx, jsonrpc.NewRequest("initialize", json.RawMessage(`{}`), 0))
		if response.Error != nil {
			return response.Error
		}
	}

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("error encoding params: %w", err)
		}
		raw = data
	}

	response := server.Handle(ctx, jsonrpc.NewRequest(method, raw, 1))
	if response.Error != nil {
		return response.Error
	}

	data, err := json.Marshal(response.Result)
	if err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return json.Unmarshal(data, out)
}

// writeJSON writes v as JSON, indented when w is a terminal
func writeJSON(w io.Writer, v any) error {
	var (
		data []byte
		err  error
	)
	if isTerminal(w) {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
