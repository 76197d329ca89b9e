package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopwork-ai/artisan-mcp/internal"
	"github.com/loopwork-ai/artisan-mcp/internal/config"
	"github.com/loopwork-ai/artisan-mcp/mcp"
	"github.com/loopwork-ai/artisan-mcp/tools"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options holds the persistent flags shared by every command
type options struct {
	configPath  string
	baseDir     string
	verbose     bool
	retries     int
	timeout     time.Duration
	callTimeout time.Duration
	rps         int
	headers     []string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "artisan-mcp",
		Short: "An MCP server exposing project tools over stdio",
		Long: `artisan-mcp serves a set of project tools to MCP clients over stdio.
It reads newline-delimited JSON-RPC 2.0 requests from stdin and writes one
response per request to stdout. Logs go to stderr.

The tools can also be listed and run directly from the command line.`,
		SilenceUsage: true,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date),
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "artisan-mcp.yaml", "Configuration file (YAML or JSON)")
	flags.StringVar(&opts.baseDir, "base-dir", ".", "Project root that tool paths resolve against")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	flags.IntVar(&opts.retries, "retries", 3, "Maximum number of retries for failed HTTP requests")
	flags.DurationVar(&opts.timeout, "timeout", 60*time.Second, "HTTP request timeout")
	flags.DurationVar(&opts.callTimeout, "call-timeout", 0, "Maximum duration of a tool call (0 uses the configured value)")
	flags.IntVarP(&opts.rps, "rps", "r", 0, "Maximum HTTP requests per second (0 for no limit)")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, `Extra HTTP header for network tools, as "Name: value" (repeatable)`)

	rootCmd.AddCommand(
		newServeCmd(opts),
		newToolsCmd(opts),
		newCallCmd(opts),
	)

	return rootCmd
}

// newLogger returns a debug logger writing to w when verbose is set and a
// discarding logger otherwise
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// newServer loads the configuration and builds a server with every
// enabled tool registered
func newServer(ctx context.Context, opts *options, logger *slog.Logger) (*mcp.Server, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	baseDir, err := filepath.Abs(opts.baseDir)
	if err != nil {
		return nil, fmt.Errorf("error resolving base directory: %w", err)
	}

	headers, err := internal.ParseHeaders(opts.headers)
	if err != nil {
		return nil, err
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", fmt.Sprintf("artisan-mcp/%s", version))
	}

	client := internal.NewHTTPClient(internal.ClientOptions{
		Retries: opts.retries,
		Timeout: opts.timeout,
		RPS:     opts.rps,
		Headers: headers,
		Logger:  logger,
	})

	callTimeout := cfg.Server.CallTimeout
	if opts.callTimeout > 0 {
		callTimeout = opts.callTimeout
	}

	registry := mcp.NewRegistry(tools.Enabled(tools.Options{
		Config:     cfg,
		BaseDir:    baseDir,
		HTTPClient: client,
		Logger:     logger,
	})...)

	logger.Debug("loaded configuration", "path", opts.configPath, "baseDir", baseDir, "tools", registry.Len())

	return mcp.NewServer(
		mcp.WithRegistry(registry),
		mcp.WithServerInfo(cfg.Server.Name, cfg.Server.Version),
		mcp.WithInstructions(cfg.Server.Instructions),
		mcp.WithConfig(cfg.Values),
		mcp.WithLogger(logger),
		mcp.WithCallTimeout(callTimeout),
	)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
