package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/artisan-mcp/mcp"
)

const defaultExportPath = "artisan-mcp.yaml"

// NewExportConfig creates the ExportConfig tool. It is the only tool that
// writes to disk, and it defaults to a dry run.
func NewExportConfig(opts Options) mcp.Tool {
	opts = opts.withDefaults()
	schema := objectSchema(nil, map[string]*jsonschema.Schema{
		"path":      stringProp("Destination path relative to the project root (default " + defaultExportPath + ")"),
		"format":    enumProp("Output format; inferred from the path extension when omitted", "yaml", "json"),
		"dry_run":   booleanProp("Render the export without writing it (default true)"),
		"overwrite": booleanProp("Replace the destination if it exists"),
		"reveal":    booleanProp("Write sensitive values unmasked"),
	})

	return mcp.NewTool("ExportConfig", "Write the effective configuration to a YAML or JSON file inside the project.", schema,
		func(ctx context.Context, args map[string]any) (*mcp.ToolResult, error) {
			const name = "ExportConfig"
			if invalid := validateArgs(name, schema, args); invalid != nil {
				return invalid, nil
			}

			path, ok := stringArg(args, "path")
			if !ok {
				path = defaultExportPath
			}
			format, ok := stringArg(args, "format")
			if !ok {
				format = "yaml"
				if strings.EqualFold(filepath.Ext(path), ".json") {
					format = "json"
				}
			}
			dryRun := boolArg(args, "dry_run", true)
			overwrite := boolArg(args, "overwrite", false)
			reveal := boolArg(args, "reveal", false)

			full := resolvePath(opts.BaseDir, path)
			if !withinBase(opts.BaseDir, full) {
				return mcp.Fail(name, "destination is outside the project", mcp.ErrorEntry{
					Code:    "path_outside_project",
					Message: fmt.Sprintf("%s is not inside %s", path, opts.BaseDir),
				}).WithMeta("writes_performed", 0), nil
			}

			export := *opts.Config
			if !reveal {
				export.Values = maskValues(opts.Config.Values, "")
			}
			data, err := export.Marshal(format)
			if err != nil {
				return nil, err
			}

			info, statErr := os.Stat(full)
			exists := statErr == nil
			if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("error checking destination: %w", statErr)
			}
			if exists && info.IsDir() {
				return mcp.Fail(name, fmt.Sprintf("%s is a directory", path), mcp.ErrorEntry{
					Code:    "invalid_destination",
					Message: fmt.Sprintf("%s is a directory", full),
				}).WithMeta("writes_performed", 0), nil
			}

			summaryData := map[string]any{
				"path":    path,
				"format":  format,
				"dry_run": dryRun,
				"masked":  !reveal,
			}

			if dryRun {
				summaryData["content"] = string(data)
				result := mcp.OK(name, fmt.Sprintf("would write %d bytes to %s", len(data), path), summaryData)
				if exists && !overwrite {
					result.WithWarning(fmt.Sprintf("%s exists; pass overwrite to replace it", path))
				}
				return result.WithMeta("writes_performed", 0).WithMeta("bytes", len(data)), nil
			}

			if exists && !overwrite {
				return mcp.Fail(name, fmt.Sprintf("%s already exists", path), mcp.ErrorEntry{
					Code:    "already_exists",
					Message: fmt.Sprintf("%s exists; pass overwrite to replace it", full),
				}).WithMeta("writes_performed", 0), nil
			}

			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := writeExport(full, data); err != nil {
				return nil, err
			}
			opts.Logger.Info("exported configuration", "path", full, "bytes", len(data))

			result := mcp.OK(name, fmt.Sprintf("wrote %d bytes to %s", len(data), path), summaryData)
			if reveal {
				result.WithWarning("sensitive values were written unmasked")
			}
			return result.WithMeta("writes_performed", 1).WithMeta("bytes", len(data)), nil
		}, mcp.WithSideEffects())
}

func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing export: %w", err)
	}
	return nil
}
