package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/artisan-mcp/mcp"
)

const (
	defaultLogPath  = "storage/logs/laravel.log"
	defaultLogLines = 50
	maxLogLines     = 1000
)

// logLevel matches the "[date] env.LEVEL:" prefix of a log entry
var logLevel = regexp.MustCompile(`\] [\w-]+\.(\w+):`)

// NewTailLog creates the TailLog tool
func NewTailLog(opts Options) mcp.Tool {
	opts = opts.withDefaults()
	lines := integerProp(fmt.Sprintf("Number of lines to return (1-%d, default %d)", maxLogLines, defaultLogLines))
	minimum, maximum := float64(1), float64(maxLogLines)
	lines.Minimum = &minimum
	lines.Maximum = &maximum
	schema := objectSchema(nil, map[string]*jsonschema.Schema{
		"path":  stringProp("Log file path relative to the project root; defaults to logging.path or " + defaultLogPath),
		"lines": lines,
	})

	return mcp.NewTool("TailLog", "Read the last lines of the application log and count entries by level.", schema,
		func(ctx context.Context, args map[string]any) (*mcp.ToolResult, error) {
			const name = "TailLog"
			if invalid := validateArgs(name, schema, args); invalid != nil {
				return invalid, nil
			}

			path, ok := stringArg(args, "path")
			if !ok {
				path = configString(opts.Config, "logging.path", defaultLogPath)
			}
			n := intArg(args, "lines", defaultLogLines)
			full := resolvePath(opts.BaseDir, path)

			tail, levels, err := tailFile(ctx, full, n)
			if errors.Is(err, fs.ErrNotExist) {
				return mcp.Fail(name, fmt.Sprintf("%s does not exist", path), mcp.ErrorEntry{
					Code:    "not_found",
					Message: fmt.Sprintf("log file %s does not exist", full),
				}), nil
			}
			if err != nil {
				return nil, err
			}

			data := map[string]any{
				"path":   path,
				"lines":  tail,
				"count":  len(tail),
				"levels": levels,
			}
			if len(tail) == 0 {
				return mcp.Warn(name, fmt.Sprintf("%s is empty", path), data, "log file is empty"), nil
			}

			result := mcp.OK(name, fmt.Sprintf("last %d lines of %s", len(tail), path), data)
			if errs := levels["error"] + levels["critical"] + levels["alert"] + levels["emergency"]; errs > 0 {
				result.WithWarning(fmt.Sprintf("%d error entries in the returned lines", errs))
			}
			return result.WithMeta("requested_lines", n), nil
		})
}

// tailFile returns the last n lines of the file at path and the number of
// entries per lowercased level among them
func tailFile(ctx context.Context, path string, n int) ([]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	next := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		line := scanner.Text()
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		ring[next] = line
		next = (next + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading log file: %w", err)
	}

	tail := append(ring[next:len(ring):len(ring)], ring[:next]...)
	levels := make(map[string]int)
	for _, line := range tail {
		if m := logLevel.FindStringSubmatch(line); m != nil {
			levels[strings.ToLower(m[1])]++
		}
	}
	return tail, levels, nil
}
