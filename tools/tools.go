// Package tools provides the project tools served over MCP and the CLI.
//
// Every tool validates its arguments against its input schema and reports
// domain problems inside the returned ToolResult. A returned error means the
// tool could not produce a result at all.
package tools

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/artisan-mcp/internal/config"
	"github.com/loopwork-ai/artisan-mcp/mcp"
)

// Options holds what tools need from their environment
type Options struct {
	// Config is the loaded project configuration
	Config *config.Config
	// BaseDir is the project root; relative paths resolve against it
	BaseDir string
	// HTTPClient is used by network tools
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.BaseDir == "" {
		o.BaseDir = "."
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// All returns every tool, in the order they are listed to clients
func All(opts Options) []mcp.Tool {
	opts = opts.withDefaults()
	return []mcp.Tool{
		NewGetConfig(opts),
		NewListConfigKeys(opts),
		NewDescribeApiSpec(opts),
		NewProbeUrl(opts),
		NewTailLog(opts),
		NewExportConfig(opts),
	}
}

// Enabled returns the tools not disabled in the configuration
func Enabled(opts Options) []mcp.Tool {
	opts = opts.withDefaults()
	var enabled []mcp.Tool
	for _, tool := range All(opts) {
		if opts.Config.IsToolDisabled(tool.Name()) {
			opts.Logger.Debug("tool disabled", "tool", tool.Name())
			continue
		}
		enabled = append(enabled, tool)
	}
	return enabled
}

func objectSchema(required []string, properties map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func integerProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func booleanProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func enumProp(description string, values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Description: description, Enum: enum}
}

// validateArgs checks args against schema. It returns a failed result when
// the arguments do not conform.
func validateArgs(tool string, schema *jsonschema.Schema, args map[string]any) *mcp.ToolResult {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return mcp.Fail(tool, "input schema is invalid", mcp.ErrorEntry{Code: "invalid_schema", Message: err.Error()})
	}
	if err := resolved.Validate(args); err != nil {
		return mcp.Fail(tool, "invalid arguments", mcp.ErrorEntry{Code: "invalid_arguments", Message: err.Error()})
	}
	return nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	s, ok := args[key].(string)
	return s, ok && s != ""
}

func boolArg(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

// configString returns a string config value, or def when unset
func configString(cfg *config.Config, key, def string) string {
	if v, ok := cfg.Lookup(key); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// resolvePath resolves path against base
func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// withinBase reports whether path lies inside base
func withinBase(base, path string) bool {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absBase, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var sensitiveSegments = []string{"password", "secret", "token", "apikey", "api_key", "private_key"}

func isSensitiveKey(key string) bool {
	last := strings.ToLower(key)
	if i := strings.LastIndex(last, "."); i >= 0 {
		last = last[i+1:]
	}
	for _, s := range sensitiveSegments {
		if strings.Contains(last, s) {
			return true
		}
	}
	return false
}

const maskedValue = "********"

// maskValues returns a copy of values with sensitive leaves masked
func maskValues(values map[string]any, prefix string) map[string]any {
	masked := make(map[string]any, len(values))
	for k, v := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			masked[k] = maskValues(v, key)
		default:
			if isSensitiveKey(key) {
				masked[k] = maskedValue
			} else {
				masked[k] = v
			}
		}
	}
	return masked
}

func summarizeValue(v any) string {
	switch v := v.(type) {
	case map[string]any:
		return fmt.Sprintf("section with %d keys", len(v))
	case []any:
		return fmt.Sprintf("list of %d items", len(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
