package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/artisan-mcp/internal/config"
	"github.com/loopwork-ai/artisan-mcp/mcp"
)

// GetConfig reads one value from the project configuration
type GetConfig struct {
	config  *config.Config
	baseDir string
	schema  *jsonschema.Schema
}

var _ mcp.Tool = &GetConfig{}

// NewGetConfig creates the GetConfig tool
func NewGetConfig(opts Options) *GetConfig {
	opts = opts.withDefaults()
	return &GetConfig{
		config:  opts.Config,
		baseDir: opts.BaseDir,
		schema: objectSchema([]string{"key"}, map[string]*jsonschema.Schema{
			"key":     stringProp(`Dotted configuration key, e.g. "database.driver"`),
			"default": {Description: "Value to return when the key is not set"},
			"reveal":  booleanProp("Return sensitive values (passwords, tokens) unmasked"),
		}),
	}
}

func (t *GetConfig) Name() string { return "GetConfig" }

func (t *GetConfig) Description() string {
	return "Get the value of a configuration key using dot notation, with an optional default."
}

func (t *GetConfig) InputSchema() *jsonschema.Schema { return t.schema }

func (t *GetConfig) ReadOnly() bool { return true }

func (t *GetConfig) Execute(_ context.Context, args map[string]any) (*mcp.ToolResult, error) {
	if invalid := validateArgs(t.Name(), t.schema, args); invalid != nil {
		return invalid, nil
	}

	key, _ := stringArg(args, "key")
	reveal := boolArg(args, "reveal", false)

	value, found := t.config.Lookup(key)
	if !found {
		def, hasDefault := args["default"]
		if !hasDefault {
			return mcp.Fail(t.Name(), fmt.Sprintf("%s is not set", key), mcp.ErrorEntry{
				Code:    "not_found",
				Message: fmt.Sprintf("configuration key %q is not set and no default was given", key),
			}).WithMeta("base_path", t.baseDir), nil
		}
		return mcp.Warn(t.Name(), fmt.Sprintf("%s is not set, using default", key),
			map[string]any{"key": key, "value": def, "source": "default"},
			fmt.Sprintf("configuration key %q is not set; returned the default", key),
		).WithMeta("base_path", t.baseDir), nil
	}

	masked := false
	if !reveal {
		switch v := value.(type) {
		case map[string]any:
			value = maskValues(v, key)
		default:
			if isSensitiveKey(key) {
				value = maskedValue
				masked = true
			}
		}
	}

	result := mcp.OK(t.Name(), fmt.Sprintf("%s = %s", key, summarizeValue(value)),
		map[string]any{"key": key, "value": value, "source": "config"},
	).WithMeta("base_path", t.baseDir)
	if masked {
		result.WithMeta("masked", true)
	}
	return result, nil
}

// NewListConfigKeys creates the ListConfigKeys tool
func NewListConfigKeys(opts Options) mcp.Tool {
	opts = opts.withDefaults()
	cfg := opts.Config
	schema := objectSchema(nil, map[string]*jsonschema.Schema{
		"prefix": stringProp(`Only list keys under this prefix, e.g. "database"`),
	})

	return mcp.NewTool("ListConfigKeys", "List every configuration key in dot notation.", schema,
		func(_ context.Context, args map[string]any) (*mcp.ToolResult, error) {
			if invalid := validateArgs("ListConfigKeys", schema, args); invalid != nil {
				return invalid, nil
			}

			prefix, _ := stringArg(args, "prefix")
			keys := []string{}
			for _, key := range cfg.Keys() {
				if prefix == "" || key == prefix || strings.HasPrefix(key, prefix+".") {
					keys = append(keys, key)
				}
			}

			data := map[string]any{"keys": keys, "count": len(keys)}
			if len(keys) == 0 {
				msg := "configuration is empty"
				if prefix != "" {
					msg = fmt.Sprintf("no configuration keys under %q", prefix)
				}
				return mcp.Warn("ListConfigKeys", "no keys found", data, msg), nil
			}
			return mcp.OK("ListConfigKeys", fmt.Sprintf("%d keys", len(keys)), data), nil
		})
}
