package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loopwork-ai/artisan-mcp/internal"
)

// Config represents the configuration for the artisan-mcp server
type Config struct {
	// Server holds settings reported to and enforced on MCP clients
	Server ServerConfig `yaml:"server"`

	// DisabledTools lists tools that are not registered
	DisabledTools []string `yaml:"disabledTools"`

	// Values is the project configuration shared with tools, e.g. database
	// credentials and log paths. It is not interpreted by the server.
	Values map[string]any `yaml:"values"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Instructions string        `yaml:"instructions,omitempty"`
	CallTimeout  time.Duration `yaml:"callTimeout,omitempty"`
}

// DefaultConfig returns a configuration with every tool enabled and no values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "artisan-mcp",
			Version: "dev",
		},
		DisabledTools: []string{},
		Values:        map[string]any{},
	}
}

// LoadFile loads configuration from a file. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load loads YAML (or JSON) configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	config := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config data: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if config.Values == nil {
		config.Values = map[string]any{}
	}
	if config.Server.CallTimeout < 0 {
		return nil, fmt.Errorf("server.callTimeout cannot be negative: %s", config.Server.CallTimeout)
	}

	return config, nil
}

// IsToolDisabled checks if a tool is in the disabled list
func (c *Config) IsToolDisabled(name string) bool {
	for _, disabled := range c.DisabledTools {
		if disabled == name {
			return true
		}
	}
	return false
}

// Lookup returns the value at a dotted key such as "database.driver".
// A literal key containing dots takes precedence over a nested path.
func (c *Config) Lookup(key string) (any, bool) {
	return lookup(c.Values, key)
}

func lookup(values map[string]any, key string) (any, bool) {
	if v, ok := values[key]; ok {
		return v, true
	}

	head, rest, found := strings.Cut(key, ".")
	for found {
		if child, ok := values[head].(map[string]any); ok {
			if v, ok := lookup(child, rest); ok {
				return v, true
			}
		}
		var next string
		next, rest, found = strings.Cut(rest, ".")
		head = head + "." + next
	}
	return nil, false
}

// Keys returns every leaf key in dotted form, sorted
func (c *Config) Keys() []string {
	var keys []string
	flatten("", c.Values, &keys)
	sort.Strings(keys)
	return keys
}

func flatten(prefix string, values map[string]any, keys *[]string) {
	for k, v := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok && len(child) > 0 {
			flatten(key, child, keys)
			continue
		}
		*keys = append(*keys, key)
	}
}

// ResolveSecrets replaces string values holding 1Password references
// (op://vault/item/field) with the secret they point to.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	return resolveSecrets(ctx, c.Values, "")
}

func resolveSecrets(ctx context.Context, values map[string]any, prefix string) error {
	var errs []error
	for k, v := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			if err := resolveSecrets(ctx, v, key); err != nil {
				errs = append(errs, err)
			}
		case string:
			resolved, isSecret, err := internal.ResolveSecretReference(ctx, v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			if isSecret {
				values[k] = resolved
			}
		}
	}
	return errors.Join(errs...)
}

// Marshal encodes the configuration as "yaml" or "json"
func (c *Config) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		// Go through YAML so durations stay human-readable and reloadable.
		raw, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("error marshaling config: %w", err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("error marshaling config: %w", err)
		}
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error marshaling config: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml", "":
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("error marshaling config: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
}

// Save writes the configuration to a file, as JSON when the path ends in
// .json and as YAML otherwise
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}

	data, err := c.Marshal(format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
