package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is a named capability that can be invoked through tools/call.
//
// Execute receives the call arguments and returns a ToolResult describing
// the outcome. Domain failures belong in the result; a returned error is
// treated as a fault and reported as a JSON-RPC internal error.
type Tool interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	ReadOnly() bool
	Execute(ctx context.Context, args map[string]any) (*ToolResult, error)
}

// ExecuteFunc is the signature of a function-backed tool
type ExecuteFunc func(ctx context.Context, args map[string]any) (*ToolResult, error)

// ToolOption configures a function-backed tool
type ToolOption func(*funcTool)

// WithSideEffects marks a tool as able to modify state
func WithSideEffects() ToolOption {
	return func(t *funcTool) {
		t.readOnly = false
	}
}

type funcTool struct {
	name        string
	description string
	schema      *jsonschema.Schema
	readOnly    bool
	fn          ExecuteFunc
}

// NewTool creates a Tool from a function. Tools are read-only unless
// WithSideEffects is given.
func NewTool(name, description string, schema *jsonschema.Schema, fn ExecuteFunc, opts ...ToolOption) Tool {
	t := &funcTool{
		name:        name,
		description: description,
		schema:      schema,
		readOnly:    true,
		fn:          fn,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }
func (t *funcTool) ReadOnly() bool      { return t.readOnly }

func (t *funcTool) InputSchema() *jsonschema.Schema {
	if t.schema == nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return t.schema
}

func (t *funcTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	return t.fn(ctx, args)
}
