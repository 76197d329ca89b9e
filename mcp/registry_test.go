package mcp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedTool(name, description string) Tool {
	return NewTool(name, description, nil, func(context.Context, map[string]any) (*ToolResult, error) {
		return OK(name, description, nil), nil
	})
}

func toolNames(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name())
	}
	return names
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	registry := NewRegistry(namedTool("b", ""), namedTool("a", ""))
	registry.Register(namedTool("c", ""))

	want := []string{"b", "a", "c"}
	if diff := cmp.Diff(want, toolNames(registry.All())); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, registry.Len())
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	registry := NewRegistry()
	registry.Register(namedTool("GetConfig", "first"))
	registry.Register(namedTool("Other", ""))
	registry.Register(namedTool("GetConfig", "second"))

	assert.Equal(t, 2, registry.Len())

	tool, ok := registry.Get("GetConfig")
	require.True(t, ok)
	assert.Equal(t, "second", tool.Description())

	all := registry.All()
	if diff := cmp.Diff([]string{"GetConfig", "Other"}, toolNames(all)); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "second", all[0].Description())
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry(namedTool("GetConfig", ""))

	_, ok := registry.Get("DoesNotExist")
	assert.False(t, ok)

	_, ok = registry.Get("getconfig")
	assert.False(t, ok)
}

func TestNewTool_Defaults(t *testing.T) {
	tool := namedTool("x", "desc")
	assert.True(t, tool.ReadOnly())
	assert.Equal(t, "object", tool.InputSchema().Type)

	writer := NewTool("w", "", nil, nil, WithSideEffects())
	assert.False(t, writer.ReadOnly())
}
