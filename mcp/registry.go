package mcp

import "sync"

// Registry maps tool names to tools.
//
// Registering a name twice replaces the earlier tool; the name keeps the
// position of its first registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding tools
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, tool := range tools {
		r.Register(tool)
	}
	return r
}

// Register adds tool under tool.Name(), replacing any existing entry
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get returns the tool registered under name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// All returns every registered tool in registration order
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}
