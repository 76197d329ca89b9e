package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Version is the Model Context Protocol version
const Version = "2024-11-05"

// Role represents the sender or recipient of messages and data in a conversation
type Role string

const (
	// RoleUser represents the user
	RoleUser Role = "user"

	// RoleAssistant represents the assistant
	RoleAssistant Role = "assistant"
)

// Content types
type (
	// Annotations represents optional annotations for objects
	Annotations struct {
		// Describes who the intended customer of this object or data is
		Audience []Role `json:"audience,omitempty"`
		// Describes how important this data is for operating the server (0-1)
		Priority *float64 `json:"priority,omitempty"`
	}

	// Content represents a content block in a tool call result
	Content struct {
		Type        string       `json:"type"`
		Text        string       `json:"text,omitempty"`
		Annotations *Annotations `json:"annotations,omitempty"`
	}
)

// NewTextContent creates a new text Content with the given text and optional annotations
func NewTextContent(text string, audience []Role, priority *float64) Content {
	content := Content{
		Type: "text",
		Text: text,
	}
	if len(audience) > 0 || priority != nil {
		content.Annotations = &Annotations{
			Audience: audience,
			Priority: priority,
		}
	}
	return content
}

// Initialize
type (
	// ToolsCapability describes the server's tool support
	ToolsCapability struct {
		ListChanged bool `json:"listChanged"`
	}

	// ServerCapabilities represents the server's supported capabilities
	ServerCapabilities struct {
		Experimental map[string]any  `json:"experimental,omitempty"`
		Tools        *ToolsCapability `json:"tools,omitempty"`
	}

	// ServerInfo represents information about an MCP implementation
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	// InitializeRequest represents a request to initialize the server
	InitializeRequest struct {
		ProtocolVersion string         `json:"protocolVersion,omitempty"`
		Capabilities    map[string]any `json:"capabilities,omitempty"`
		ClientInfo      *ServerInfo    `json:"clientInfo,omitempty"`
	}

	// InitializeResponse represents the server's response to an initialize request
	InitializeResponse struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ServerCapabilities `json:"capabilities"`
		ServerInfo      ServerInfo         `json:"serverInfo"`
		Instructions    string             `json:"instructions,omitempty"`
	}
)

// Tools
type (
	// ToolInfo describes a single tool in the tools/list response
	ToolInfo struct {
		Name        string             `json:"name"`
		Description string             `json:"description,omitempty"`
		InputSchema *jsonschema.Schema `json:"inputSchema"`
		Annotations *ToolAnnotations   `json:"annotations,omitempty"`
	}

	// ToolAnnotations carries hints for client-side trust decisions
	ToolAnnotations struct {
		ReadOnlyHint bool `json:"readOnlyHint"`
	}

	// ToolsListResponse represents the response for the tools/list method
	ToolsListResponse struct {
		Tools []ToolInfo `json:"tools"`
	}

	// ToolCallRequest represents a request to call a specific tool.
	// Arguments are decoded only once the tool is known to exist.
	ToolCallRequest struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	// ToolCallResponse represents the response from a tool call
	ToolCallResponse struct {
		Content           []Content   `json:"content"`
		StructuredContent *ToolResult `json:"structuredContent,omitempty"`
		IsError           bool        `json:"isError,omitempty"`
	}
)

// PingResponse represents the response for ping
type PingResponse struct{}
