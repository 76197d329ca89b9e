package mcp

import (
	"errors"
	"fmt"
)

// Status is the outcome of a tool invocation
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// ErrorEntry describes one problem reported by a tool
type ErrorEntry struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

// ToolResult is the outcome of one tool invocation, independent of the
// JSON-RPC framing that carries it.
type ToolResult struct {
	Tool     string         `json:"tool"`
	Status   Status         `json:"status"`
	Summary  string         `json:"summary"`
	Data     any            `json:"data,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	Warnings []string       `json:"warnings"`
	Errors   []ErrorEntry   `json:"errors"`
}

// OK returns a successful result
func OK(tool, summary string, data any) *ToolResult {
	return &ToolResult{
		Tool:     tool,
		Status:   StatusOK,
		Summary:  summary,
		Data:     data,
		Warnings: []string{},
		Errors:   []ErrorEntry{},
	}
}

// Warn returns a successful result carrying at least one warning
func Warn(tool, summary string, data any, warnings ...string) *ToolResult {
	r := OK(tool, summary, data)
	for _, w := range warnings {
		r.WithWarning(w)
	}
	return r
}

// Fail returns a result reporting a failed operation
func Fail(tool, summary string, errs ...ErrorEntry) *ToolResult {
	r := OK(tool, summary, nil)
	for _, e := range errs {
		r.WithError(e)
	}
	if len(r.Errors) == 0 {
		r.WithError(ErrorEntry{Message: summary})
	}
	return r
}

// FaultResult is the minimal error envelope for a tool that failed
// without producing a result.
func FaultResult(tool string, err error) *ToolResult {
	return Fail(tool, fmt.Sprintf("%s failed", tool), ErrorEntry{
		Code:    "execution_fault",
		Message: err.Error(),
		Detail:  map[string]any{"type": fmt.Sprintf("%T", err)},
	})
}

// WithMeta sets a meta key
func (r *ToolResult) WithMeta(key string, value any) *ToolResult {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	r.Meta[key] = value
	return r
}

// WithWarning appends a warning. An ok result becomes a warning result.
func (r *ToolResult) WithWarning(msg string) *ToolResult {
	r.Warnings = append(r.Warnings, msg)
	if r.Status == StatusOK || r.Status == "" {
		r.Status = StatusWarning
	}
	return r
}

// WithError appends an error entry and marks the result as failed
func (r *ToolResult) WithError(entry ErrorEntry) *ToolResult {
	r.Errors = append(r.Errors, entry)
	r.Status = StatusError
	return r
}

// Validate checks the envelope invariants
func (r *ToolResult) Validate() error {
	if r == nil {
		return errors.New("result is nil")
	}
	switch r.Status {
	case StatusOK:
		if len(r.Errors) > 0 {
			return errors.New("status ok with errors")
		}
	case StatusWarning:
		if len(r.Warnings) == 0 {
			return errors.New("status warning without warnings")
		}
		if len(r.Errors) > 0 {
			return errors.New("status warning with errors")
		}
	case StatusError:
		if len(r.Errors) == 0 {
			return errors.New("status error without errors")
		}
	default:
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}
