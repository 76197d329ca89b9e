package jsonrpc

import "encoding/json"

// Version is the JSON-RPC protocol version
const Version = "2.0"

// Request represents a JSON-RPC request or notification
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// NewRequest creates a new Request object
func NewRequest(method string, params json.RawMessage, id any) Request {
	reqID, _ := NewID(id)

	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
		ID:      reqID,
	}
}

// NewNotification creates a Request without an ID
func NewNotification(method string, params json.RawMessage) Request {
	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
	}
}

// IsNotification reports whether the request expects no response
func (r Request) IsNotification() bool {
	return r.ID.IsNil()
}
