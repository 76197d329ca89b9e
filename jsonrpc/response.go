package jsonrpc

import "encoding/json"

// Result is the payload of a successful response
type Result any

// Response represents a JSON-RPC response object
type Response struct {
	Version string `json:"jsonrpc"`
	ID      ID     `json:"id"`
	Result  Result `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// NewResponse creates a new Response object
func NewResponse(id any, result Result, err *Error) Response {
	respID, _ := NewID(id)

	return Response{
		Version: Version,
		ID:      respID,
		Result:  result,
		Error:   err,
	}
}

// IsError reports whether the response carries an error
func (r Response) IsError() bool {
	return r.Error != nil
}

type successEnvelope struct {
	Version string `json:"jsonrpc"`
	ID      ID     `json:"id"`
	Result  Result `json:"result"`
}

type errorEnvelope struct {
	Version string `json:"jsonrpc"`
	ID      ID     `json:"id"`
	Error   *Error `json:"error"`
}

var _ json.Marshaler = Response{}

// MarshalJSON emits exactly one of result or error.
// A success response always carries result, even when it is null.
func (r Response) MarshalJSON() ([]byte, error) {
	version := r.Version
	if version == "" {
		version = Version
	}
	if r.Error != nil {
		return json.Marshal(errorEnvelope{Version: version, ID: r.ID, Error: r.Error})
	}
	return json.Marshal(successEnvelope{Version: version, ID: r.ID, Result: r.Result})
}
