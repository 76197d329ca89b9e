package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message is a decoded JSON-RPC envelope of any kind
type Message struct {
	Version string
	ID      ID
	Method  string
	Params  json.RawMessage
	Result  json.RawMessage
	Error   *Error

	hasMethod bool
}

// IsRequest reports whether the message is a request expecting a response
func (m Message) IsRequest() bool {
	return m.hasMethod && !m.ID.IsNil()
}

// IsNotification reports whether the message is a notification
func (m Message) IsNotification() bool {
	return m.hasMethod && m.ID.IsNil()
}

// IsResponse reports whether the message is a response
func (m Message) IsResponse() bool {
	return !m.hasMethod && ((m.Result != nil) != (m.Error != nil))
}

// Request converts the message to a Request
func (m Message) Request() Request {
	return Request{
		Version: m.Version,
		Method:  m.Method,
		Params:  m.Params,
		ID:      m.ID,
	}
}

// DecodeError is returned by Decode for input that is not a usable message
type DecodeError struct {
	Reason string
	// ID is the request id, when one could be recovered
	ID    ID
	HasID bool
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var emptyObject = json.RawMessage(`{}`)

// Decode parses a single JSON-RPC message
func Decode(data []byte) (Message, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, &DecodeError{Reason: "malformed JSON", Err: err}
	}

	var fields map[string]json.RawMessage
	if _, ok := raw.(map[string]any); !ok {
		return Message{}, &DecodeError{Reason: "not a JSON object"}
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Message{}, &DecodeError{Reason: "not a JSON object", Err: err}
	}

	var msg Message
	if v, ok := fields["jsonrpc"]; ok {
		// Lenient clients send odd versions; keep whatever string is there.
		_ = json.Unmarshal(v, &msg.Version)
	}

	if v, ok := fields["id"]; ok {
		if err := json.Unmarshal(v, &msg.ID); err != nil {
			return Message{}, &DecodeError{Reason: "invalid id", Err: err}
		}
	}
	hasID := !msg.ID.IsNil()

	if v, ok := fields["method"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &msg.Method); err != nil {
			return Message{}, &DecodeError{Reason: "method must be a string", ID: msg.ID, HasID: hasID, Err: err}
		}
		msg.hasMethod = true
	}

	if v, ok := fields["params"]; ok && !isNull(v) {
		msg.Params = v
	} else if msg.hasMethod {
		msg.Params = emptyObject
	}

	if v, ok := fields["result"]; ok {
		msg.Result = v
	}
	if v, ok := fields["error"]; ok && !isNull(v) {
		var rpcErr Error
		if err := json.Unmarshal(v, &rpcErr); err != nil {
			return Message{}, &DecodeError{Reason: "invalid error object", ID: msg.ID, HasID: hasID, Err: err}
		}
		msg.Error = &rpcErr
	}

	if !msg.hasMethod && msg.Result == nil && msg.Error == nil {
		return Message{}, &DecodeError{Reason: "missing method", ID: msg.ID, HasID: hasID}
	}

	return msg, nil
}

// Encode serializes a response as a single line of JSON without a trailing newline
func Encode(response Response) ([]byte, error) {
	data, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("error encoding response: %w", err)
	}
	return data, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
