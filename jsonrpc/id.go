package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ID represents a JSON-RPC ID, which is a string, a number or null.
// The zero value is the null ID.
type ID struct {
	value any
}

// NewID creates a JSON-RPC ID from a string, number or nil
func NewID(id any) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case nil:
		return ID{}, nil
	case string:
		return ID{value: v}, nil
	case int:
		return ID{value: v}, nil
	case int32:
		return ID{value: int(v)}, nil
	case int64:
		return ID{value: int(v)}, nil
	case float64:
		return numberID(v), nil
	case json.Number:
		return literalID(v)
	case float32:
		return numberID(float64(v)), nil
	default:
		return ID{}, fmt.Errorf("id must be string, number or null, got %T", id)
	}
}

func numberID(f float64) ID {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ID{value: int(f)}
	}
	return ID{value: f}
}

// literalID keeps integers that fit in an int exactly. Anything else keeps
// its literal so it is echoed back unchanged.
func literalID(n json.Number) (ID, error) {
	if i, err := strconv.ParseInt(string(n), 10, 0); err == nil {
		return ID{value: int(i)}, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil && !isRangeError(err) {
		return ID{}, fmt.Errorf("invalid numeric id %q", n)
	}
	if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ID{value: int(f)}, nil
	}
	return ID{value: n}, nil
}

func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

func (id ID) Value() any {
	return id.value
}

func (id ID) IsNil() bool {
	return id.value == nil
}

// Equal compares two IDs for equality
func (id ID) Equal(other any) bool {
	switch v := other.(type) {
	case ID:
		return id.value == v.value
	default:
		o, err := NewID(v)
		if err != nil {
			return false
		}
		return id.value == o.value
	}
}

var _ fmt.GoStringer = ID{}

// GoString implements fmt.GoStringer
func (id ID) GoString() string {
	switch v := id.value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

var _ json.Marshaler = ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

var _ json.Unmarshaler = &ID{}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	parsed, err := NewID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
