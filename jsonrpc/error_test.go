package jsonrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrParse, "Parse error"},
		{ErrInvalidRequest, "Invalid Request"},
		{ErrMethodNotFound, "Method not found"},
		{ErrInvalidParams, "Invalid params"},
		{ErrInternal, "Internal error"},
		{ErrServer, "Server error"},
		{ErrorCode(-32050), "Server error"},
		{ErrorCode(1), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			err := NewError(tt.code, "detail")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.want, err.Message)
			assert.Equal(t, "detail", err.Data)
		})
	}
}

func TestNewErrorf(t *testing.T) {
	err := NewErrorf(ErrMethodNotFound, "Tool not found: %s", "DoesNotExist")
	assert.Equal(t, "-32601: Tool not found: DoesNotExist", err.Error())
	assert.Nil(t, err.Data)

	withData := err.WithData("x")
	assert.Equal(t, "x", withData.Data)
	assert.Nil(t, err.Data)
}
