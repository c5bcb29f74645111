package protocol

import (
	"encoding/json"
	stderrors "errors"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
)

// Response represents an outbound JSON-RPC response.
//
// Wire format for success:
//
//	{"jsonrpc": "2.0", "id": 7, "result": {"tools": [...]}}
//
// Wire format for error:
//
//	{"jsonrpc": "2.0", "id": 7, "error": {"code": -32601, "message": "method foo not found"}}
//
// Exactly one of Result and Error is set. Use NewResult and NewError
// rather than building the struct by hand.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewResult creates a success response echoing id.
// A nil result is sent as an empty object so the result member is present.
func NewResult(id json.RawMessage, result any) *Response {
	if result == nil {
		result = map[string]any{}
	}

	return &Response{
		JSONRPC: Version,
		ID:      echoID(id),
		Result:  result,
	}
}

// NewError creates an error response echoing id.
//
// The code comes from the error's type. Untyped errors are reported as an
// internal error with a fixed message so their text never reaches the wire.
func NewError(id json.RawMessage, err error) *Response {
	code := errors.CodeOf(err)

	message := err.Error()
	if _, ok := stderrors.AsType[errors.ServerError](err); !ok {
		message = errors.InternalErrorMessage
	}

	return &Response{
		JSONRPC: Version,
		ID:      echoID(id),
		Error: &Error{
			Code:    code,
			Message: message,
		},
	}
}

// IsError checks if the response is an error response.
func (r *Response) IsError() bool {
	return r.Error != nil
}

// IDString returns the raw id as a string key, "null" when absent.
func (r *Response) IDString() string {
	return idKey(r.ID)
}

// echoID copies id so later mutation of the request buffer cannot change
// the response. An absent id becomes an explicit null.
func echoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}

	out := make(json.RawMessage, len(id))
	copy(out, id)

	return out
}
