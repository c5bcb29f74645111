package protocol

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
)

// Version is the JSON-RPC protocol version stamped on every response.
const Version = "2.0"

// Supported methods.
const (
	MethodListTools = "listTools"
	MethodCallTool  = "callTool"
)

// Request represents an inbound JSON-RPC request.
//
// Wire format:
//
//	{
//	  "jsonrpc": "2.0",
//	  "id": 7,
//	  "method": "callTool",
//	  "params": {"name": "brave_web_search", "arguments": {"query": "golang"}}
//	}
//
// ID is opaque and kept as raw JSON so it is echoed back byte-for-byte.
// A missing id and an explicit null both echo as null.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// CallToolParams is the params object of a callTool request.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewRequest builds a request for in-process callers.
// A nil id produces a request whose response carries a null id.
func NewRequest(id any, method string, params any) (*Request, error) {
	req := &Request{
		JSONRPC: Version,
		Method:  method,
	}

	if id != nil {
		raw, err := json.Marshal(id)
		if err != nil {
			return nil, fmt.Errorf("marshal id: %w", err)
		}

		req.ID = raw
	}

	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}

		req.Params = raw
	}

	return req, nil
}

// Decode parses one wire line into a Request.
//
// Syntax errors return a ParseError. Well-formed JSON that is not a request
// object (an array, a number, a non-string method) returns an
// InvalidRequestError.
func Decode(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		if _, ok := stderrors.AsType[*json.UnmarshalTypeError](err); ok {
			return nil, &errors.InvalidRequestError{Reason: err.Error()}
		}

		return nil, &errors.ParseError{Err: err}
	}

	return &req, nil
}

// CallParams decodes the params of a callTool request.
// Absent params decode to the zero value.
func (r *Request) CallParams() (*CallToolParams, error) {
	var params CallToolParams

	if len(r.Params) == 0 || bytes.Equal(r.Params, []byte("null")) {
		return &params, nil
	}

	if err := json.Unmarshal(r.Params, &params); err != nil {
		return nil, &errors.InvalidParamsError{Reason: "params must be an object with name and arguments", Err: err}
	}

	return &params, nil
}

// IDString returns the raw id as a string key, "null" when absent.
func (r *Request) IDString() string {
	return idKey(r.ID)
}

func idKey(id json.RawMessage) string {
	if len(id) == 0 {
		return "null"
	}

	return string(id)
}
