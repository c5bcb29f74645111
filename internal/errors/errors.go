package errors

import (
	"errors"
	"fmt"
	"time"
)

// JSON-RPC 2.0 error codes used on the wire.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUpstreamError  = -32000
)

// InternalErrorMessage is the only message ever sent for unanticipated failures.
const InternalErrorMessage = "internal error"

// ServerError is the base interface for all typed server errors.
type ServerError interface {
	error
	IsServerError() bool
	Code() int
}

// Compile-time verification that all error types implement ServerError.
var (
	_ ServerError = (*ParseError)(nil)
	_ ServerError = (*InvalidRequestError)(nil)
	_ ServerError = (*MethodNotFoundError)(nil)
	_ ServerError = (*ToolNotFoundError)(nil)
	_ ServerError = (*InvalidParamsError)(nil)
	_ ServerError = (*InternalError)(nil)
	_ ServerError = (*UpstreamError)(nil)
	_ ServerError = (*RateLimitError)(nil)
	_ ServerError = (*ResponseError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrWorkerAlreadyStarted indicates Start was called on a running worker.
	ErrWorkerAlreadyStarted = errors.New("worker already started")

	// ErrWorkerStopped indicates the worker is stopping or stopped.
	// A stopped worker cannot be restarted; create a new one.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrControllerStopped indicates the request controller has stopped.
	ErrControllerStopped = errors.New("request controller stopped")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed")

	// ErrMissingCredential indicates the upstream API key was not configured.
	ErrMissingCredential = errors.New("BRAVE_API_KEY is required")
)

// CodeOf returns the JSON-RPC error code for err.
// Errors that are not ServerErrors map to CodeInternalError.
func CodeOf(err error) int {
	if se, ok := errors.AsType[ServerError](err); ok {
		return se.Code()
	}

	return CodeInternalError
}

// ParseError indicates an inbound line was not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Code implements ServerError.
func (e *ParseError) Code() int { return CodeParseError }

// IsServerError implements ServerError.
func (e *ParseError) IsServerError() bool { return true }

// InvalidRequestError indicates valid JSON that is not a request object.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// Code implements ServerError.
func (e *InvalidRequestError) Code() int { return CodeInvalidRequest }

// IsServerError implements ServerError.
func (e *InvalidRequestError) IsServerError() bool { return true }

// MethodNotFoundError indicates an unsupported JSON-RPC method.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method %s not found", e.Method)
}

// Code implements ServerError.
func (e *MethodNotFoundError) Code() int { return CodeMethodNotFound }

// IsServerError implements ServerError.
func (e *MethodNotFoundError) IsServerError() bool { return true }

// ToolNotFoundError indicates callTool named a tool that is not registered.
// It shares the method-not-found code on the wire.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %s not found", e.Name)
}

// Code implements ServerError.
func (e *ToolNotFoundError) Code() int { return CodeMethodNotFound }

// IsServerError implements ServerError.
func (e *ToolNotFoundError) IsServerError() bool { return true }

// InvalidParamsError indicates missing or wrong-shaped call arguments.
type InvalidParamsError struct {
	Reason string
	Err    error
}

func (e *InvalidParamsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid params: %s: %v", e.Reason, e.Err)
	}

	return "invalid params: " + e.Reason
}

func (e *InvalidParamsError) Unwrap() error {
	return e.Err
}

// Code implements ServerError.
func (e *InvalidParamsError) Code() int { return CodeInvalidParams }

// IsServerError implements ServerError.
func (e *InvalidParamsError) IsServerError() bool { return true }

// InternalError wraps an unanticipated failure.
// Its message is fixed so that no internal detail reaches a client;
// the cause stays available through Unwrap for logging.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return InternalErrorMessage
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Code implements ServerError.
func (e *InternalError) Code() int { return CodeInternalError }

// IsServerError implements ServerError.
func (e *InternalError) IsServerError() bool { return true }

// UpstreamError indicates the search provider call failed.
//
// Exactly one failure shape is set: a non-2xx StatusCode (with Body),
// Timeout (with the configured deadline), or a transport Err.
type UpstreamError struct {
	StatusCode int
	Body       string
	Timeout    time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("brave API error: %d %s", e.StatusCode, e.Body)
	case e.Timeout > 0:
		return fmt.Sprintf("request timed out after %s", e.Timeout)
	default:
		return fmt.Sprintf("network error: %v", e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the upstream call hit its deadline.
func (e *UpstreamError) IsTimeout() bool {
	return e.Timeout > 0
}

// Code implements ServerError.
func (e *UpstreamError) Code() int { return CodeUpstreamError }

// IsServerError implements ServerError.
func (e *UpstreamError) IsServerError() bool { return true }

// RateLimitError indicates a configured request budget was exhausted
// before the upstream call was made.
type RateLimitError struct {
	Window string
	Limit  int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.Window)
}

// Code implements ServerError.
func (e *RateLimitError) Code() int { return CodeUpstreamError }

// IsServerError implements ServerError.
func (e *RateLimitError) IsServerError() bool { return true }

// ResponseError is an error response observed by an in-process client.
// It carries the wire code and message unchanged.
type ResponseError struct {
	ErrorCode int
	Message   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.ErrorCode, e.Message)
}

// Code implements ServerError.
func (e *ResponseError) Code() int { return e.ErrorCode }

// IsServerError implements ServerError.
func (e *ResponseError) IsServerError() bool { return true }
