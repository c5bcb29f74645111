package saaros

import "github.com/mjochum64/saaros-mcp-server/internal/errors"

// Re-export error types from internal package

// ServerError is implemented by every error that maps to a wire code.
type ServerError = errors.ServerError

// ParseError indicates an unparsable request line.
type ParseError = errors.ParseError

// InvalidRequestError indicates valid JSON that is not a request object.
type InvalidRequestError = errors.InvalidRequestError

// MethodNotFoundError indicates an unsupported method.
type MethodNotFoundError = errors.MethodNotFoundError

// ToolNotFoundError indicates an unknown tool name.
type ToolNotFoundError = errors.ToolNotFoundError

// InvalidParamsError indicates missing or malformed arguments.
type InvalidParamsError = errors.InvalidParamsError

// InternalError indicates an unexpected failure.
type InternalError = errors.InternalError

// UpstreamError indicates the search provider failed or timed out.
type UpstreamError = errors.UpstreamError

// RateLimitError indicates a configured request budget was exhausted.
type RateLimitError = errors.RateLimitError

// ResponseError is an error response returned to a Client.
type ResponseError = errors.ResponseError

// Wire error codes.
const (
	CodeParseError     = errors.CodeParseError
	CodeInvalidRequest = errors.CodeInvalidRequest
	CodeMethodNotFound = errors.CodeMethodNotFound
	CodeInvalidParams  = errors.CodeInvalidParams
	CodeInternalError  = errors.CodeInternalError
	CodeUpstreamError  = errors.CodeUpstreamError
)

// Re-export sentinel errors from internal package.
var (
	// ErrWorkerAlreadyStarted indicates Start was called twice.
	ErrWorkerAlreadyStarted = errors.ErrWorkerAlreadyStarted

	// ErrWorkerStopped indicates the server is stopping or stopped.
	ErrWorkerStopped = errors.ErrWorkerStopped

	// ErrControllerStopped indicates a client's response router stopped.
	ErrControllerStopped = errors.ErrControllerStopped

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrMissingCredential indicates BRAVE_API_KEY is not set.
	ErrMissingCredential = errors.ErrMissingCredential
)

// CodeOf returns the wire code for err, CodeInternalError for untyped errors.
func CodeOf(err error) int {
	return errors.CodeOf(err)
}
