// Package errors defines the error taxonomy of the search server.
//
// Every failure a request can hit maps to one of the typed errors in this
// package, and every typed error knows its JSON-RPC error code. The
// dispatcher uses CodeOf to turn any error into a wire error object. All
// error types support unwrapping and can be checked using errors.Is,
// errors.As, and errors.AsType.
package errors
