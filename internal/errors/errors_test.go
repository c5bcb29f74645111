package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	root := errors.New("unexpected token")
	err := &ParseError{Err: root}

	require.Equal(t, "parse error: unexpected token", err.Error())
	require.ErrorIs(t, err, root)
	require.Equal(t, CodeParseError, err.Code())
	require.True(t, err.IsServerError())
}

func TestMethodNotFoundError(t *testing.T) {
	err := &MethodNotFoundError{Method: "unknownMethod"}

	require.Equal(t, "method unknownMethod not found", err.Error())
	require.Equal(t, -32601, err.Code())
}

func TestToolNotFoundError_SharesMethodNotFoundCode(t *testing.T) {
	err := &ToolNotFoundError{Name: "image_search"}

	require.Equal(t, "tool image_search not found", err.Error())
	require.Equal(t, CodeMethodNotFound, err.Code())
}

func TestInvalidParamsError(t *testing.T) {
	require.Equal(t, "invalid params: query is required", (&InvalidParamsError{Reason: "query is required"}).Error())

	root := errors.New("missing properties")
	err := &InvalidParamsError{Reason: "arguments do not match schema", Err: root}

	require.Equal(t, "invalid params: arguments do not match schema: missing properties", err.Error())
	require.ErrorIs(t, err, root)
	require.Equal(t, -32602, err.Code())
}

func TestInternalError_HidesCause(t *testing.T) {
	root := errors.New("token=secret nil pointer")
	err := &InternalError{Err: root}

	require.Equal(t, "internal error", err.Error())
	require.NotContains(t, err.Error(), "secret")
	require.ErrorIs(t, err, root)
	require.Equal(t, -32603, err.Code())
}

func TestUpstreamError_Status(t *testing.T) {
	err := &UpstreamError{StatusCode: 429, Body: `{"error":"quota"}`}

	require.Equal(t, `brave API error: 429 {"error":"quota"}`, err.Error())
	require.False(t, err.IsTimeout())
	require.Equal(t, -32000, err.Code())
}

func TestUpstreamError_Timeout(t *testing.T) {
	err := &UpstreamError{Timeout: 30 * time.Second, Err: context.DeadlineExceeded}

	require.Equal(t, "request timed out after 30s", err.Error())
	require.True(t, err.IsTimeout())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpstreamError_Transport(t *testing.T) {
	root := errors.New("connection refused")
	err := &UpstreamError{Err: root}

	require.Equal(t, "network error: connection refused", err.Error())
	require.ErrorIs(t, err, root)
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{Window: "month", Limit: 15000}

	require.Equal(t, "rate limit exceeded: 15000 requests per month", err.Error())
	require.Equal(t, CodeUpstreamError, err.Code())
}

func TestResponseError(t *testing.T) {
	err := &ResponseError{ErrorCode: CodeMethodNotFound, Message: "method nope not found"}

	require.Equal(t, "server error -32601: method nope not found", err.Error())
	require.Equal(t, CodeMethodNotFound, err.Code())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "parse", err: &ParseError{Err: errors.New("x")}, want: CodeParseError},
		{name: "invalid request", err: &InvalidRequestError{Reason: "x"}, want: CodeInvalidRequest},
		{name: "wrapped invalid params", err: fmt.Errorf("call: %w", &InvalidParamsError{Reason: "x"}), want: CodeInvalidParams},
		{name: "upstream", err: &UpstreamError{StatusCode: 500}, want: CodeUpstreamError},
		{name: "plain error", err: errors.New("boom"), want: CodeInternalError},
		{name: "sentinel", err: ErrWorkerStopped, want: CodeInternalError},
		{name: "response", err: &ResponseError{ErrorCode: CodeInvalidParams, Message: "x"}, want: CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
