// Package dispatch routes decoded requests to the tool registry and
// packages every outcome into exactly one response.
package dispatch

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/metrics"
	"github.com/mjochum64/saaros-mcp-server/internal/protocol"
	"github.com/mjochum64/saaros-mcp-server/internal/worker"
)

// methodUnknown labels metrics for unsupported methods so arbitrary
// method names cannot grow the label set.
const methodUnknown = "unknown"

// Tools is the registry surface the dispatcher needs.
type Tools interface {
	ListTools() []map[string]any
	CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// Dispatcher implements worker.Handler.
type Dispatcher struct {
	log     *slog.Logger
	tools   Tools
	metrics *metrics.Metrics
}

var _ worker.Handler = (*Dispatcher)(nil)

// New creates a dispatcher. m may be nil.
func New(log *slog.Logger, tools Tools, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		log:     log.With("component", "dispatcher"),
		tools:   tools,
		metrics: m,
	}
}

// Handle routes req by method and always returns a response echoing req's id.
//
// Typed failures keep their code and message. Any other error, and any
// panic, becomes an internal error whose detail is only logged.
func (d *Dispatcher) Handle(ctx context.Context, req *protocol.Request) (resp *protocol.Response) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Panic while handling request",
				"id", req.IDString(), "method", req.Method, "panic", r)

			resp = protocol.NewError(req.ID, &errors.InternalError{})
		}

		code := 0
		if resp.Error != nil {
			code = resp.Error.Code
		}

		d.metrics.ObserveRequest(metricsMethod(req.Method), code, time.Since(startTime))
	}()

	d.log.Debug("Handling request", "id", req.IDString(), "method", req.Method)

	result, err := d.route(ctx, req)
	if err != nil {
		d.logFailure(req, err)

		return protocol.NewError(req.ID, err)
	}

	return protocol.NewResult(req.ID, result)
}

func (d *Dispatcher) route(ctx context.Context, req *protocol.Request) (any, error) {
	switch req.Method {
	case protocol.MethodListTools:
		return map[string]any{"tools": d.tools.ListTools()}, nil
	case protocol.MethodCallTool:
		return d.callTool(ctx, req)
	default:
		return nil, &errors.MethodNotFoundError{Method: req.Method}
	}
}

func (d *Dispatcher) callTool(ctx context.Context, req *protocol.Request) (any, error) {
	params, err := req.CallParams()
	if err != nil {
		return nil, err
	}

	if params.Name == "" {
		return nil, &errors.InvalidParamsError{Reason: "params.name is required"}
	}

	d.log.Debug("Calling tool", "id", req.IDString(), "tool", params.Name)

	return d.tools.CallTool(ctx, params.Name, params.Arguments)
}

func (d *Dispatcher) logFailure(req *protocol.Request, err error) {
	if _, ok := stderrors.AsType[errors.ServerError](err); ok {
		d.log.Warn("Request failed",
			"id", req.IDString(), "method", req.Method, "code", errors.CodeOf(err), "error", err)

		return
	}

	d.log.Error("Request failed with unexpected error",
		"id", req.IDString(), "method", req.Method, "error", err)
}

func metricsMethod(method string) string {
	switch method {
	case protocol.MethodListTools, protocol.MethodCallTool:
		return method
	default:
		return methodUnknown
	}
}
