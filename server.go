package saaros

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mjochum64/saaros-mcp-server/internal/client"
	"github.com/mjochum64/saaros-mcp-server/internal/dispatch"
	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/mcp"
	"github.com/mjochum64/saaros-mcp-server/internal/metrics"
	"github.com/mjochum64/saaros-mcp-server/internal/ratelimit"
	"github.com/mjochum64/saaros-mcp-server/internal/search"
	"github.com/mjochum64/saaros-mcp-server/internal/transport"
	"github.com/mjochum64/saaros-mcp-server/internal/worker"
)

// Server wires the search client, tool registry, dispatcher and worker.
//
// Lifecycle: Created → Running → Stopping → Stopped. A stopped server
// cannot be restarted; create a new one.
type Server struct {
	log      *slog.Logger
	metrics  *metrics.Metrics
	registry *mcp.Registry
	worker   *worker.Worker
}

// New builds a server from cfg.
//
// cfg must carry an API key unless WithSearcher is given, in which case
// cfg may be nil and defaults apply.
func New(cfg *Config, opts ...Option) (*Server, error) {
	options := applyOptions(opts)

	if cfg == nil {
		if options.searcher == nil {
			return nil, errors.ErrMissingCredential
		}

		cfg = &Config{QueueSize: worker.DefaultQueueSize}
	} else if options.searcher == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log := options.logger

	searcher := options.searcher
	if searcher == nil {
		searcher = search.NewClient(log, search.ClientConfig{
			APIKey:     cfg.APIKey,
			Endpoint:   cfg.Endpoint,
			Timeout:    cfg.HTTPTimeout,
			HTTPClient: options.httpClient,
		}, options.metrics)
	}

	if cfg.RateLimitEnabled {
		limiter := ratelimit.New(ratelimit.Config{
			PerSecond: cfg.RateLimitPerSecond,
			PerMonth:  cfg.RateLimitPerMonth,
			MaxWait:   cfg.RateLimitMaxWait,
			Now:       options.clock,
		}, options.metrics)

		searcher = search.RateLimited(searcher, limiter)

		log.Debug("Rate limiting enabled",
			"per_second", cfg.RateLimitPerSecond, "per_month", cfg.RateLimitPerMonth)
	}

	registry := mcp.NewRegistry()
	if err := mcp.RegisterWebSearch(registry, searcher); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	dispatcher := dispatch.New(log, registry, options.metrics)

	return &Server{
		log:      log.With("component", "server"),
		metrics:  options.metrics,
		registry: registry,
		worker:   worker.New(log, dispatcher, cfg.QueueSize),
	}, nil
}

// Start launches the worker goroutine.
func (s *Server) Start(ctx context.Context) error {
	return s.worker.Start(ctx)
}

// Submit enqueues req. It blocks while the inbound queue is full.
func (s *Server) Submit(ctx context.Context, req *Request) error {
	return s.worker.Submit(ctx, req)
}

// Receive returns the next response in processing order. After Stop it
// drains buffered responses, then returns ErrWorkerStopped.
func (s *Server) Receive(ctx context.Context) (*Response, error) {
	return s.worker.Receive(ctx)
}

// Stop waits for the in-flight request and shuts the worker down.
// Queued requests are discarded. Safe to call multiple times.
func (s *Server) Stop() {
	s.worker.Stop()
}

// State reports the lifecycle state.
func (s *Server) State() State {
	return s.worker.State()
}

// Done is closed once the worker goroutine has exited.
func (s *Server) Done() <-chan struct{} {
	return s.worker.Done()
}

// Tools returns the wire descriptors of all registered tools.
func (s *Server) Tools() []map[string]any {
	return s.registry.ListTools()
}

// Metrics returns the collectors given with WithMetrics, or nil.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ServeStdio answers line-delimited requests from r on w, starting the
// server if needed. It returns at end of input or when ctx is cancelled;
// the caller still owns Stop.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	if err := s.ensureStarted(ctx); err != nil {
		return err
	}

	return transport.NewStdio(s.log, r, w).Serve(ctx, s.worker)
}

// NewClient starts the server if needed and returns a client sharing it.
// While a client is open nothing else may call Receive or ServeStdio.
func (s *Server) NewClient(ctx context.Context) (Client, error) {
	if err := s.ensureStarted(ctx); err != nil {
		return nil, err
	}

	c := client.New(s.log, s.worker)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// ensureStarted starts the worker detached from ctx cancellation so that
// only Stop ends it.
func (s *Server) ensureStarted(ctx context.Context) error {
	err := s.worker.Start(context.WithoutCancel(ctx))
	if stderrors.Is(err, errors.ErrWorkerAlreadyStarted) {
		return nil
	}

	return err
}
