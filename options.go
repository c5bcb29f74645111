package saaros

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mjochum64/saaros-mcp-server/internal/metrics"
	"github.com/mjochum64/saaros-mcp-server/internal/search"
)

// Option configures a Server using the functional options pattern.
type Option func(*serverOptions)

// serverOptions collects everything New can be told besides Config.
type serverOptions struct {
	logger     *slog.Logger
	searcher   Searcher
	metrics    *metrics.Metrics
	httpClient *http.Client
	clock      func() time.Time
}

// applyOptions applies functional options to a serverOptions struct.
func applyOptions(opts []Option) *serverOptions {
	options := &serverOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.logger == nil {
		options.logger = NopLogger()
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithSearcher replaces the upstream search client, e.g. with a stub.
// No API key is required when a searcher is supplied.
func WithSearcher(searcher Searcher) Option {
	return func(o *serverOptions) {
		o.searcher = searcher
	}
}

// WithMetrics records request and upstream metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *serverOptions) {
		o.metrics = m
	}
}

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *serverOptions) {
		o.httpClient = client
	}
}

// WithClock overrides the clock used by the rate limiter.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) {
		o.clock = now
	}
}

// Searcher performs one web search and returns formatted result text.
type Searcher = search.Searcher

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc = search.SearcherFunc

// Metrics holds the server's Prometheus collectors.
type Metrics = metrics.Metrics

// NewMetrics creates collectors on a private registry.
func NewMetrics() *Metrics {
	return metrics.New()
}
