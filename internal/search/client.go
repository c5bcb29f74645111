package search

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/metrics"
)

const (
	// DefaultEndpoint is the Brave web-search API.
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	// DefaultTimeout bounds one upstream call.
	DefaultTimeout = 30 * time.Second

	// maxErrorBodySize caps how much of an error body is echoed to clients.
	maxErrorBodySize = 2048

	tokenHeader = "X-Subscription-Token"
	userAgent   = "saaros-mcp-server/1.0"
)

// ClientConfig captures the knobs for the upstream client.
type ClientConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration

	// HTTPClient overrides the underlying client, e.g. for tests.
	HTTPClient *http.Client
}

// Client implements Searcher against the Brave web-search API.
//
// Each Search performs exactly one GET; failures are never retried.
type Client struct {
	log      *slog.Logger
	http     *resty.Client
	apiKey   string
	endpoint string
	timeout  time.Duration
	metrics  *metrics.Metrics
}

var _ Searcher = (*Client)(nil)

// NewClient wires the HTTP client. The API key is sent on every request
// and never logged.
func NewClient(log *slog.Logger, cfg ClientConfig, m *metrics.Metrics) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New()
	if cfg.HTTPClient != nil {
		httpClient = resty.NewWithClient(cfg.HTTPClient)
	}

	// Accept-Encoding is left to net/http so gzip bodies are decoded transparently.
	httpClient.
		SetLogger(restyLogger{log: log.With("component", "resty")}).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)

	return &Client{
		log:      log.With("component", "search_client"),
		http:     httpClient,
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		timeout:  timeout,
		metrics:  m,
	}
}

// Search queries the provider and formats the results.
// count is clamped to [MinCount, MaxCount].
func (c *Client) Search(ctx context.Context, query string, count int) (string, error) {
	count = ClampCount(count)

	startTime := time.Now()
	outcome := metrics.OutcomeSuccess

	defer func() {
		c.metrics.ObserveUpstream(outcome, time.Since(startTime))
	}()

	c.log.Debug("Querying search API", "count", count, "query_len", len(query))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(tokenHeader, c.apiKey).
		SetQueryParam("q", query).
		SetQueryParam("count", strconv.Itoa(count)).
		Get(c.endpoint)
	if err != nil {
		if isTimeout(err) {
			outcome = metrics.OutcomeTimeout
			c.log.Warn("Search API request timed out", "timeout", c.timeout)

			return "", &errors.UpstreamError{Timeout: c.timeout, Err: err}
		}

		outcome = metrics.OutcomeNetwork
		c.log.Warn("Search API request failed", "error", err)

		return "", &errors.UpstreamError{Err: err}
	}

	if !resp.IsSuccess() {
		outcome = metrics.OutcomeStatus
		c.log.Warn("Search API returned error status", "status", resp.StatusCode())

		return "", &errors.UpstreamError{
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), maxErrorBodySize),
		}
	}

	var payload webSearchResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		outcome = metrics.OutcomeDecode
		c.log.Warn("Failed to decode search API response", "error", err)

		return "", &errors.UpstreamError{Err: err}
	}

	c.log.Debug("Search API returned results", "results", len(payload.Web.Results), "elapsed", time.Since(startTime))

	return FormatResults(payload.Web.Results), nil
}

// isTimeout reports whether err came from a deadline rather than a
// connection failure.
func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if netErr, ok := stderrors.AsType[net.Error](err); ok && netErr.Timeout() {
		return true
	}

	return false
}

// restyLogger routes resty's internal messages to slog.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
