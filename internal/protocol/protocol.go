package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
)

// Exchanger is the request/response queue pair a Controller multiplexes.
//
// This interface is satisfied by worker.Worker but allows for testing
// with mock exchangers.
type Exchanger interface {
	Submit(ctx context.Context, req *Request) error
	Receive(ctx context.Context) (*Response, error)
}

// Controller correlates responses with requests for callers sharing one
// Exchanger.
//
// A worker delivers responses strictly in the order it processed requests,
// so concurrent callers reading its outbound channel directly could pick up
// each other's responses. The Controller owns the outbound side instead:
//   - SendRequest registers a per-call channel keyed by the request id
//   - a single read loop pulls every response and routes it by id
//   - unmatched responses are logged and dropped
//
// The Controller must be started with Start() before use and manages its own
// goroutine for reading and routing responses.
type Controller struct {
	log       *slog.Logger
	exchanger Exchanger

	// Request tracking
	pendingMu sync.Mutex
	pending   map[string]chan *Response

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewController creates a new request controller.
func NewController(log *slog.Logger, exchanger Exchanger) *Controller {
	return &Controller{
		log:       log.With("component", "protocol"),
		exchanger: exchanger,
		pending:   make(map[string]chan *Response, 10),
		done:      make(chan struct{}),
	}
}

// closeDone safely closes the done channel exactly once.
func (c *Controller) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// SetFatalError stores a fatal error and broadcasts to all waiters by closing done.
func (c *Controller) SetFatalError(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Done returns a channel that is closed when the controller stops.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start begins reading responses from the exchanger.
//
// The read loop stops when the context is cancelled, Stop is called, or
// the exchanger reports that it stopped.
func (c *Controller) Start(ctx context.Context) error {
	c.log.Debug("Starting request controller")

	c.wg.Go(func() {
		c.readLoop(ctx)
	})

	c.log.Info("Request controller started")

	return nil
}

// Stop shuts down the controller and fails every waiting request with
// ErrControllerStopped. It's safe to call Stop multiple times.
func (c *Controller) Stop() {
	c.log.Debug("Stopping request controller")

	c.closeDone()
	c.wg.Wait()

	c.log.Info("Request controller stopped")
}

// SendRequest submits req and waits for the response carrying its id.
//
// A request without an id is assigned a fresh ULID. Ids must be unique
// among in-flight requests; reusing one fails immediately.
func (c *Controller) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	select {
	case <-c.done:
		return nil, c.stoppedErr()
	default:
	}

	if len(req.ID) == 0 || string(req.ID) == "null" {
		id, err := json.Marshal(c.generateRequestID())
		if err != nil {
			return nil, fmt.Errorf("marshal request id: %w", err)
		}

		clone := *req
		clone.ID = id
		req = &clone
	}

	key := req.IDString()
	responseChan := make(chan *Response, 1)

	c.pendingMu.Lock()
	if _, exists := c.pending[key]; exists {
		c.pendingMu.Unlock()

		return nil, &errors.InvalidRequestError{Reason: "duplicate in-flight id " + key}
	}

	c.pending[key] = responseChan
	c.pendingMu.Unlock()

	defer c.removePending(key)

	c.log.Debug("Sending request", "id", key, "method", req.Method)

	if err := c.exchanger.Submit(ctx, req); err != nil {
		c.log.Warn("Failed to submit request", "id", key, "error", err)

		return nil, fmt.Errorf("submit request: %w", err)
	}

	select {
	case resp := <-responseChan:
		c.log.Debug("Received response", "id", key, "is_error", resp.IsError())

		return resp, nil

	case <-c.done:
		c.log.Debug("Controller stopped during request", "id", key)

		return nil, c.stoppedErr()

	case <-ctx.Done():
		c.log.Debug("Request cancelled", "id", key)

		return nil, ctx.Err()
	}
}

// Call builds a request from method and params and sends it.
func (c *Controller) Call(ctx context.Context, method string, params any) (*Response, error) {
	req, err := NewRequest(nil, method, params)
	if err != nil {
		return nil, err
	}

	return c.SendRequest(ctx, req)
}

// readLoop routes responses to waiting callers.
func (c *Controller) readLoop(ctx context.Context) {
	defer c.closeDone()
	defer c.log.Debug("Request read loop stopped")

	// Receive blocks, so give it a context that Stop can cancel.
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.done:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	for {
		resp, err := c.exchanger.Receive(loopCtx)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				c.log.Debug("Request read loop cancelled")

				return
			}

			c.log.Debug("Exchanger stopped", "error", err)
			c.SetFatalError(err)

			return
		}

		c.route(resp)
	}
}

// route delivers resp to the caller waiting for its id.
func (c *Controller) route(resp *Response) {
	key := resp.IDString()

	c.pendingMu.Lock()
	responseChan, exists := c.pending[key]
	if exists {
		delete(c.pending, key)
	}
	c.pendingMu.Unlock()

	if !exists {
		c.log.Warn("No pending request for response", "id", key)

		return
	}

	// We own the channel now and it is buffered, so the send cannot block.
	responseChan <- resp
}

func (c *Controller) removePending(key string) {
	c.pendingMu.Lock()
	delete(c.pending, key)
	c.pendingMu.Unlock()
}

func (c *Controller) stoppedErr() error {
	if err := c.FatalError(); err != nil && !stderrors.Is(err, errors.ErrControllerStopped) {
		return fmt.Errorf("%w: %w", errors.ErrControllerStopped, err)
	}

	return errors.ErrControllerStopped
}

// generateRequestID creates a unique request ID using ULID.
func (c *Controller) generateRequestID() string {
	return ulid.Make().String()
}
