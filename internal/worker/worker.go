package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/protocol"
)

// DefaultQueueSize is the capacity of each channel when none is configured.
const DefaultQueueSize = 64

// Handler processes one request and always returns a response.
type Handler interface {
	Handle(ctx context.Context, req *protocol.Request) *protocol.Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *protocol.Request) *protocol.Response

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	return f(ctx, req)
}

// State is a worker lifecycle state.
type State int32

const (
	// StateCreated is the state of a worker that has not been started.
	StateCreated State = iota
	// StateRunning means the loop goroutine is taking requests.
	StateRunning
	// StateStopping means Stop was called and the loop is finishing its current request.
	StateStopping
	// StateStopped is terminal; the loop goroutine has exited.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker serializes requests through a single handler goroutine.
//
// The inbound and outbound channels are the only state shared between
// callers and the loop. Submit and Receive are safe for concurrent use.
type Worker struct {
	log     *slog.Logger
	handler Handler

	inbound  chan *protocol.Request
	outbound chan *protocol.Response

	state atomic.Int32

	// Lifecycle management
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a worker in the Created state.
// A queueSize of zero or less uses DefaultQueueSize.
func New(log *slog.Logger, handler Handler, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Worker{
		log:      log.With("component", "worker"),
		handler:  handler,
		inbound:  make(chan *protocol.Request, queueSize),
		outbound: make(chan *protocol.Response, queueSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Done returns a channel that is closed once the loop goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Start spawns the loop goroutine.
//
// Cancelling ctx ends the loop like Stop does, and also reaches the handler
// of the request in flight. Start fails with ErrWorkerAlreadyStarted when
// the worker is running and ErrWorkerStopped when it has been stopped.
func (w *Worker) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		if w.State() == StateRunning {
			return errors.ErrWorkerAlreadyStarted
		}

		return errors.ErrWorkerStopped
	}

	go w.loop(ctx)

	w.log.Info("Worker started")

	return nil
}

// Submit enqueues a request.
//
// Requests submitted before Start are processed once the worker runs.
// Submit blocks while the inbound channel is full and fails with
// ErrWorkerStopped once Stop has been called.
func (w *Worker) Submit(ctx context.Context, req *protocol.Request) error {
	switch w.State() {
	case StateStopping, StateStopped:
		return errors.ErrWorkerStopped
	}

	select {
	case w.inbound <- req:
		w.log.Debug("Request queued", "id", req.IDString(), "method", req.Method)

		return nil
	case <-w.stopCh:
		return errors.ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the next response is available.
//
// After the worker stops, Receive keeps returning responses that were
// already produced and then fails with ErrWorkerStopped.
func (w *Worker) Receive(ctx context.Context) (*protocol.Response, error) {
	select {
	case resp, ok := <-w.outbound:
		if !ok {
			return nil, errors.ErrWorkerStopped
		}

		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop signals the loop and blocks until its goroutine has exited.
//
// The request in flight, if any, completes. Its response is delivered when
// the outbound channel has room; if the channel is full because nobody is
// receiving, the response is dropped so that Stop cannot hang. Requests
// still waiting in the inbound channel are discarded without a response. Stop is safe to call multiple times and on a worker that was
// never started.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Debug("Stopping worker")

		if w.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
			close(w.stopCh)
			close(w.outbound)
			close(w.done)

			return
		}

		w.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
		close(w.stopCh)
	})

	<-w.done

	w.log.Info("Worker stopped")
}

// loop takes one request at a time until stopped.
func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	defer close(w.outbound)
	defer w.state.Store(int32(StateStopped))
	defer w.log.Debug("Worker loop exited")

	processed := 0

	for {
		select {
		case <-w.stopCh:
			w.logDiscarded()

			return

		case <-ctx.Done():
			w.log.Debug("Context cancelled in worker loop")

			return

		case req := <-w.inbound:
			// A stop signal and a queued request can be ready together;
			// stop wins so nothing new starts after Stop is called.
			select {
			case <-w.stopCh:
				w.logDiscarded()

				return
			default:
			}

			resp := w.process(ctx, req)
			processed++

			if !w.deliver(resp) {
				return
			}

			w.log.Debug("Response queued", "id", resp.IDString(), "processed", processed)
		}
	}
}

// process runs the handler and converts a panic into an internal error
// response so the loop never dies from a handler failure.
func (w *Worker) process(ctx context.Context, req *protocol.Request) (resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Handler panicked", "id", req.IDString(), "method", req.Method, "panic", r)

			resp = protocol.NewError(req.ID, &errors.InternalError{})
		}
	}()

	resp = w.handler.Handle(ctx, req)
	if resp == nil {
		w.log.Error("Handler returned no response", "id", req.IDString(), "method", req.Method)

		resp = protocol.NewError(req.ID, &errors.InternalError{})
	}

	return resp
}

// deliver pushes resp to the outbound channel. When the channel is full it
// waits for a reader, giving up only if Stop is called meanwhile so that
// Stop can never deadlock on an abandoned Receive side.
// The outbound channel is only closed by the loop goroutine, so the send
// cannot race with close.
func (w *Worker) deliver(resp *protocol.Response) bool {
	select {
	case w.outbound <- resp:
		return true
	default:
	}

	select {
	case w.outbound <- resp:
		return true
	case <-w.stopCh:
		w.log.Warn("Dropping response, outbound channel full at stop", "id", resp.IDString())

		return false
	}
}

func (w *Worker) logDiscarded() {
	if n := len(w.inbound); n > 0 {
		w.log.Warn("Discarding queued requests on stop", "count", n)
	}
}
