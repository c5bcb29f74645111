package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/protocol"
)

// echoHandler answers every request with its own method name.
var echoHandler = HandlerFunc(func(_ context.Context, req *protocol.Request) *protocol.Response {
	return protocol.NewResult(req.ID, map[string]any{"method": req.Method})
})

func newRequest(t *testing.T, id any) *protocol.Request {
	t.Helper()

	req, err := protocol.NewRequest(id, protocol.MethodListTools, nil)
	require.NoError(t, err)

	return req
}

func startWorker(t *testing.T, handler Handler, queueSize int) *Worker {
	t.Helper()

	w := New(slog.Default(), handler, queueSize)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)

	return w
}

func receive(t *testing.T, w *Worker) *protocol.Response {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := w.Receive(ctx)
	require.NoError(t, err)

	return resp
}

func TestWorker_OneResponsePerRequestInOrder(t *testing.T) {
	w := startWorker(t, echoHandler, 0)
	ctx := context.Background()

	for i := range 100 {
		require.NoError(t, w.Submit(ctx, newRequest(t, i)))
	}

	for i := range 100 {
		resp := receive(t, w)
		require.JSONEq(t, fmt.Sprint(i), string(resp.ID))
		require.False(t, resp.IsError())
	}
}

func TestWorker_ConcurrentSubmitters(t *testing.T) {
	w := startWorker(t, echoHandler, 8)
	ctx := context.Background()

	const submitters, perSubmitter = 10, 20

	var wg sync.WaitGroup

	for s := range submitters {
		wg.Go(func() {
			for i := range perSubmitter {
				req, err := protocol.NewRequest(fmt.Sprintf("%d-%d", s, i), protocol.MethodListTools, nil)
				if err == nil {
					err = w.Submit(ctx, req)
				}

				if err != nil {
					t.Errorf("submit: %v", err)
				}
			}
		})
	}

	seen := make(map[string]int, submitters*perSubmitter)
	for range submitters * perSubmitter {
		seen[string(receive(t, w).ID)]++
	}

	wg.Wait()

	require.Len(t, seen, submitters*perSubmitter)

	for id, n := range seen {
		require.Equal(t, 1, n, "duplicate response for %s", id)
	}
}

func TestWorker_NullIDEchoed(t *testing.T) {
	w := startWorker(t, echoHandler, 0)

	require.NoError(t, w.Submit(context.Background(), newRequest(t, nil)))

	resp := receive(t, w)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	require.Contains(t, string(data), `"id":null`)
}

func TestWorker_Lifecycle(t *testing.T) {
	w := New(slog.Default(), echoHandler, 0)
	require.Equal(t, StateCreated, w.State())

	require.NoError(t, w.Start(context.Background()))
	require.Equal(t, StateRunning, w.State())
	require.ErrorIs(t, w.Start(context.Background()), errors.ErrWorkerAlreadyStarted)

	w.Stop()
	require.Equal(t, StateStopped, w.State())

	select {
	case <-w.Done():
	default:
		t.Fatal("done channel should be closed after Stop")
	}

	require.ErrorIs(t, w.Start(context.Background()), errors.ErrWorkerStopped)
	require.ErrorIs(t, w.Submit(context.Background(), newRequest(t, 1)), errors.ErrWorkerStopped)

	_, err := w.Receive(context.Background())
	require.ErrorIs(t, err, errors.ErrWorkerStopped)
}

func TestWorker_StopMultipleCalls(t *testing.T) {
	w := New(slog.Default(), echoHandler, 0)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
	w.Stop()

	require.Equal(t, StateStopped, w.State())
}

func TestWorker_StopNeverStarted(t *testing.T) {
	w := New(slog.Default(), echoHandler, 0)

	w.Stop()

	require.Equal(t, StateStopped, w.State())
	require.ErrorIs(t, w.Start(context.Background()), errors.ErrWorkerStopped)
}

func TestWorker_SubmitBeforeStart(t *testing.T) {
	w := New(slog.Default(), echoHandler, 0)
	t.Cleanup(w.Stop)

	require.NoError(t, w.Submit(context.Background(), newRequest(t, "early")))
	require.NoError(t, w.Start(context.Background()))

	require.JSONEq(t, `"early"`, string(receive(t, w).ID))
}

func TestWorker_StopWaitsForInFlightAndDiscardsQueued(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var calls atomic.Int32

	handler := HandlerFunc(func(_ context.Context, req *protocol.Request) *protocol.Response {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}

		return protocol.NewResult(req.ID, nil)
	})

	w := New(slog.Default(), handler, 0)
	require.NoError(t, w.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, w.Submit(ctx, newRequest(t, 1)))
	require.NoError(t, w.Submit(ctx, newRequest(t, 2)))

	<-started

	stopped := make(chan struct{})

	go func() {
		w.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool { return w.State() == StateStopping }, time.Second, time.Millisecond)

	select {
	case <-stopped:
		t.Fatal("Stop returned while a request was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-stopped

	require.Equal(t, StateStopped, w.State())
	require.Equal(t, int32(1), calls.Load(), "queued request must not be processed after stop")

	resp, err := w.Receive(ctx)
	require.NoError(t, err)
	require.JSONEq(t, "1", string(resp.ID))

	_, err = w.Receive(ctx)
	require.ErrorIs(t, err, errors.ErrWorkerStopped)
}

func TestWorker_HandlerPanicBecomesInternalError(t *testing.T) {
	handler := HandlerFunc(func(_ context.Context, req *protocol.Request) *protocol.Response {
		if req.Method == "explode" {
			panic("handler bug")
		}

		return protocol.NewResult(req.ID, nil)
	})

	w := startWorker(t, handler, 0)
	ctx := context.Background()

	bad, err := protocol.NewRequest(1, "explode", nil)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, bad))
	require.NoError(t, w.Submit(ctx, newRequest(t, 2)))

	resp := receive(t, w)
	require.True(t, resp.IsError())
	require.Equal(t, errors.CodeInternalError, resp.Error.Code)
	require.Equal(t, errors.InternalErrorMessage, resp.Error.Message)
	require.JSONEq(t, "1", string(resp.ID))

	resp = receive(t, w)
	require.False(t, resp.IsError())
	require.JSONEq(t, "2", string(resp.ID))
}

func TestWorker_NilResponseBecomesInternalError(t *testing.T) {
	w := startWorker(t, HandlerFunc(func(context.Context, *protocol.Request) *protocol.Response {
		return nil
	}), 0)

	require.NoError(t, w.Submit(context.Background(), newRequest(t, 9)))

	resp := receive(t, w)
	require.Equal(t, errors.CodeInternalError, resp.Error.Code)
	require.JSONEq(t, "9", string(resp.ID))
}

func TestWorker_ContextCancelEndsLoop(t *testing.T) {
	w := New(slog.Default(), echoHandler, 0)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	cancel()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker loop did not exit after context cancellation")
	}

	require.Equal(t, StateStopped, w.State())

	w.Stop()
	require.Equal(t, StateStopped, w.State())
}

func TestWorker_StopDoesNotDeadlockOnFullOutbound(t *testing.T) {
	var calls atomic.Int32

	handler := HandlerFunc(func(_ context.Context, req *protocol.Request) *protocol.Response {
		calls.Add(1)

		return protocol.NewResult(req.ID, nil)
	})

	w := New(slog.Default(), handler, 1)
	require.NoError(t, w.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, w.Submit(ctx, newRequest(t, 1)))
	require.Eventually(t, func() bool { return len(w.outbound) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, w.Submit(ctx, newRequest(t, 2)))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})

	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop deadlocked on a full outbound channel")
	}

	// The buffered response survives; the one that found no room was dropped.
	resp, err := w.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "1", string(resp.ID))

	_, err = w.Receive(ctx)
	require.ErrorIs(t, err, errors.ErrWorkerStopped)
}

func TestWorker_SubmitRespectsContext(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	handler := HandlerFunc(func(_ context.Context, req *protocol.Request) *protocol.Response {
		<-block

		return protocol.NewResult(req.ID, nil)
	})

	w := New(slog.Default(), handler, 1)

	// Not started: the single inbound slot fills and the next Submit blocks.
	require.NoError(t, w.Submit(context.Background(), newRequest(t, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, w.Submit(ctx, newRequest(t, 2)), context.DeadlineExceeded)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "created", StateCreated.String())
	require.Equal(t, "running", StateRunning.String())
	require.Equal(t, "stopping", StateStopping.String())
	require.Equal(t, "stopped", StateStopped.String())
	require.Equal(t, "unknown", State(42).String())
}
