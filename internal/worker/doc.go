// Package worker implements the single-goroutine request loop.
//
// A Worker owns two FIFO channels. Callers push requests with Submit and
// pull responses with Receive; one goroutine takes requests off the inbound
// channel one at a time, hands each to a Handler, and pushes exactly one
// response per request in the order requests were taken.
//
// There is no internal parallelism. A slow handler delays every request
// queued behind it. Callers sharing one worker must either take turns or
// demultiplex responses by id (see protocol.Controller).
package worker
