// Package transport carries the line-delimited wire format over a pair
// of byte streams, normally stdin and stdout.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/protocol"
)

// maxLineSize is the maximum accepted request line.
const maxLineSize = 1024 * 1024 // 1MB

var errLineTooLong = fmt.Errorf("request line exceeds %d bytes", maxLineSize)

// Stdio reads one JSON request per line and writes one JSON response per
// line. It keeps a single request in flight.
type Stdio struct {
	log *slog.Logger
	r   io.Reader
	w   io.Writer
	mu  sync.Mutex
}

// NewStdio creates a line transport over r and w.
func NewStdio(log *slog.Logger, r io.Reader, w io.Writer) *Stdio {
	return &Stdio{
		log: log.With("component", "stdio"),
		r:   r,
		w:   w,
	}
}

// Serve feeds every decoded line to ex and writes back its response.
//
// Lines that fail to decode, or exceed maxLineSize, are answered
// immediately with a parse error carrying a null id and never reach ex.
// Blank lines are skipped. Serve
// returns nil at end of input or when ctx is cancelled.
func (s *Stdio) Serve(ctx context.Context, ex protocol.Exchanger) error {
	lines, scanErrs := s.readLines(ctx)

	served := 0

	for {
		var (
			line inputLine
			ok   bool
		)

		select {
		case <-ctx.Done():
			s.log.Debug("Stdio transport cancelled", "served", served)

			return nil
		case line, ok = <-lines:
		}

		if !ok {
			if err := <-scanErrs; err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			s.log.Debug("End of input", "served", served)

			return nil
		}

		var (
			resp *protocol.Response
			err  error
		)

		if line.tooLong {
			s.log.Warn("Rejected oversized request line", "limit", maxLineSize)

			resp = protocol.NewError(nil, &errors.ParseError{Err: errLineTooLong})
		} else {
			data := bytes.TrimSpace(line.data)
			if len(data) == 0 {
				continue
			}

			resp, err = s.exchange(ctx, ex, data)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		if err := s.write(resp); err != nil {
			return err
		}

		served++
	}
}

func (s *Stdio) exchange(ctx context.Context, ex protocol.Exchanger, line []byte) (*protocol.Response, error) {
	req, err := protocol.Decode(line)
	if err != nil {
		s.log.Warn("Rejected malformed request line", "error", err, "size", len(line))

		return protocol.NewError(nil, err), nil
	}

	if err := ex.Submit(ctx, req); err != nil {
		return nil, fmt.Errorf("submit request %s: %w", req.IDString(), err)
	}

	resp, err := ex.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("receive response %s: %w", req.IDString(), err)
	}

	return resp, nil
}

func (s *Stdio) write(resp *protocol.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response %s: %w", resp.IDString(), err)
	}

	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write response %s: %w", resp.IDString(), err)
	}

	return nil
}

// inputLine is one raw line, or a marker for a line longer than
// maxLineSize whose bytes were discarded.
type inputLine struct {
	data    []byte
	tooLong bool
}

// readLines reads r on its own goroutine so Serve can observe ctx while a
// read is blocked. An oversized line is skipped through its newline and
// reported as tooLong so the lines after it are still served.
func (s *Stdio) readLines(ctx context.Context) (<-chan inputLine, <-chan error) {
	lines := make(chan inputLine)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		defer close(errs)

		reader := bufio.NewReaderSize(s.r, 64*1024)

		for {
			line, err := readLine(reader)
			if len(line.data) > 0 || line.tooLong {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}

			if err != nil {
				if !stderrors.Is(err, io.EOF) {
					s.log.Error("Read error on input", "error", err)

					errs <- err
				}

				return
			}
		}
	}()

	return lines, errs
}

// readLine returns the next line without its terminator. The returned
// data is a fresh copy. A final line without a newline is returned along
// with io.EOF.
func readLine(reader *bufio.Reader) (inputLine, error) {
	var (
		line    inputLine
		buf     []byte
		discard bool
	)

	for {
		chunk, err := reader.ReadSlice('\n')
		if !discard {
			if len(buf)+len(chunk) > maxLineSize+1 {
				// Past the limit; drop what we have and skip to the newline.
				discard = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		if stderrors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		buf = bytes.TrimSuffix(buf, []byte("\n"))
		if len(buf) > maxLineSize {
			discard = true
			buf = nil
		}

		if discard {
			line.tooLong = true
		} else {
			line.data = buf
		}

		return line, err
	}
}
