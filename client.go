package saaros

import (
	"context"
	"fmt"

	"github.com/mjochum64/saaros-mcp-server/internal/client"
)

// Client calls a Server from Go code. It is safe for concurrent use; each
// call receives the response matching its own request id.
//
// Lifecycle: Clients are single-use. After Close(), create a new one with
// Server.NewClient.
//
// Example usage:
//
//	c, err := srv.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	text, err := c.Search(ctx, "golang", 5)
type Client interface {
	// ListTools returns the wire descriptors of every tool.
	ListTools(ctx context.Context) ([]map[string]any, error)

	// Search runs the web search tool. count is clamped to [1, 20];
	// zero or less uses the default of 10.
	// Failures are returned as *ResponseError.
	Search(ctx context.Context, query string, count int) (string, error)

	// CallTool invokes any tool and returns its {content, isError} result.
	CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)

	// Close releases the client. It does not stop the server.
	// Safe to call multiple times.
	Close() error
}

// Compile-time check that the internal client implements the Client interface.
var _ Client = (*client.Client)(nil)

// WithClient manages a server and client with automatic cleanup.
//
// It builds a server from cfg and opts, opens a client, runs fn, then
// closes the client and stops the server.
func WithClient(ctx context.Context, cfg *Config, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	srv, err := New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	defer srv.Stop()

	c, err := srv.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			srv.log.Warn("failed to close client", "error", closeErr)
		}
	}()

	return fn(c)
}
