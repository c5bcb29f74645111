package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/mcp"
	"github.com/mjochum64/saaros-mcp-server/internal/protocol"
)

// Client sends listTools and callTool requests through a shared exchanger.
type Client struct {
	log        *slog.Logger
	controller *protocol.Controller

	mu        sync.Mutex
	started   bool
	closed    bool
	closeOnce sync.Once
}

// toolResult is the callTool result as seen on the wire.
type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// New creates a client over ex. Call Start before sending requests.
//
// The client takes over the receiving side of ex; nothing else may call
// ex.Receive while the client is open.
func New(log *slog.Logger, ex protocol.Exchanger) *Client {
	return &Client{
		log:        log.With("component", "client"),
		controller: protocol.NewController(log, ex),
	}
}

// Start launches the response router.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.started {
		return nil
	}

	if err := c.controller.Start(ctx); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}

	c.started = true
	c.log.Debug("Client started")

	return nil
}

// ListTools returns the wire descriptors of every registered tool.
func (c *Client) ListTools(ctx context.Context) ([]map[string]any, error) {
	var result struct {
		Tools []map[string]any `json:"tools"`
	}

	if err := c.call(ctx, protocol.MethodListTools, nil, &result); err != nil {
		return nil, err
	}

	return result.Tools, nil
}

// CallTool invokes a tool and returns its {content, isError} result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	var result map[string]any

	params := protocol.CallToolParams{Name: name, Arguments: args}
	if err := c.call(ctx, protocol.MethodCallTool, params, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// Search runs the web search tool and returns the formatted result text.
// A count of zero or less lets the server apply its default.
func (c *Client) Search(ctx context.Context, query string, count int) (string, error) {
	args := map[string]any{"query": query}
	if count > 0 {
		args["count"] = count
	}

	var result toolResult

	params := protocol.CallToolParams{Name: mcp.WebSearchToolName, Arguments: args}
	if err := c.call(ctx, protocol.MethodCallTool, params, &result); err != nil {
		return "", err
	}

	var text string
	for _, content := range result.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	if result.IsError {
		return "", fmt.Errorf("tool %s reported an error: %s", mcp.WebSearchToolName, text)
	}

	return text, nil
}

// Close stops the response router. It's safe to call Close multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.controller.Stop()
		c.log.Debug("Client closed")
	})

	return nil
}

// call sends one request and decodes a successful result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	closed, started := c.closed, c.started
	c.mu.Unlock()

	if closed {
		return errors.ErrClientClosed
	}

	if !started {
		return fmt.Errorf("%s: client not started", method)
	}

	resp, err := c.controller.Call(ctx, method, params)
	if err != nil {
		return err
	}

	if resp.Error != nil {
		return &errors.ResponseError{ErrorCode: resp.Error.Code, Message: resp.Error.Message}
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", method, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}

	return nil
}
