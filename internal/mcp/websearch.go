package mcp

import (
	"context"
	"math"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/search"
)

// Web search tool limits.
const (
	WebSearchToolName = "brave_web_search"
	MaxQueryLength    = 400
	MaxQueryWords     = 50
)

const webSearchDescription = "Performs a web search using the Brave Search API"

// WebSearchSchema returns the input schema of the web search tool.
func WebSearchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "Search query (max 400 chars, 50 words)",
				MinLength:   ptr(1),
				MaxLength:   ptr(MaxQueryLength),
			},
			"count": {
				Type:        "number",
				Description: "Number of results (1-20, default 10)",
				Default:     []byte("10"),
			},
		},
		Required: []string{"query"},
	}
}

// NewWebSearchTool builds the web search descriptor and its handler.
func NewWebSearchTool(searcher search.Searcher) (*mcp.Tool, Handler) {
	tool := NewTool(WebSearchToolName, webSearchDescription, WebSearchSchema())

	handler := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return nil, &errors.InvalidParamsError{Reason: "malformed arguments", Err: err}
		}

		query, count, err := webSearchArgs(args)
		if err != nil {
			return nil, err
		}

		text, err := searcher.Search(ctx, query, count)
		if err != nil {
			return nil, err
		}

		return TextResult(text), nil
	}

	return tool, handler
}

// RegisterWebSearch adds the web search tool to r.
func RegisterWebSearch(r *Registry, searcher search.Searcher) error {
	tool, handler := NewWebSearchTool(searcher)

	return r.AddTool(tool, handler)
}

// webSearchArgs extracts query and count. The handler repeats the checks
// the schema cannot express so it is safe to call directly.
func webSearchArgs(args map[string]any) (string, int, error) {
	query, ok := args["query"].(string)
	if !ok {
		return "", 0, &errors.InvalidParamsError{Reason: "query is required and must be a string"}
	}

	if strings.TrimSpace(query) == "" {
		return "", 0, &errors.InvalidParamsError{Reason: "query must not be blank"}
	}

	if len([]rune(query)) > MaxQueryLength {
		return "", 0, &errors.InvalidParamsError{Reason: "query exceeds 400 characters"}
	}

	if len(strings.Fields(query)) > MaxQueryWords {
		return "", 0, &errors.InvalidParamsError{Reason: "query exceeds 50 words"}
	}

	count := search.DefaultCount

	if raw, present := args["count"]; present {
		n, ok := raw.(float64)
		if !ok {
			return "", 0, &errors.InvalidParamsError{Reason: "count must be a number"}
		}

		// Clamp before converting; out-of-range floats do not survive int().
		count = int(math.Min(math.Max(n, search.MinCount), search.MaxCount))
	}

	return query, search.ClampCount(count), nil
}

func ptr[T any](v T) *T { return &v }
