package mcp

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/search"
)

// stubSearcher records every call and returns a canned answer.
type stubSearcher struct {
	calls  int
	query  string
	count  int
	result string
	err    error
}

func (s *stubSearcher) Search(_ context.Context, query string, count int) (string, error) {
	s.calls++
	s.query = query
	s.count = count

	return s.result, s.err
}

func newWebSearchRegistry(t *testing.T, searcher search.Searcher) *Registry {
	t.Helper()

	registry := NewRegistry()
	require.NoError(t, RegisterWebSearch(registry, searcher))

	return registry
}

func TestWebSearch_Descriptor(t *testing.T) {
	tools := newWebSearchRegistry(t, &stubSearcher{}).ListTools()
	require.Len(t, tools, 1)
	require.Equal(t, WebSearchToolName, tools[0]["name"])
	require.Equal(t, "Performs a web search using the Brave Search API", tools[0]["description"])

	schema := tools[0]["inputSchema"].(map[string]any)
	require.Equal(t, []any{"query"}, schema["required"])

	properties := schema["properties"].(map[string]any)
	query := properties["query"].(map[string]any)
	require.Equal(t, "string", query["type"])

	count := properties["count"].(map[string]any)
	require.Equal(t, "number", count["type"])
	require.Equal(t, float64(10), count["default"])
}

func TestWebSearch_CountHandling(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{name: "default", args: map[string]any{"query": "go"}, want: 10},
		{name: "in range", args: map[string]any{"query": "go", "count": 5.0}, want: 5},
		{name: "above max", args: map[string]any{"query": "go", "count": 25.0}, want: 20},
		{name: "zero", args: map[string]any{"query": "go", "count": 0.0}, want: 1},
		{name: "negative", args: map[string]any{"query": "go", "count": -4.0}, want: 1},
		{name: "fractional", args: map[string]any{"query": "go", "count": 7.9}, want: 7},
		{name: "beyond int range", args: map[string]any{"query": "go", "count": 1e19}, want: 20},
		{name: "huge", args: map[string]any{"query": "go", "count": 1e300}, want: 20},
		{name: "huge negative", args: map[string]any{"query": "go", "count": -1e300}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &stubSearcher{result: search.NoResults}
			registry := newWebSearchRegistry(t, searcher)

			result, err := registry.CallTool(context.Background(), WebSearchToolName, tt.args)
			require.NoError(t, err)
			require.Equal(t, 1, searcher.calls)
			require.Equal(t, tt.want, searcher.count)
			require.Equal(t, "go", searcher.query)
			require.Equal(t, map[string]any{
				"content": []map[string]any{{"type": "text", "text": search.NoResults}},
				"isError": false,
			}, result)
		})
	}
}

func TestWebSearch_InvalidArgumentsSkipUpstream(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "missing query", args: map[string]any{"count": 3.0}},
		{name: "empty query", args: map[string]any{"query": ""}},
		{name: "blank query", args: map[string]any{"query": "   "}},
		{name: "non-string query", args: map[string]any{"query": 7.0}},
		{name: "too long", args: map[string]any{"query": strings.Repeat("a", MaxQueryLength+1)}},
		{name: "too many words", args: map[string]any{"query": strings.TrimSpace(strings.Repeat("w ", MaxQueryWords+1))}},
		{name: "non-numeric count", args: map[string]any{"query": "go", "count": "ten"}},
		{name: "null count", args: map[string]any{"query": "go", "count": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &stubSearcher{}
			registry := newWebSearchRegistry(t, searcher)

			_, err := registry.CallTool(context.Background(), WebSearchToolName, tt.args)
			require.Equal(t, errors.CodeInvalidParams, errors.CodeOf(err), "got %v", err)
			require.Zero(t, searcher.calls)
		})
	}
}

func TestWebSearch_QueryAtLimits(t *testing.T) {
	searcher := &stubSearcher{result: search.NoResults}
	registry := newWebSearchRegistry(t, searcher)

	words := strings.TrimSpace(strings.Repeat("w ", MaxQueryWords))
	_, err := registry.CallTool(context.Background(), WebSearchToolName, map[string]any{"query": words})
	require.NoError(t, err)

	_, err = registry.CallTool(context.Background(), WebSearchToolName,
		map[string]any{"query": strings.Repeat("a", MaxQueryLength)})
	require.NoError(t, err)
	require.Equal(t, 2, searcher.calls)
}

func TestWebSearch_UpstreamErrorPropagates(t *testing.T) {
	searcher := &stubSearcher{err: &errors.UpstreamError{Timeout: 30 * time.Second}}
	registry := newWebSearchRegistry(t, searcher)

	_, err := registry.CallTool(context.Background(), WebSearchToolName, map[string]any{"query": "go"})

	upstreamErr, ok := stderrors.AsType[*errors.UpstreamError](err)
	require.True(t, ok)
	require.True(t, upstreamErr.IsTimeout())
	require.Equal(t, errors.CodeUpstreamError, errors.CodeOf(err))
}
