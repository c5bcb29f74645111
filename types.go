package saaros

import (
	"github.com/mjochum64/saaros-mcp-server/internal/config"
	"github.com/mjochum64/saaros-mcp-server/internal/mcp"
	"github.com/mjochum64/saaros-mcp-server/internal/protocol"
	"github.com/mjochum64/saaros-mcp-server/internal/search"
	"github.com/mjochum64/saaros-mcp-server/internal/worker"
)

// Re-export types from internal packages

// ===== Configuration =====

// Config holds all server settings.
type Config = config.Config

// LoadConfig loads envFile (".env" when empty, ignored if absent) into
// the environment and parses the settings.
func LoadConfig(envFile string) (*Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	return config.Load()
}

// ===== Wire Protocol =====

// Request is an inbound JSON-RPC request.
type Request = protocol.Request

// Response is the single reply to a Request.
type Response = protocol.Response

// ResponseErrorObject is the error member of a Response.
type ResponseErrorObject = protocol.Error

// CallToolParams is the params object of a callTool request.
type CallToolParams = protocol.CallToolParams

// Supported methods.
const (
	MethodListTools = protocol.MethodListTools
	MethodCallTool  = protocol.MethodCallTool
)

// NewRequest builds a request. A nil id yields a null id in the response.
func NewRequest(id any, method string, params any) (*Request, error) {
	return protocol.NewRequest(id, method, params)
}

// ===== Worker Lifecycle =====

// State is the server lifecycle state.
type State = worker.State

// Lifecycle states.
const (
	StateCreated  = worker.StateCreated
	StateRunning  = worker.StateRunning
	StateStopping = worker.StateStopping
	StateStopped  = worker.StateStopped
)

// ===== Search Results =====

// WebSearchToolName is the name of the registered search tool.
const WebSearchToolName = mcp.WebSearchToolName

// NoResults is the result text when the provider found nothing.
const NoResults = search.NoResults

// SearchResult is one entry of a search result text.
type SearchResult = search.Result

// ParseResults splits search result text back into entries.
// NoResults yields an empty slice.
func ParseResults(text string) []SearchResult {
	return search.ParseResults(text)
}
