package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
)

// Handler executes one tool call.
type Handler = mcp.ToolHandler

// Registry is a thread-safe, ordered set of tools.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*registeredTool
}

// registeredTool holds the descriptor, its resolved schema, and the handler.
type registeredTool struct {
	tool     *mcp.Tool
	schema   *jsonschema.Resolved
	handler  Handler
	listView map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registeredTool, 1),
	}
}

// AddTool registers a tool. The input schema, if any, must be a
// *jsonschema.Schema that resolves. Registering a name twice replaces the
// earlier tool but keeps its position.
func (r *Registry) AddTool(tool *mcp.Tool, handler Handler) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}

	if handler == nil {
		return fmt.Errorf("tool %s: handler is required", tool.Name)
	}

	entry := &registeredTool{
		tool:    tool,
		handler: handler,
	}

	if tool.InputSchema != nil {
		schema, ok := tool.InputSchema.(*jsonschema.Schema)
		if !ok {
			return fmt.Errorf("tool %s: input schema must be *jsonschema.Schema, got %T", tool.Name, tool.InputSchema)
		}

		resolved, err := schema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("tool %s: resolve input schema: %w", tool.Name, err)
		}

		entry.schema = resolved
	}

	view, err := descriptorMap(tool)
	if err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name, err)
	}

	entry.listView = view

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}

	r.tools[tool.Name] = entry

	return nil
}

// ListTools returns descriptors in registration order, ready for the wire.
// The maps are shared and must not be modified.
func (r *Registry) ListTools() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name].listView)
	}

	return result
}

// Resolve looks up the handler for name.
func (r *Registry) Resolve(name string) (Handler, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	return entry.handler, nil
}

// CallTool validates args against the tool schema, runs the handler, and
// converts the result for the wire.
//
// Validation failures return InvalidParamsError without invoking the
// handler. Handler errors are returned unchanged.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}

	if entry.schema != nil {
		if err := entry.schema.Validate(args); err != nil {
			return nil, &errors.InvalidParamsError{Reason: "arguments do not match input schema", Err: err}
		}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &errors.InvalidParamsError{Reason: "arguments are not serializable", Err: err}
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: raw,
		},
	}

	result, err := entry.handler(ctx, req)
	if err != nil {
		return nil, err
	}

	return convertCallToolResultToMap(result), nil
}

func (r *Registry) lookup(name string) (*registeredTool, error) {
	r.mu.RLock()
	entry, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return nil, &errors.ToolNotFoundError{Name: name}
	}

	return entry, nil
}

// descriptorMap renders the {name, description, inputSchema} view once at
// registration so every listTools call returns identical output.
func descriptorMap(tool *mcp.Tool) (map[string]any, error) {
	toolMap := map[string]any{
		"name":        tool.Name,
		"description": tool.Description,
	}

	if tool.InputSchema != nil {
		schemaMap, err := toMap(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode input schema: %w", err)
		}

		toolMap["inputSchema"] = schemaMap
	}

	if tool.Annotations != nil {
		annotMap, err := toMap(tool.Annotations)
		if err != nil {
			return nil, fmt.Errorf("encode annotations: %w", err)
		}

		toolMap["annotations"] = annotMap
	}

	return toolMap, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return m, nil
}

// convertCallToolResultToMap converts an MCP CallToolResult to the
// callTool result object. isError is always present.
func convertCallToolResultToMap(result *mcp.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{
			"content": []map[string]any{},
			"isError": false,
		}
	}

	content := make([]map[string]any, 0, len(result.Content))
	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			content = append(content, map[string]any{
				"type": "text",
				"text": v.Text,
			})
		case *mcp.ResourceLink:
			content = append(content, map[string]any{
				"type": "resource_link",
				"uri":  v.URI,
				"name": v.Name,
			})
		default:
			// Other content kinds carry their own wire encoding.
			if m, err := toMap(c); err == nil {
				content = append(content, m)
			}
		}
	}

	return map[string]any{
		"content": content,
		"isError": result.IsError,
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// NewTool creates an mcp.Tool with the given parameters.
// A nil schema leaves the tool without input validation.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	tool := &mcp.Tool{
		Name:        name,
		Description: description,
	}

	if inputSchema != nil {
		tool.InputSchema = inputSchema
	}

	return tool
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return args, nil
}
