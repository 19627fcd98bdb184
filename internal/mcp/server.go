package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Compile-time verification that ToolServer implements Server.
var _ Server = (*ToolServer)(nil)

// ToolServer is a Server whose tools are defined with the MCP SDK types.
//
// The SDK's own Server speaks over a transport; here tools are invoked directly
// from mcp_message requests, so the registry is kept locally.
type ToolServer struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool
}

type registeredTool struct {
	tool    *sdk.Tool
	handler sdk.ToolHandler
}

// NewToolServer creates an empty tool server.
func NewToolServer(name, version string) *ToolServer {
	return &ToolServer{
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 8),
	}
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *ToolServer) AddTool(tool *sdk.Tool, handler sdk.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// Name implements Server.
func (s *ToolServer) Name() string { return s.name }

// Version implements Server.
func (s *ToolServer) Version() string { return s.version }

// ListTools implements Server. Tools are sorted by name.
func (s *ToolServer) ListTools() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	out := make([]map[string]any, 0, len(names))

	for _, name := range names {
		t := s.tools[name].tool
		entry := map[string]any{
			"name":        t.Name,
			"description": t.Description,
		}

		if schema, ok := toMap(t.InputSchema); ok {
			entry["inputSchema"] = schema
		}

		if t.Annotations != nil {
			if annotations, ok := toMap(t.Annotations); ok {
				entry["annotations"] = annotations
			}
		}

		out = append(out, entry)
	}

	return out
}

// CallTool implements Server.
func (s *ToolServer) CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	s.mu.RLock()
	t, ok := s.tools[name]
	s.mu.RUnlock()

	if !ok {
		return failure("Tool not found: " + name), nil
	}

	if input == nil {
		input = map[string]any{}
	}

	args, err := json.Marshal(input)
	if err != nil {
		return failure("Invalid arguments: " + err.Error()), nil //nolint:nilerr // reported in the result
	}

	result, err := t.handler(ctx, &sdk.CallToolRequest{
		Params: &sdk.CallToolParamsRaw{Name: name, Arguments: args},
	})
	if err != nil {
		return failure("Tool execution failed: " + err.Error()), nil //nolint:nilerr // reported in the result
	}

	return resultToMap(result), nil
}

func failure(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
		"isError": true,
	}
}

// toMap converts a JSON-marshalable value into a generic map.
func toMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return nil, false
	}

	return m, true
}

// resultToMap renders an SDK CallToolResult in tools/call result shape.
func resultToMap(result *sdk.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{"content": []map[string]any{}}
	}

	content := make([]map[string]any, 0, len(result.Content))

	for _, c := range result.Content {
		switch v := c.(type) {
		case *sdk.TextContent:
			content = append(content, map[string]any{"type": "text", "text": v.Text})
		case *sdk.ImageContent:
			content = append(content, map[string]any{"type": "image", "data": v.Data, "mimeType": v.MIMEType})
		case *sdk.AudioContent:
			content = append(content, map[string]any{"type": "audio", "data": v.Data, "mimeType": v.MIMEType})
		case *sdk.ResourceLink:
			content = append(content, map[string]any{"type": "resource_link", "uri": v.URI, "name": v.Name})
		case *sdk.EmbeddedResource:
			if v.Resource == nil {
				continue
			}

			content = append(content, map[string]any{
				"type": "resource",
				"resource": map[string]any{
					"uri":      v.Resource.URI,
					"mimeType": v.Resource.MIMEType,
					"text":     v.Resource.Text,
				},
			})
		}
	}

	out := map[string]any{"content": content}
	if result.IsError {
		out["isError"] = true
	}

	return out
}

// NewTool creates an SDK tool definition.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *sdk.Tool {
	if inputSchema == nil {
		inputSchema = &jsonschema.Schema{Type: "object"}
	}

	return &sdk.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// SimpleSchema builds an object schema from property name -> Go type name,
// e.g. {"path": "string", "lines": "[]int"}. Every property is required.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = schemaFor(goType)
		required = append(required, name)
	}

	sort.Strings(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func schemaFor(goType string) *jsonschema.Schema {
	if item, ok := strings.CutPrefix(goType, "[]"); ok && item != "" {
		return &jsonschema.Schema{Type: "array", Items: schemaFor(item)}
	}

	switch goType {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

// TextResult creates a successful text result.
func TextResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: text}}}
}

// ErrorResult creates a text result flagged as a tool error.
func ErrorResult(message string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: message}},
		IsError: true,
	}
}

// ParseArguments decodes tools/call arguments into a map.
func ParseArguments(req *sdk.CallToolRequest) (map[string]any, error) {
	args := make(map[string]any)

	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}

	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("unmarshal tool arguments: %w", err)
	}

	return args, nil
}
