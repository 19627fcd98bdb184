package agentpipe

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/agentpipe/internal/mcp"
)

// ToolHandler is the function signature for Tool handlers.
//
// Use ParseArguments to extract input as map[string]any from the request.
// Use TextResult or ErrorResult to create results.
//
//	func(ctx context.Context, req *agentpipe.CallToolRequest) (*agentpipe.CallToolResult, error) {
//	    args, err := agentpipe.ParseArguments(req)
//	    if err != nil {
//	        return agentpipe.ErrorResult(err.Error()), nil
//	    }
//	    return agentpipe.TextResult(fmt.Sprintf("got %v", args["a"])), nil
//	}
type ToolHandler = mcp.ToolHandler

// ToolOption configures a Tool during construction.
type ToolOption func(*Tool)

// WithAnnotations sets MCP tool annotations (hints about tool behavior).
func WithAnnotations(annotations *mcp.ToolAnnotations) ToolOption {
	return func(t *Tool) {
		t.ToolAnnotations = annotations
	}
}

// Tool is a tool served by an in-process tool server.
type Tool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      *jsonschema.Schema
	ToolHandler     ToolHandler
	ToolAnnotations *mcp.ToolAnnotations
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return t.ToolName
}

// Description returns the tool description.
func (t *Tool) Description() string {
	return t.ToolDescription
}

// InputSchema returns the JSON Schema for the tool input.
func (t *Tool) InputSchema() *jsonschema.Schema {
	return t.ToolSchema
}

// definition renders the tool as an MCP tool definition.
func (t *Tool) definition() *mcp.Tool {
	def := internalmcp.NewTool(t.ToolName, t.ToolDescription, t.ToolSchema)
	def.Annotations = t.ToolAnnotations

	return def
}

// NewTool creates a Tool with optional configuration.
//
//	add := agentpipe.NewTool("add", "Add two numbers",
//	    agentpipe.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    addHandler,
//	    agentpipe.WithAnnotations(&agentpipe.McpToolAnnotations{ReadOnlyHint: true}),
//	)
func NewTool(
	name, description string,
	inputSchema *jsonschema.Schema,
	handler ToolHandler,
	opts ...ToolOption,
) *Tool {
	t := &Tool{
		ToolName:        name,
		ToolDescription: description,
		ToolSchema:      inputSchema,
		ToolHandler:     handler,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}
