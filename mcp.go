package agentpipe

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/agentpipe/internal/mcp"
)

// MCPHandler answers mcp_message requests: one JSON-RPC message for a named
// server in, one JSON-RPC message out.
type MCPHandler = internalmcp.Handler

// MCPHandlerFunc adapts a function to MCPHandler.
type MCPHandlerFunc = internalmcp.HandlerFunc

// MCPServer is an in-process tool server.
type MCPServer = internalmcp.Server

// MCPStatus is the get_mcp_status response.
type MCPStatus = internalmcp.Status

// MCPServerStatus is one server's entry in MCPStatus.
type MCPServerStatus = internalmcp.ServerStatus

// Re-export MCP SDK types for public API.
// These are the official MCP protocol types.
type (
	// CallToolResult is the server's response to a tool call.
	// Use TextResult or ErrorResult to create results.
	CallToolResult = mcp.CallToolResult

	// CallToolRequest is the request passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest

	// McpTextContent represents text content in a tool result.
	McpTextContent = mcp.TextContent

	// McpTool represents an MCP tool definition from the official SDK.
	McpTool = mcp.Tool

	// McpToolAnnotations describes optional hints about tool behavior.
	McpToolAnnotations = mcp.ToolAnnotations

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// MCPErrorReply builds a JSON-RPC error message, for custom MCPHandlers.
func MCPErrorReply(id any, code int, message string) map[string]any {
	return internalmcp.ErrorReply(id, code, message)
}

// SimpleSchema creates a jsonschema.Schema from a simple type map.
//
// Input format: {"a": "float64", "b": "string"}
//
// Type mappings:
//   - "string"           → {"type": "string"}
//   - "int", "int64"     → {"type": "integer"}
//   - "float64", "float" → {"type": "number"}
//   - "bool"             → {"type": "boolean"}
//   - "[]string"         → {"type": "array", "items": {"type": "string"}}
//   - "any", "object"    → {"type": "object"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	return internalmcp.ParseArguments(req)
}
