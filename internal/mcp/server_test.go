package mcp

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func echoServer() *ToolServer {
	server := NewToolServer("demo", "1.0.0")
	server.AddTool(
		NewTool("echo", "echoes text", SimpleSchema(map[string]string{"text": "string"})),
		func(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return TextResult("echo: " + text), nil
		},
	)

	return server
}

func TestToolServer_ListTools(t *testing.T) {
	server := echoServer()
	server.AddTool(NewTool("after", "sorted second", nil), func(context.Context, *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		return nil, nil
	})

	tools := server.ListTools()
	require.Len(t, tools, 2)
	require.Equal(t, "after", tools[0]["name"])
	require.Equal(t, "echo", tools[1]["name"])
	require.Equal(t, "echoes text", tools[1]["description"])

	schema, ok := tools[1]["inputSchema"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "object", schema["type"])
	require.Equal(t, []any{"text"}, schema["required"])
}

func TestToolServer_CallTool(t *testing.T) {
	server := echoServer()

	result, err := server.CallTool(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"content": []map[string]any{{"type": "text", "text": "echo: hello"}},
	}, result)

	missing, err := server.CallTool(context.Background(), "nope", nil)
	require.NoError(t, err)
	require.Equal(t, true, missing["isError"])
}

func TestToolServer_CallToolHandlerError(t *testing.T) {
	server := NewToolServer("demo", "1.0.0")
	server.AddTool(NewTool("fails", "always fails", nil), func(context.Context, *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		return nil, errors.New("boom")
	})

	result, err := server.CallTool(context.Background(), "fails", nil)
	require.NoError(t, err)
	require.Equal(t, true, result["isError"])

	content := result["content"].([]map[string]any)
	require.Equal(t, "Tool execution failed: boom", content[0]["text"])
}

func TestResultToMap(t *testing.T) {
	require.Equal(t, map[string]any{"content": []map[string]any{}}, resultToMap(nil))

	got := resultToMap(&sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: "hello"},
			&sdk.ImageContent{Data: []byte("img"), MIMEType: "image/png"},
			&sdk.AudioContent{Data: []byte("aud"), MIMEType: "audio/wav"},
			&sdk.ResourceLink{URI: "file:///a.txt", Name: "a.txt"},
			&sdk.EmbeddedResource{Resource: &sdk.ResourceContents{URI: "file:///b.txt", Text: "body"}},
			&sdk.EmbeddedResource{},
		},
		IsError: true,
	})

	content := got["content"].([]map[string]any)
	require.Len(t, content, 5)
	require.Equal(t, true, got["isError"])

	kinds := make([]string, 0, len(content))
	for _, c := range content {
		kinds = append(kinds, c["type"].(string))
	}

	require.Equal(t, []string{"text", "image", "audio", "resource_link", "resource"}, kinds)
}

func TestSimpleSchema(t *testing.T) {
	schema := SimpleSchema(map[string]string{
		"name":   "string",
		"active": "bool",
		"count":  "int64",
		"scores": "[]float64",
		"meta":   "map[string]any",
		"other":  "customType",
	})

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"active", "count", "meta", "name", "other", "scores"}, schema.Required)
	require.Equal(t, "boolean", schema.Properties["active"].Type)
	require.Equal(t, "integer", schema.Properties["count"].Type)
	require.Equal(t, "object", schema.Properties["meta"].Type)
	require.Equal(t, "string", schema.Properties["other"].Type)
	require.Equal(t, "array", schema.Properties["scores"].Type)
	require.Equal(t, "number", schema.Properties["scores"].Items.Type)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = ParseArguments(&sdk.CallToolRequest{Params: &sdk.CallToolParamsRaw{Arguments: []byte(`{"n":3}`)}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"n": float64(3)}, args)

	_, err = ParseArguments(&sdk.CallToolRequest{Params: &sdk.CallToolParamsRaw{Arguments: []byte(`{"n":`)}})
	require.ErrorContains(t, err, "unmarshal tool arguments")
}

func TestDecodeStatus(t *testing.T) {
	status, err := DecodeStatus(map[string]any{
		"mcpServers": []any{
			map[string]any{"name": "calc", "status": "connected"},
			map[string]any{"name": "fs", "status": "failed"},
		},
	})
	require.NoError(t, err)
	require.Len(t, status.MCPServers, 2)
	require.True(t, status.Connected("calc"))
	require.False(t, status.Connected("fs"))
	require.False(t, status.Connected("missing"))

	_, err = DecodeStatus(map[string]any{"mcpServers": "nope"})
	require.Error(t, err)
}
