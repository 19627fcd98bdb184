package agentpipe

import (
	"context"
	"fmt"
	"maps"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agentpipe/internal/frame"
)

// TestPermissionCallback_Deny tests a callback denying a dangerous command.
func TestPermissionCallback_Deny(t *testing.T) {
	transport := newMockTransport()
	startClient(t, transport, WithCanUseTool(func(
		_ context.Context,
		toolName string,
		input map[string]any,
		_ *ToolPermissionContext,
	) (PermissionResult, error) {
		if cmd, _ := input["command"].(string); toolName == "Bash" && cmd == "rm -rf /" {
			return &PermissionResultDeny{Message: "Dangerous command blocked", Interrupt: true}, nil
		}

		return &PermissionResultAllow{}, nil
	}))

	resp := transport.ask(t, "perm-1", frame.SubtypeCanUseTool, map[string]any{
		"tool_name": "Bash",
		"input":     map[string]any{"command": "rm -rf /"},
	})
	require.False(t, resp.IsError())
	require.Equal(t, map[string]any{
		"behavior":  "deny",
		"message":   "Dangerous command blocked",
		"interrupt": true,
	}, resp.Body)

	resp = transport.ask(t, "perm-2", frame.SubtypeCanUseTool, map[string]any{
		"tool_name": "Bash",
		"input":     map[string]any{"command": "ls"},
	})
	require.Equal(t, "allow", resp.Body["behavior"])
}

// TestPermissionCallback_InputModification tests a callback that rewrites the input.
func TestPermissionCallback_InputModification(t *testing.T) {
	transport := newMockTransport()
	startClient(t, transport, WithCanUseTool(func(
		_ context.Context,
		_ string,
		input map[string]any,
		permCtx *ToolPermissionContext,
	) (PermissionResult, error) {
		updated := maps.Clone(input)
		updated["safe_mode"] = true
		updated["suggestions"] = len(permCtx.Suggestions)

		return &PermissionResultAllow{UpdatedInput: updated}, nil
	}))

	resp := transport.ask(t, "perm-1", frame.SubtypeCanUseTool, map[string]any{
		"tool_name": "Write",
		"input":     map[string]any{"path": "a.txt"},
		"permission_suggestions": []any{
			map[string]any{"type": "setMode", "mode": "acceptEdits", "destination": "session"},
		},
	})

	require.Equal(t, "allow", resp.Body["behavior"])
	require.Equal(t, map[string]any{"path": "a.txt", "safe_mode": true, "suggestions": 1}, resp.Body["updatedInput"])
}

// TestPermissionCallback_Error tests that a failing callback answers with an error.
func TestPermissionCallback_Error(t *testing.T) {
	transport := newMockTransport()
	startClient(t, transport, WithCanUseTool(func(
		context.Context, string, map[string]any, *ToolPermissionContext,
	) (PermissionResult, error) {
		return nil, fmt.Errorf("callback error: database unavailable")
	}))

	resp := transport.ask(t, "perm-1", frame.SubtypeCanUseTool, map[string]any{"tool_name": "Bash"})
	require.True(t, resp.IsError())
	require.Contains(t, resp.Error, "database unavailable")
}

func TestPermission_FailOpenAndClosed(t *testing.T) {
	t.Run("no callback allows", func(t *testing.T) {
		transport := newMockTransport()
		startClient(t, transport)

		resp := transport.ask(t, "p", frame.SubtypeCanUseTool, map[string]any{"tool_name": "Bash"})
		require.Equal(t, "allow", resp.Body["behavior"])
	})

	t.Run("fail closed denies", func(t *testing.T) {
		transport := newMockTransport()
		startClient(t, transport, WithFailClosed())

		resp := transport.ask(t, "p", frame.SubtypeCanUseTool, map[string]any{"tool_name": "Bash"})
		require.Equal(t, "deny", resp.Body["behavior"])
	})

	t.Run("denied tools", func(t *testing.T) {
		transport := newMockTransport()
		startClient(t, transport, WithDeniedTools("Bash", "Write"))

		require.Equal(t, "deny", transport.ask(t, "a", frame.SubtypeCanUseTool,
			map[string]any{"tool_name": "Write"}).Body["behavior"])
		require.Equal(t, "allow", transport.ask(t, "b", frame.SubtypeCanUseTool,
			map[string]any{"tool_name": "Read"}).Body["behavior"])
	})
}

// TestHookExecution tests that hook ids map to callbacks in registration order.
func TestHookExecution(t *testing.T) {
	var calls atomic.Int32

	var gotTool, gotToolUseID string

	pre := NewHook(HookEventPreToolUse, "Bash", func(_ context.Context, in HookInput, toolUseID string) (*HookOutput, error) {
		calls.Add(1)

		gotTool = in.(*PreToolUseHookInput).ToolName
		gotToolUseID = toolUseID

		return BlockHook("no shell today"), nil
	})

	stop := NewHook(HookEventStop, "", func(context.Context, HookInput, string) (*HookOutput, error) {
		calls.Add(1)

		return nil, nil
	})

	transport := newMockTransport()
	startClient(t, transport, WithHooks(pre, stop))

	resp := transport.ask(t, "h-1", frame.SubtypeHookCallback, map[string]any{
		"callback_id": "hook_0",
		"tool_use_id": "toolu_1",
		"input": map[string]any{
			"hook_event_name": "PreToolUse",
			"session_id":      "s",
			"tool_name":       "Bash",
			"tool_input":      map[string]any{"command": "ls"},
		},
	})

	require.Equal(t, "Bash", gotTool)
	require.Equal(t, "toolu_1", gotToolUseID)
	require.Equal(t, false, resp.Body["continue"])
	require.Equal(t, map[string]any{
		"hookEventName":            "PreToolUse",
		"permissionDecision":       "deny",
		"permissionDecisionReason": "no shell today",
	}, resp.Body["hookSpecificOutput"])

	resp = transport.ask(t, "h-2", frame.SubtypeHookCallback, map[string]any{
		"callback_id": "hook_1",
		"input":       map[string]any{"hook_event_name": "Stop"},
	})
	require.Equal(t, map[string]any{"continue": true}, resp.Body)

	require.EqualValues(t, 2, calls.Load())

	// Unknown ids fail open.
	resp = transport.ask(t, "h-3", frame.SubtypeHookCallback, map[string]any{"callback_id": "hook_9"})
	require.Equal(t, true, resp.Body["continue"])
}

func TestMCPMessage_ToolServer(t *testing.T) {
	add := NewTool("add", "Add two numbers",
		SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
		func(_ context.Context, req *CallToolRequest) (*CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)

			return TextResult(fmt.Sprintf("%v", a+b)), nil
		})

	transport := newMockTransport()
	startClient(t, transport, WithMCPServer("calc", NewToolServer("calc", "1.0.0", add)))

	resp := transport.ask(t, "m-1", frame.SubtypeMCPMessage, map[string]any{
		"server_name": "calc",
		"message": map[string]any{
			"jsonrpc": "2.0",
			"id":      float64(7),
			"method":  "tools/call",
			"params":  map[string]any{"name": "add", "arguments": map[string]any{"a": 2.0, "b": 3.0}},
		},
	})

	reply := resp.Body["mcp_response"].(map[string]any)
	require.EqualValues(t, 7, reply["id"])

	result := reply["result"].(map[string]any)
	content := result["content"].([]map[string]any)
	require.Equal(t, "5", content[0]["text"])

	resp = transport.ask(t, "m-2", frame.SubtypeMCPMessage, map[string]any{
		"server_name": "missing",
		"message":     map[string]any{"jsonrpc": "2.0", "id": float64(8), "method": "tools/list"},
	})
	require.False(t, resp.IsError())
	require.Contains(t, resp.Body["mcp_response"], "error")
}

func TestMCPMessage_CustomHandler(t *testing.T) {
	handler := MCPHandlerFunc(func(_ context.Context, server string, msg map[string]any) (map[string]any, error) {
		return map[string]any{"jsonrpc": "2.0", "id": msg["id"], "result": map[string]any{"server": server}}, nil
	})

	transport := newMockTransport()
	startClient(t, transport, WithMCPHandler(handler))

	resp := transport.ask(t, "m-1", frame.SubtypeMCPMessage, map[string]any{
		"server_name": "remote-proxy",
		"message":     map[string]any{"jsonrpc": "2.0", "id": "x", "method": "ping"},
	})

	reply := resp.Body["mcp_response"].(map[string]any)
	require.Equal(t, map[string]any{"server": "remote-proxy"}, reply["result"])
}
