package hook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noop(context.Context, Input, string) (*Output, error) { return nil, nil }

func TestParseInput_PreToolUse(t *testing.T) {
	in := ParseInput(EventPreToolUse, map[string]any{
		"session_id":  "s1",
		"cwd":         "/work",
		"tool_name":   "Bash",
		"tool_input":  map[string]any{"command": "ls"},
		"tool_use_id": "tu_1",
	})

	pre, ok := in.(*PreToolUseInput)
	require.True(t, ok)
	require.Equal(t, "Bash", pre.ToolName)
	require.Equal(t, map[string]any{"command": "ls"}, pre.ToolInput)
	require.Equal(t, "tu_1", pre.ToolUseID)
	require.Equal(t, "s1", pre.Base().SessionID)
	require.Equal(t, "/work", pre.Cwd)
}

func TestParseInput_PartialFieldsDefault(t *testing.T) {
	// tool_name has the wrong type and tool_input is missing; the rest survives.
	in := ParseInput(EventPreToolUse, map[string]any{
		"tool_name":   42,
		"tool_use_id": "tu_2",
	})

	pre := in.(*PreToolUseInput)
	require.Empty(t, pre.ToolName)
	require.Nil(t, pre.ToolInput)
	require.Equal(t, "tu_2", pre.ToolUseID)
}

func TestParseInput_PostToolUse(t *testing.T) {
	t.Run("tool_response", func(t *testing.T) {
		in := ParseInput(EventPostToolUse, map[string]any{"tool_name": "Read", "tool_response": "ok"})
		require.Equal(t, "ok", in.(*PostToolUseInput).ToolResponse)
	})

	t.Run("legacy tool_output", func(t *testing.T) {
		in := ParseInput(EventPostToolUse, map[string]any{"tool_output": map[string]any{"n": 1.0}})
		require.Equal(t, map[string]any{"n": 1.0}, in.(*PostToolUseInput).ToolResponse)
	})
}

func TestParseInput_Variants(t *testing.T) {
	notif := ParseInput(EventNotification, map[string]any{"title": "T", "message": "M"}).(*NotificationInput)
	require.Equal(t, "T", notif.Title)
	require.Equal(t, "M", notif.Message)

	stop := ParseInput(EventStop, map[string]any{"stop_hook_active": true, "reason": "done"}).(*StopInput)
	require.True(t, stop.StopHookActive)
	require.Equal(t, "done", stop.Reason)

	sub := ParseInput(EventSubagentStop, map[string]any{"agent_id": "a1", "stop_hook_active": "yes"}).(*SubagentStopInput)
	require.Equal(t, "a1", sub.AgentID)
	require.False(t, sub.StopHookActive)
	require.Equal(t, EventSubagentStop, sub.HookEvent())

	prompt := ParseInput(EventUserPromptSubmit, map[string]any{"prompt": "hi"}).(*UserPromptSubmitInput)
	require.Equal(t, "hi", prompt.Prompt)

	unknown := ParseInput(Event("FutureEvent"), nil)
	require.IsType(t, &StopInput{}, unknown)
}

func TestOutputBody(t *testing.T) {
	tests := []struct {
		name string
		out  *Output
		want map[string]any
	}{
		{name: "nil", out: nil, want: map[string]any{"continue": true}},
		{name: "no decision", out: &Output{}, want: map[string]any{"continue": true}},
		{
			name: "approve",
			out:  Approve(),
			want: map[string]any{
				"continue": true,
				"hookSpecificOutput": map[string]any{
					"hookEventName":            "PreToolUse",
					"permissionDecision":       "approve",
					"permissionDecisionReason": "",
				},
			},
		},
		{
			name: "block",
			out:  Block("dangerous"),
			want: map[string]any{
				"continue": false,
				"hookSpecificOutput": map[string]any{
					"hookEventName":            "PreToolUse",
					"permissionDecision":       "deny",
					"permissionDecisionReason": "dangerous",
				},
			},
		},
		{
			name: "ignore with system message",
			out:  &Output{Decision: DecisionIgnore, SystemMessage: "note", SuppressOutput: true},
			want: map[string]any{
				"continue": true,
				"hookSpecificOutput": map[string]any{
					"hookEventName":            "PreToolUse",
					"permissionDecision":       "ignore",
					"permissionDecisionReason": "",
				},
				"systemMessage":  "note",
				"suppressOutput": true,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.out.Body(EventPreToolUse))
		})
	}
}

func TestRegistry_LookupByIndex(t *testing.T) {
	defs := make([]*Definition, 5)
	for i := range defs {
		defs[i] = &Definition{Event: EventPreToolUse, Callback: noop}
	}

	r := NewRegistry(defs...)
	require.Equal(t, 5, r.Len())

	for i := range defs {
		got, ok := r.Lookup(CallbackID(i))
		require.True(t, ok)
		require.Same(t, defs[i], got)
	}
}

func TestRegistry_LookupInvalid(t *testing.T) {
	r := NewRegistry(&Definition{Event: EventStop, Callback: noop})

	for _, id := range []string{"hook_1", "hook_-1", "hook_", "hook_x", "cb_0", "", "hook_99999999999999999999"} {
		_, ok := r.Lookup(id)
		require.False(t, ok, id)
	}

	var nilRegistry *Registry

	_, ok := nilRegistry.Lookup("hook_0")
	require.False(t, ok)
	require.Equal(t, 0, nilRegistry.Len())
}

func TestRegistry_DropsIncompleteDefinitions(t *testing.T) {
	kept := &Definition{Event: EventStop, Callback: noop}
	r := NewRegistry(nil, &Definition{Event: EventStop}, kept)

	require.Equal(t, 1, r.Len())

	got, ok := r.Lookup("hook_0")
	require.True(t, ok)
	require.Same(t, kept, got)
}

func TestRegistry_InitConfig(t *testing.T) {
	r := NewRegistry(
		&Definition{Event: EventPreToolUse, Matcher: "Bash", Timeout: 5 * time.Second, Callback: noop},
		&Definition{Event: EventStop, Callback: noop},
		&Definition{Event: EventPreToolUse, Callback: noop},
	)

	require.Equal(t, map[string]any{
		"PreToolUse": []map[string]any{
			{"matcher": "Bash", "hookCallbackIds": []string{"hook_0"}, "timeout": 5.0},
			{"matcher": nil, "hookCallbackIds": []string{"hook_2"}},
		},
		"Stop": []map[string]any{
			{"matcher": nil, "hookCallbackIds": []string{"hook_1"}},
		},
	}, r.InitConfig())
}
