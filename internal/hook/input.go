package hook

// ParseInput builds the typed input for event from the raw hook_callback input.
//
// Every field is read independently: a missing or mistyped field falls back to
// its zero value instead of failing the whole input, so newer payload shapes
// still reach the callback.
func ParseInput(event Event, raw map[string]any) Input {
	base := BaseInput{
		SessionID:      str(raw, "session_id"),
		TranscriptPath: str(raw, "transcript_path"),
		Cwd:            str(raw, "cwd"),
		PermissionMode: str(raw, "permission_mode"),
	}

	switch event {
	case EventPreToolUse:
		return &PreToolUseInput{
			BaseInput: base,
			ToolName:  str(raw, "tool_name"),
			ToolInput: obj(raw, "tool_input"),
			ToolUseID: str(raw, "tool_use_id"),
		}

	case EventPostToolUse:
		response, ok := raw["tool_response"]
		if !ok {
			response = raw["tool_output"]
		}

		return &PostToolUseInput{
			BaseInput:    base,
			ToolName:     str(raw, "tool_name"),
			ToolInput:    obj(raw, "tool_input"),
			ToolUseID:    str(raw, "tool_use_id"),
			ToolResponse: response,
		}

	case EventNotification:
		return &NotificationInput{
			BaseInput:        base,
			Title:            str(raw, "title"),
			Message:          str(raw, "message"),
			NotificationType: str(raw, "notification_type"),
		}

	case EventSubagentStop:
		return &SubagentStopInput{
			StopInput: StopInput{
				BaseInput:      base,
				StopHookActive: boolean(raw, "stop_hook_active"),
				Reason:         str(raw, "reason"),
			},
			AgentID:   str(raw, "agent_id"),
			AgentType: str(raw, "agent_type"),
		}

	case EventUserPromptSubmit:
		return &UserPromptSubmitInput{
			BaseInput: base,
			Prompt:    str(raw, "prompt"),
		}

	default:
		return &StopInput{
			BaseInput:      base,
			StopHookActive: boolean(raw, "stop_hook_active"),
			Reason:         str(raw, "reason"),
		}
	}
}

func str(raw map[string]any, key string) string {
	s, _ := raw[key].(string)

	return s
}

func obj(raw map[string]any, key string) map[string]any {
	m, _ := raw[key].(map[string]any)

	return m
}

func boolean(raw map[string]any, key string) bool {
	b, _ := raw[key].(bool)

	return b
}
