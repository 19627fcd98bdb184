// Package hook provides the hook capability: typed event inputs, decisions,
// and the ordered registry that maps wire callback ids to callbacks.
package hook

import (
	"context"
	"time"
)

// Event represents the type of event that triggers a hook.
type Event string

const (
	// EventPreToolUse is triggered before a tool is used.
	EventPreToolUse Event = "PreToolUse"
	// EventPostToolUse is triggered after a tool is used.
	EventPostToolUse Event = "PostToolUse"
	// EventNotification is triggered when the process emits a notification.
	EventNotification Event = "Notification"
	// EventStop is triggered when the main agent stops.
	EventStop Event = "Stop"
	// EventSubagentStop is triggered when a subagent stops.
	EventSubagentStop Event = "SubagentStop"
	// EventUserPromptSubmit is triggered when a prompt is submitted.
	EventUserPromptSubmit Event = "UserPromptSubmit"
)

// Input is the interface for all hook input types.
type Input interface {
	HookEvent() Event
	Base() *BaseInput
}

// Compile-time verification that all hook input types implement Input.
var (
	_ Input = (*PreToolUseInput)(nil)
	_ Input = (*PostToolUseInput)(nil)
	_ Input = (*NotificationInput)(nil)
	_ Input = (*StopInput)(nil)
	_ Input = (*SubagentStopInput)(nil)
	_ Input = (*UserPromptSubmitInput)(nil)
)

// BaseInput contains fields common to all hook inputs.
type BaseInput struct {
	SessionID      string
	TranscriptPath string
	Cwd            string
	PermissionMode string
}

// Base implements Input.
func (b *BaseInput) Base() *BaseInput { return b }

// PreToolUseInput is the input for PreToolUse hooks.
type PreToolUseInput struct {
	BaseInput
	ToolName  string
	ToolInput map[string]any
	ToolUseID string
}

// HookEvent implements Input.
func (*PreToolUseInput) HookEvent() Event { return EventPreToolUse }

// PostToolUseInput is the input for PostToolUse hooks.
type PostToolUseInput struct {
	BaseInput
	ToolName     string
	ToolInput    map[string]any
	ToolUseID    string
	ToolResponse any
}

// HookEvent implements Input.
func (*PostToolUseInput) HookEvent() Event { return EventPostToolUse }

// NotificationInput is the input for Notification hooks.
type NotificationInput struct {
	BaseInput
	Title            string
	Message          string
	NotificationType string
}

// HookEvent implements Input.
func (*NotificationInput) HookEvent() Event { return EventNotification }

// StopInput is the input for Stop hooks.
type StopInput struct {
	BaseInput
	StopHookActive bool
	Reason         string
}

// HookEvent implements Input.
func (*StopInput) HookEvent() Event { return EventStop }

// SubagentStopInput is the input for SubagentStop hooks.
type SubagentStopInput struct {
	StopInput
	AgentID   string
	AgentType string
}

// HookEvent implements Input.
func (*SubagentStopInput) HookEvent() Event { return EventSubagentStop }

// UserPromptSubmitInput is the input for UserPromptSubmit hooks.
type UserPromptSubmitInput struct {
	BaseInput
	Prompt string
}

// HookEvent implements Input.
func (*UserPromptSubmitInput) HookEvent() Event { return EventUserPromptSubmit }

// Decision is a hook's verdict.
type Decision string

const (
	// DecisionNone leaves the process's behavior unchanged.
	DecisionNone Decision = ""
	// DecisionApprove approves the operation.
	DecisionApprove Decision = "approve"
	// DecisionBlock blocks the operation and stops continuation.
	DecisionBlock Decision = "block"
	// DecisionIgnore explicitly abstains.
	DecisionIgnore Decision = "ignore"
)

// wire returns the permissionDecision value sent to the process.
func (d Decision) wire() string {
	if d == DecisionBlock {
		return "deny"
	}

	return string(d)
}

// Output is what a hook callback returns. A nil Output means continue.
type Output struct {
	Decision Decision
	Reason   string
	// SystemMessage is shown to the user by the process, if set.
	SystemMessage string
	// SuppressOutput hides the hook's output from the transcript.
	SuppressOutput bool
}

// Approve returns an approving output.
func Approve() *Output { return &Output{Decision: DecisionApprove} }

// Block returns a blocking output with a reason.
func Block(reason string) *Output { return &Output{Decision: DecisionBlock, Reason: reason} }

// Ignore returns an abstaining output.
func Ignore() *Output { return &Output{Decision: DecisionIgnore} }

// Body renders the output as the hook_callback response body for the given event.
func (o *Output) Body(event Event) map[string]any {
	body := map[string]any{"continue": true}
	if o == nil {
		return body
	}

	if o.Decision != DecisionNone {
		body["hookSpecificOutput"] = map[string]any{
			"hookEventName":            string(event),
			"permissionDecision":       o.Decision.wire(),
			"permissionDecisionReason": o.Reason,
		}

		if o.Decision == DecisionBlock {
			body["continue"] = false
		}
	}

	if o.SystemMessage != "" {
		body["systemMessage"] = o.SystemMessage
	}

	if o.SuppressOutput {
		body["suppressOutput"] = true
	}

	return body
}

// Callback is the function signature for hook callbacks.
type Callback func(ctx context.Context, input Input, toolUseID string) (*Output, error)

// Definition registers a callback for one event.
type Definition struct {
	Event Event
	// Matcher is a tool name like "Bash" or a pipe-separated list like "Write|Edit".
	// Empty matches everything.
	Matcher string
	// Timeout is advertised to the process; zero leaves its default.
	Timeout  time.Duration
	Callback Callback
}
