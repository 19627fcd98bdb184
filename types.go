package agentpipe

import (
	"github.com/wagiedev/agentpipe/internal/config"
	"github.com/wagiedev/agentpipe/internal/frame"
	"github.com/wagiedev/agentpipe/internal/hook"
	"github.com/wagiedev/agentpipe/internal/permission"
	"github.com/wagiedev/agentpipe/internal/protocol"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures an engine or client.
type Options = config.Options

// Command describes the child process to spawn.
type Command = config.Command

// ConfigFile is the YAML session file layout.
type ConfigFile = config.File

// ===== Frames =====

// Frame is a decoded protocol frame: one JSON object per line.
type Frame = frame.Frame

// FrameKind classifies a frame for routing.
type FrameKind = frame.Kind

// Frame type discriminants.
const (
	FrameTypeUser            = frame.TypeUser
	FrameTypeAssistant       = frame.TypeAssistant
	FrameTypeResult          = frame.TypeResult
	FrameTypeSystem          = frame.TypeSystem
	FrameTypeControlRequest  = frame.TypeControlRequest
	FrameTypeControlResponse = frame.TypeControlResponse
)

// ControlRequest is a parsed control_request envelope.
type ControlRequest = frame.ControlRequest

// ControlResponse is a parsed control_response envelope.
type ControlResponse = frame.ControlResponse

// ===== Engine =====

// State is the engine lifecycle state.
type State = protocol.State

// Engine lifecycle states.
const (
	StateIdle       = protocol.StateIdle
	StateConnecting = protocol.StateConnecting
	StateReady      = protocol.StateReady
	StateClosing    = protocol.StateClosing
	StateClosed     = protocol.StateClosed
)

// ===== Permissions =====

// PermissionMode is the permission mode of a session.
type PermissionMode = permission.Mode

const (
	// PermissionModeDefault prompts for each tool use.
	PermissionModeDefault = permission.ModeDefault
	// PermissionModeAcceptEdits accepts file edits without prompting.
	PermissionModeAcceptEdits = permission.ModeAcceptEdits
	// PermissionModePlan only plans and does not execute tools.
	PermissionModePlan = permission.ModePlan
	// PermissionModeBypassPermissions allows every tool.
	PermissionModeBypassPermissions = permission.ModeBypassPermissions
)

// CanUseToolCallback decides whether a tool may run.
type CanUseToolCallback = permission.Callback

// ToolPermissionContext carries the process's suggestions for a permission check.
type ToolPermissionContext = permission.Context

// PermissionResult is the decision returned by a CanUseToolCallback.
type PermissionResult = permission.Result

// PermissionResultAllow allows the tool, optionally with rewritten input.
type PermissionResultAllow = permission.ResultAllow

// PermissionResultDeny denies the tool.
type PermissionResultDeny = permission.ResultDeny

// PermissionUpdate is a permission rule change.
type PermissionUpdate = permission.Update

// ===== Hooks =====

// HookEvent names a hook point.
type HookEvent = hook.Event

// Hook events.
const (
	HookEventPreToolUse       = hook.EventPreToolUse
	HookEventPostToolUse      = hook.EventPostToolUse
	HookEventNotification     = hook.EventNotification
	HookEventStop             = hook.EventStop
	HookEventSubagentStop     = hook.EventSubagentStop
	HookEventUserPromptSubmit = hook.EventUserPromptSubmit
)

// HookDefinition registers a callback for an event and optional matcher.
type HookDefinition = hook.Definition

// HookCallback is invoked when a registered hook fires.
type HookCallback = hook.Callback

// HookInput is the typed payload of a hook invocation.
type HookInput = hook.Input

// HookOutput is a hook's decision.
type HookOutput = hook.Output

// HookDecision is approve, block or ignore.
type HookDecision = hook.Decision

// Hook input types.
type (
	BaseHookInput             = hook.BaseInput
	PreToolUseHookInput       = hook.PreToolUseInput
	PostToolUseHookInput      = hook.PostToolUseInput
	NotificationHookInput     = hook.NotificationInput
	StopHookInput             = hook.StopInput
	SubagentStopHookInput     = hook.SubagentStopInput
	UserPromptSubmitHookInput = hook.UserPromptSubmitInput
)
