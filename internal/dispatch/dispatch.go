// Package dispatch answers control requests sent by the child process.
//
// Each inbound request is routed by subtype to one capability: the permission
// callback for can_use_tool, the hook registry for hook_callback, and the MCP
// handler for mcp_message. Handle always produces exactly one response, so a
// failing or panicking capability never leaves the child waiting.
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/wagiedev/agentpipe/internal/errors"
	"github.com/wagiedev/agentpipe/internal/frame"
	"github.com/wagiedev/agentpipe/internal/hook"
	"github.com/wagiedev/agentpipe/internal/mcp"
	"github.com/wagiedev/agentpipe/internal/permission"
)

// Capabilities are the handlers consulted for inbound requests. They are
// fixed for the life of a session.
type Capabilities struct {
	CanUseTool permission.Callback
	Hooks      *hook.Registry
	MCP        mcp.Handler

	// FailClosed denies tool use when CanUseTool is nil and stops
	// continuation for unknown hook ids. The zero value fails open.
	FailClosed bool
}

// Dispatcher routes control requests to capabilities.
type Dispatcher struct {
	log  *slog.Logger
	caps Capabilities
}

// New creates a dispatcher.
func New(log *slog.Logger, caps Capabilities) *Dispatcher {
	return &Dispatcher{
		log:  log.With("component", "dispatch"),
		caps: caps,
	}
}

// Capabilities returns the capabilities the dispatcher was built with.
func (d *Dispatcher) Capabilities() Capabilities { return d.caps }

// Handle answers one control request. It never returns nil: handler errors,
// panics and cancellation all become error responses.
func (d *Dispatcher) Handle(ctx context.Context, req *frame.ControlRequest) (resp *frame.ControlResponse) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Control request handler panicked",
				"request_id", req.RequestID,
				"subtype", req.Subtype,
				"panic", r,
			)

			resp = frame.Failure(req.RequestID, fmt.Sprintf("handler panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return d.failure(req, err)
	}

	d.log.Debug("Handling control request", "request_id", req.RequestID, "subtype", req.Subtype)

	var (
		body map[string]any
		err  error
	)

	switch req.Subtype {
	case frame.SubtypeCanUseTool:
		body, err = d.canUseTool(ctx, req)
	case frame.SubtypeHookCallback:
		body, err = d.hookCallback(ctx, req)
	case frame.SubtypeMCPMessage:
		body, err = d.mcpMessage(ctx, req)
	default:
		d.log.Warn("Unsupported control request subtype", "request_id", req.RequestID, "subtype", req.Subtype)

		return frame.Failure(req.RequestID,
			fmt.Sprintf("unsupported control request subtype %q (code %d)", req.Subtype, mcp.CodeMethodNotFound))
	}

	if ctx.Err() != nil && stderrors.Is(ctx.Err(), context.Canceled) {
		return d.failure(req, errors.ErrOperationCancelled)
	}

	if err != nil {
		return d.failure(req, err)
	}

	return frame.Success(req.RequestID, body)
}

func (d *Dispatcher) failure(req *frame.ControlRequest, err error) *frame.ControlResponse {
	d.log.Warn("Control request failed", "request_id", req.RequestID, "subtype", req.Subtype, "error", err)

	if stderrors.Is(err, context.Canceled) {
		err = errors.ErrOperationCancelled
	}

	return frame.Failure(req.RequestID, err.Error())
}

// canUseTool consults the permission callback.
func (d *Dispatcher) canUseTool(ctx context.Context, req *frame.ControlRequest) (map[string]any, error) {
	toolName := req.String("tool_name")

	if d.caps.CanUseTool == nil {
		if d.caps.FailClosed {
			return permission.Deny("no permission callback registered").Body(), nil
		}

		return permission.Allow().Body(), nil
	}

	permCtx := &permission.Context{Suggestions: parseSuggestions(req.Payload)}

	result, err := d.caps.CanUseTool(ctx, toolName, req.Object("input"), permCtx)
	if err != nil {
		return nil, fmt.Errorf("permission callback: %w", err)
	}

	if result == nil {
		return nil, fmt.Errorf("permission callback returned no decision for %q", toolName)
	}

	d.log.Debug("Permission decided", "tool", toolName, "behavior", result.GetBehavior())

	return result.Body(), nil
}

func parseSuggestions(payload map[string]any) []*permission.Update {
	raw, ok := payload["permission_suggestions"].([]any)
	if !ok {
		raw, _ = payload["suggestions"].([]any)
	}

	out := make([]*permission.Update, 0, len(raw))

	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if u := permission.ParseUpdate(m); u != nil {
			out = append(out, u)
		}
	}

	return out
}

// hookCallback invokes the hook addressed by callback_id.
func (d *Dispatcher) hookCallback(ctx context.Context, req *frame.ControlRequest) (map[string]any, error) {
	callbackID := req.String("callback_id")

	def, ok := d.caps.Hooks.Lookup(callbackID)
	if !ok {
		d.log.Warn("Unknown hook callback id", "callback_id", callbackID, "registered", d.caps.Hooks.Len())

		return map[string]any{"continue": !d.caps.FailClosed}, nil
	}

	input := hook.ParseInput(def.Event, req.Object("input"))

	toolUseID := req.String("tool_use_id")
	if toolUseID == "" {
		if pre, ok := input.(*hook.PreToolUseInput); ok {
			toolUseID = pre.ToolUseID
		}
	}

	out, err := def.Callback(ctx, input, toolUseID)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", callbackID, err)
	}

	return out.Body(def.Event), nil
}

// mcpMessage forwards a JSON-RPC message to the MCP handler.
func (d *Dispatcher) mcpMessage(ctx context.Context, req *frame.ControlRequest) (map[string]any, error) {
	serverName := req.String("server_name")
	message := req.Object("message")

	if d.caps.MCP == nil {
		var id any
		if message != nil {
			id = message["id"]
		}

		return map[string]any{
			"mcp_response": mcp.ErrorReply(id, mcp.CodeMethodNotFound, "no MCP handler registered"),
		}, nil
	}

	reply, err := d.caps.MCP.HandleMessage(ctx, serverName, message)
	if err != nil {
		return nil, fmt.Errorf("mcp server %q: %w", serverName, err)
	}

	return map[string]any{"mcp_response": reply}, nil
}
