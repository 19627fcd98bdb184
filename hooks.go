package agentpipe

import (
	"time"

	"github.com/wagiedev/agentpipe/internal/hook"
)

// Hook decisions.
const (
	HookDecisionNone    = hook.DecisionNone
	HookDecisionApprove = hook.DecisionApprove
	HookDecisionBlock   = hook.DecisionBlock
	HookDecisionIgnore  = hook.DecisionIgnore
)

// NewHook builds a hook definition. An empty matcher matches every tool.
//
//	pre := agentpipe.NewHook(agentpipe.HookEventPreToolUse, "Bash",
//	    func(ctx context.Context, in agentpipe.HookInput, toolUseID string) (*agentpipe.HookOutput, error) {
//	        return agentpipe.BlockHook("no shell"), nil
//	    })
func NewHook(event HookEvent, matcher string, callback HookCallback) *HookDefinition {
	return &HookDefinition{Event: event, Matcher: matcher, Callback: callback}
}

// NewHookWithTimeout is NewHook with a timeout advertised to the process.
func NewHookWithTimeout(event HookEvent, matcher string, timeout time.Duration, callback HookCallback) *HookDefinition {
	d := NewHook(event, matcher, callback)
	d.Timeout = timeout

	return d
}

// ApproveHook returns an approving hook output.
func ApproveHook() *HookOutput { return hook.Approve() }

// BlockHook returns a blocking hook output.
func BlockHook(reason string) *HookOutput { return hook.Block(reason) }

// IgnoreHook returns an abstaining hook output.
func IgnoreHook() *HookOutput { return hook.Ignore() }
