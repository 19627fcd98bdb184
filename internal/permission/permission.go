// Package permission provides the permission capability consulted for can_use_tool requests.
package permission

import (
	"context"
	"slices"
)

// Mode represents the child process's permission handling mode.
type Mode string

const (
	// ModeDefault uses standard permission prompts.
	ModeDefault Mode = "default"
	// ModeAcceptEdits automatically accepts file edits.
	ModeAcceptEdits Mode = "acceptEdits"
	// ModePlan enables plan mode.
	ModePlan Mode = "plan"
	// ModeBypassPermissions bypasses all permission checks.
	ModeBypassPermissions Mode = "bypassPermissions"
)

// Behavior represents the permission behavior for a rule or decision.
type Behavior string

const (
	// BehaviorAllow allows the operation.
	BehaviorAllow Behavior = "allow"
	// BehaviorDeny denies the operation.
	BehaviorDeny Behavior = "deny"
	// BehaviorAsk defers to the user.
	BehaviorAsk Behavior = "ask"
)

// RuleValue represents a permission rule.
type RuleValue struct {
	ToolName    string
	RuleContent string
}

// Update is a permission update suggested by the process or returned with an allow decision.
type Update struct {
	Type        string
	Rules       []RuleValue
	Behavior    Behavior
	Mode        Mode
	Directories []string
	Destination string
}

// ToDict converts the Update to its wire map.
func (u *Update) ToDict() map[string]any {
	result := map[string]any{"type": u.Type}

	if u.Destination != "" {
		result["destination"] = u.Destination
	}

	if len(u.Rules) > 0 {
		rules := make([]map[string]any, len(u.Rules))
		for i, rule := range u.Rules {
			rules[i] = map[string]any{"toolName": rule.ToolName}
			if rule.RuleContent != "" {
				rules[i]["ruleContent"] = rule.RuleContent
			}
		}

		result["rules"] = rules
	}

	if u.Behavior != "" {
		result["behavior"] = string(u.Behavior)
	}

	if u.Mode != "" {
		result["mode"] = string(u.Mode)
	}

	if len(u.Directories) > 0 {
		result["directories"] = u.Directories
	}

	return result
}

// ParseUpdate reads an Update from its wire map. Unknown or mistyped
// fields are left at their zero value.
func ParseUpdate(raw map[string]any) *Update {
	u := &Update{}
	u.Type, _ = raw["type"].(string)
	u.Destination, _ = raw["destination"].(string)

	if b, ok := raw["behavior"].(string); ok {
		u.Behavior = Behavior(b)
	}

	if m, ok := raw["mode"].(string); ok {
		u.Mode = Mode(m)
	}

	if rules, ok := raw["rules"].([]any); ok {
		for _, r := range rules {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}

			var rule RuleValue
			rule.ToolName, _ = rm["toolName"].(string)
			rule.RuleContent, _ = rm["ruleContent"].(string)
			u.Rules = append(u.Rules, rule)
		}
	}

	if dirs, ok := raw["directories"].([]any); ok {
		for _, d := range dirs {
			if s, ok := d.(string); ok {
				u.Directories = append(u.Directories, s)
			}
		}
	}

	return u
}

// Context carries extra information for a permission check.
type Context struct {
	// Suggestions are permission updates proposed by the process.
	Suggestions []*Update
}

// Result is the interface for permission decisions.
type Result interface {
	GetBehavior() string
	// Body renders the decision as the control response body.
	Body() map[string]any
}

// Compile-time verification that permission result types implement Result.
var (
	_ Result = (*ResultAllow)(nil)
	_ Result = (*ResultDeny)(nil)
)

// ResultAllow represents an allow decision.
type ResultAllow struct {
	UpdatedInput       map[string]any
	UpdatedPermissions []*Update
}

// GetBehavior implements Result.
func (r *ResultAllow) GetBehavior() string { return string(BehaviorAllow) }

// Body implements Result.
func (r *ResultAllow) Body() map[string]any {
	body := map[string]any{"behavior": string(BehaviorAllow)}

	if r.UpdatedInput != nil {
		body["updatedInput"] = r.UpdatedInput
	}

	if len(r.UpdatedPermissions) > 0 {
		updates := make([]map[string]any, len(r.UpdatedPermissions))
		for i, u := range r.UpdatedPermissions {
			updates[i] = u.ToDict()
		}

		body["updatedPermissions"] = updates
	}

	return body
}

// ResultDeny represents a deny decision.
type ResultDeny struct {
	Message   string
	Interrupt bool
}

// GetBehavior implements Result.
func (r *ResultDeny) GetBehavior() string { return string(BehaviorDeny) }

// Body implements Result.
func (r *ResultDeny) Body() map[string]any {
	body := map[string]any{
		"behavior": string(BehaviorDeny),
		"message":  r.Message,
	}

	if r.Interrupt {
		body["interrupt"] = true
	}

	return body
}

// Allow returns a plain allow decision.
func Allow() *ResultAllow { return &ResultAllow{} }

// Deny returns a deny decision with the given message.
func Deny(message string) *ResultDeny { return &ResultDeny{Message: message} }

// Callback is called before each tool use for permission checking.
type Callback func(
	ctx context.Context,
	toolName string,
	input map[string]any,
	permCtx *Context,
) (Result, error)

// DenyTools returns a Callback that denies the named tools and allows everything else.
func DenyTools(names ...string) Callback {
	denied := slices.Clone(names)

	return func(_ context.Context, toolName string, _ map[string]any, _ *Context) (Result, error) {
		if slices.Contains(denied, toolName) {
			return Deny("tool " + toolName + " is denied by policy"), nil
		}

		return Allow(), nil
	}
}
