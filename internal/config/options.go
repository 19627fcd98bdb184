package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wagiedev/agentpipe/internal/hook"
	"github.com/wagiedev/agentpipe/internal/mcp"
	"github.com/wagiedev/agentpipe/internal/permission"
)

const (
	// DefaultControlTimeout bounds every outbound control request.
	DefaultControlTimeout = 30 * time.Second

	// DefaultMaxLineBytes is the largest stdout line the pump accepts.
	DefaultMaxLineBytes = 1024 * 1024

	// EnvControlTimeout overrides the control timeout, in seconds or as a Go duration.
	EnvControlTimeout = "AGENTPIPE_CONTROL_TIMEOUT"

	// EnvInitializeTimeout overrides the initialize timeout, in seconds or as a Go duration.
	EnvInitializeTimeout = "AGENTPIPE_INITIALIZE_TIMEOUT"
)

// Command describes the child process.
type Command struct {
	// Path is the executable. It is resolved against PATH by os/exec.
	Path string
	Args []string
	// Env is added to the parent environment, overriding existing keys.
	Env map[string]string
	// Cwd is the working directory. Empty inherits the parent's.
	Cwd string
	// MaxLineBytes caps a single stdout line. Zero means DefaultMaxLineBytes.
	MaxLineBytes int
}

// LineLimit returns the effective stdout line limit.
func (c *Command) LineLimit() int {
	if c == nil || c.MaxLineBytes <= 0 {
		return DefaultMaxLineBytes
	}

	return c.MaxLineBytes
}

// Environment returns the child environment: the current process environment
// with Env applied on top, in a deterministic order.
func (c *Command) Environment() []string {
	env := os.Environ()
	if c == nil || len(c.Env) == 0 {
		return env
	}

	out := make([]string, 0, len(env)+len(c.Env))
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := c.Env[key]; ok {
			continue
		}

		out = append(out, kv)
	}

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, k+"="+c.Env[k])
	}

	return out
}

// Options configures one engine.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Command is the child process to spawn. Required unless Transport is set.
	Command *Command

	// Stderr receives each stderr line of the child. If nil, lines go to the
	// debug log.
	Stderr func(string)

	// ControlTimeout bounds outbound control requests. Zero falls back to
	// AGENTPIPE_CONTROL_TIMEOUT, then DefaultControlTimeout.
	ControlTimeout time.Duration

	// InitializeTimeout bounds the handshake. Zero falls back to
	// AGENTPIPE_INITIALIZE_TIMEOUT, then the control timeout.
	InitializeTimeout time.Duration

	// PermissionMode is applied with set_permission_mode right after the
	// handshake when non-empty. Legacy names are normalized.
	PermissionMode string

	// Hooks are registered in order; hook_<i> addresses Hooks[i].
	Hooks []*hook.Definition

	// CanUseTool is consulted for can_use_tool requests.
	CanUseTool permission.Callback

	// MCPServers are in-process tool servers keyed by the name the child uses.
	MCPServers map[string]mcp.Server

	// MCPHandler answers mcp_message requests. When nil and MCPServers is
	// non-empty, a ServerSet over MCPServers is used.
	MCPHandler mcp.Handler

	// FailClosed denies tool use when no permission callback is set and stops
	// continuation for unknown hook ids. The default is fail-open.
	FailClosed bool

	// Transport replaces the default subprocess pump.
	Transport Transport
}

// Validate checks the options for a usable configuration.
func (o *Options) Validate() error {
	if o == nil {
		return fmt.Errorf("options are nil")
	}

	if o.Transport == nil {
		if o.Command == nil || strings.TrimSpace(o.Command.Path) == "" {
			return fmt.Errorf("a command path or a transport is required")
		}
	}

	if o.ControlTimeout < 0 {
		return fmt.Errorf("control timeout must not be negative: %s", o.ControlTimeout)
	}

	if o.InitializeTimeout < 0 {
		return fmt.Errorf("initialize timeout must not be negative: %s", o.InitializeTimeout)
	}

	if o.MCPHandler != nil && len(o.MCPServers) > 0 {
		return fmt.Errorf("MCPHandler and MCPServers are mutually exclusive")
	}

	if o.PermissionMode != "" && !IsPermissionMode(o.PermissionMode) {
		return fmt.Errorf("unknown permission mode %q", o.PermissionMode)
	}

	return nil
}

// ResolveControlTimeout returns the control timeout from options, env var, or default.
func (o *Options) ResolveControlTimeout() time.Duration {
	if o != nil && o.ControlTimeout > 0 {
		return o.ControlTimeout
	}

	if d, ok := envDuration(EnvControlTimeout); ok {
		return d
	}

	return DefaultControlTimeout
}

// ResolveInitializeTimeout returns the initialize timeout from options, env
// var, or the control timeout.
func (o *Options) ResolveInitializeTimeout() time.Duration {
	if o != nil && o.InitializeTimeout > 0 {
		return o.InitializeTimeout
	}

	if d, ok := envDuration(EnvInitializeTimeout); ok {
		return d
	}

	return o.ResolveControlTimeout()
}

// ResolveMCPHandler returns the handler for mcp_message requests, or nil.
func (o *Options) ResolveMCPHandler() mcp.Handler {
	if o == nil {
		return nil
	}

	if o.MCPHandler != nil {
		return o.MCPHandler
	}

	if len(o.MCPServers) == 0 {
		return nil
	}

	set := mcp.NewServerSet(o.Logger)
	for name, server := range o.MCPServers {
		set.Add(name, server)
	}

	return set
}

// envDuration reads a positive timeout from the environment. Plain integers
// are seconds.
func envDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, false
		}

		return time.Duration(secs) * time.Second, true
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, false
	}

	return d, true
}
