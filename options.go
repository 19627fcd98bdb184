package agentpipe

import (
	"log/slog"
	"maps"
	"time"

	"github.com/wagiedev/agentpipe/internal/config"
	"github.com/wagiedev/agentpipe/internal/mcp"
	"github.com/wagiedev/agentpipe/internal/permission"
)

// Option configures Options using the functional options pattern.
// This is the primary option type for configuring clients and engines.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// commandOf returns the options' command, creating it on first use.
func commandOf(o *Options) *Command {
	if o.Command == nil {
		o.Command = &Command{}
	}

	return o.Command
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithCommand sets the child process executable and its arguments.
func WithCommand(path string, args ...string) Option {
	return func(o *Options) {
		cmd := commandOf(o)
		cmd.Path = path
		cmd.Args = args
	}
}

// WithEnv adds environment variables for the child process. They override
// inherited variables of the same name.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		cmd := commandOf(o)
		if cmd.Env == nil {
			cmd.Env = make(map[string]string, len(env))
		}

		maps.Copy(cmd.Env, env)
	}
}

// WithCwd sets the working directory for the child process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		commandOf(o).Cwd = cwd
	}
}

// WithMaxLineBytes sets the longest stdout line accepted from the child.
func WithMaxLineBytes(size int) Option {
	return func(o *Options) {
		commandOf(o).MaxLineBytes = size
	}
}

// WithStderr sets a callback that receives each stderr line of the child.
// Without it, stderr is logged at debug level.
func WithStderr(fn func(line string)) Option {
	return func(o *Options) {
		o.Stderr = fn
	}
}

// WithTransport replaces the subprocess transport, typically for tests.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}

// ===== Timeouts =====

// WithControlTimeout bounds every outbound control command.
// Defaults to 30s or AGENTPIPE_CONTROL_TIMEOUT.
func WithControlTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.ControlTimeout = timeout
	}
}

// WithInitializeTimeout bounds the handshake. Defaults to the control timeout
// or AGENTPIPE_INITIALIZE_TIMEOUT.
func WithInitializeTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.InitializeTimeout = timeout
	}
}

// ===== Permissions =====

// WithPermissionMode sets the mode applied right after the handshake.
// Valid values: "default", "acceptEdits", "plan", "bypassPermissions".
func WithPermissionMode(mode string) Option {
	return func(o *Options) {
		o.PermissionMode = mode
	}
}

// WithCanUseTool sets the callback consulted for can_use_tool requests.
func WithCanUseTool(callback CanUseToolCallback) Option {
	return func(o *Options) {
		o.CanUseTool = callback
	}
}

// WithDeniedTools denies the named tools and allows every other.
func WithDeniedTools(names ...string) Option {
	return func(o *Options) {
		o.CanUseTool = permission.DenyTools(names...)
	}
}

// WithFailClosed makes requests without a registered handler fail closed:
// tool use is denied and unknown hooks stop continuation.
func WithFailClosed() Option {
	return func(o *Options) {
		o.FailClosed = true
	}
}

// ===== Hooks =====

// WithHooks appends hook definitions. Callback ids follow the order of
// registration across all calls.
func WithHooks(hooks ...*HookDefinition) Option {
	return func(o *Options) {
		o.Hooks = append(o.Hooks, hooks...)
	}
}

// ===== MCP =====

// WithMCPServer registers an in-process tool server under name.
func WithMCPServer(name string, server MCPServer) Option {
	return func(o *Options) {
		if o.MCPServers == nil {
			o.MCPServers = make(map[string]mcp.Server, 1)
		}

		o.MCPServers[name] = server
	}
}

// WithMCPHandler sets a custom handler for mcp_message requests. It cannot be
// combined with WithMCPServer.
func WithMCPHandler(handler MCPHandler) Option {
	return func(o *Options) {
		o.MCPHandler = handler
	}
}

// ===== Config files =====

// WithConfigFile merges a loaded session file: the command, timeouts,
// permission mode, denied tools and fail-closed flag it sets.
// Options applied after it take precedence.
func WithConfigFile(file *ConfigFile) Option {
	return func(o *Options) {
		if file == nil {
			return
		}

		from := file.Options()

		o.Command = from.Command

		if from.ControlTimeout > 0 {
			o.ControlTimeout = from.ControlTimeout
		}

		if from.InitializeTimeout > 0 {
			o.InitializeTimeout = from.InitializeTimeout
		}

		if from.PermissionMode != "" {
			o.PermissionMode = from.PermissionMode
		}

		if from.CanUseTool != nil {
			o.CanUseTool = from.CanUseTool
		}

		o.FailClosed = o.FailClosed || from.FailClosed
	}
}

// LoadConfigFile reads a YAML session file.
func LoadConfigFile(path string) (*ConfigFile, error) {
	return config.LoadFile(path)
}
