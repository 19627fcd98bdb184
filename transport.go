package agentpipe

import (
	"log/slog"

	"github.com/wagiedev/agentpipe/internal/config"
	"github.com/wagiedev/agentpipe/internal/subprocess"
)

// Transport moves frames to and from the child process.
// Implement this to provide custom transports for testing or mocking.
//
// The default implementation spawns Options.Command as a subprocess.
// Custom transports can be injected via WithTransport.
type Transport = config.Transport

// NewProcessTransport returns the subprocess transport for cmd. stderr, if
// non-nil, receives each stderr line of the child.
func NewProcessTransport(log *slog.Logger, cmd *Command, stderr func(string)) Transport {
	if log == nil {
		log = NopLogger()
	}

	return subprocess.NewPump(log, cmd, stderr)
}
