// Package config provides configuration types for the control-protocol engine.
package config

import (
	"context"

	"github.com/wagiedev/agentpipe/internal/frame"
)

// Transport is the duplex frame pipe the engine drives.
//
// The default implementation is subprocess.Pump, which spawns Options.Command.
// Custom transports can be injected via Options.Transport for tests or for
// processes started by other means.
type Transport interface {
	// Start opens the pipe. It is called exactly once, before any other method.
	Start(ctx context.Context) error

	// Frames yields decoded inbound frames in arrival order. The channel is
	// closed when the inbound side ends.
	Frames() <-chan frame.Frame

	// Send queues one frame for writing. It blocks while the outbound queue is
	// full and must be safe for concurrent use.
	Send(ctx context.Context, f frame.Frame) error

	// EndInput signals that no more frames will be sent.
	EndInput() error

	// Done is closed once the transport has terminated.
	Done() <-chan struct{}

	// Err returns the condition that terminated the transport, or nil while it runs.
	Err() error

	// Stop tears the transport down. It is safe to call more than once.
	Stop() error
}
