package agentpipe

import "github.com/wagiedev/agentpipe/internal/errors"

// Re-export error types from internal package

// SpawnError indicates the child process could not be started.
type SpawnError = errors.SpawnError

// ProcessExitError indicates the child process exited with a failure.
type ProcessExitError = errors.ProcessExitError

// ControlTimeoutError indicates a control request got no response in time.
type ControlTimeoutError = errors.ControlTimeoutError

// ControlProtocolError indicates the process answered a control request with an error.
type ControlProtocolError = errors.ControlProtocolError

// DecodeError indicates a stdout line could not be decoded.
type DecodeError = errors.DecodeError

// AgentPipeError is the base interface for all engine errors.
type AgentPipeError = errors.AgentPipeError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates the engine or client is not connected.
	ErrNotConnected = errors.ErrNotConnected

	// ErrAlreadyConnected indicates Start or Connect was called twice.
	ErrAlreadyConnected = errors.ErrAlreadyConnected

	// ErrEngineClosed indicates the engine has been closed and cannot be reused.
	ErrEngineClosed = errors.ErrEngineClosed

	// ErrTransportClosed indicates the child's streams ended.
	ErrTransportClosed = errors.ErrTransportClosed

	// ErrStdinClosed indicates input was already ended.
	ErrStdinClosed = errors.ErrStdinClosed

	// ErrOperationCancelled indicates the process cancelled an inbound request.
	ErrOperationCancelled = errors.ErrOperationCancelled
)
