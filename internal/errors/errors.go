package errors

import (
	"errors"
	"fmt"
	"time"
)

// AgentPipeError is the base interface for all engine errors.
type AgentPipeError interface {
	error
	IsAgentPipeError() bool
}

// Compile-time verification that all error types implement AgentPipeError.
var (
	_ AgentPipeError = (*SpawnError)(nil)
	_ AgentPipeError = (*ProcessExitError)(nil)
	_ AgentPipeError = (*ControlTimeoutError)(nil)
	_ AgentPipeError = (*ControlProtocolError)(nil)
	_ AgentPipeError = (*DecodeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates the engine is not in the Ready state.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect was called on an engine that already connected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrEngineClosed indicates the engine has been closed and cannot be reused.
	ErrEngineClosed = errors.New("engine closed: engines are single-use, create a new one")

	// ErrTransportClosed indicates one of the stdio pumps ended unexpectedly.
	ErrTransportClosed = errors.New("transport closed")

	// ErrStdinClosed indicates input was ended with EndInput.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrOperationCancelled indicates a handler was cancelled via control_cancel_request.
	ErrOperationCancelled = errors.New("operation cancelled")
)

// SpawnError indicates the child process could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsAgentPipeError implements AgentPipeError.
func (e *SpawnError) IsAgentPipeError() bool { return true }

// ProcessExitError indicates the child process terminated.
type ProcessExitError struct {
	Code   int
	Stderr string
	Err    error
}

func (e *ProcessExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("process exited with code %d: %s", e.Code, e.Stderr)
	}

	return fmt.Sprintf("process exited with code %d", e.Code)
}

func (e *ProcessExitError) Unwrap() error {
	return e.Err
}

// IsAgentPipeError implements AgentPipeError.
func (e *ProcessExitError) IsAgentPipeError() bool { return true }

// ControlTimeoutError indicates a control round trip exceeded its deadline.
// It is local to the request that timed out and does not close the session.
type ControlTimeoutError struct {
	Subtype string
	Timeout time.Duration
}

func (e *ControlTimeoutError) Error() string {
	return fmt.Sprintf("control request %q timed out after %s", e.Subtype, e.Timeout)
}

// IsAgentPipeError implements AgentPipeError.
func (e *ControlTimeoutError) IsAgentPipeError() bool { return true }

// ControlProtocolError indicates a malformed or error control response.
type ControlProtocolError struct {
	Subtype string
	Message string
}

func (e *ControlProtocolError) Error() string {
	if e.Subtype == "" {
		return "control protocol error: " + e.Message
	}

	return fmt.Sprintf("control protocol error (%s): %s", e.Subtype, e.Message)
}

// IsAgentPipeError implements AgentPipeError.
func (e *ControlProtocolError) IsAgentPipeError() bool { return true }

// DecodeError indicates a single stdout line could not be decoded.
// The pump logs and skips these lines; the session continues.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsAgentPipeError implements AgentPipeError.
func (e *DecodeError) IsAgentPipeError() bool { return true }
