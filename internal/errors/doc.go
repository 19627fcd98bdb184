// Package errors defines error types for the agentpipe control-protocol engine.
//
// This package provides structured error types for the failure modes of a
// session with a child process: spawn failures, transport loss, process exit,
// control round-trip timeouts and malformed frames. All error types support
// unwrapping and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
