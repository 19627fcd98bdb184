package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnError(t *testing.T) {
	root := errors.New("no such file or directory")
	err := &SpawnError{Path: "/opt/agent", Err: root}

	require.Equal(t, "spawn /opt/agent: no such file or directory", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsAgentPipeError())
}

func TestProcessExitError_WithStderr(t *testing.T) {
	root := errors.New("exit status 2")
	err := &ProcessExitError{Code: 2, Stderr: "boom", Err: root}

	require.Equal(t, "process exited with code 2: boom", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsAgentPipeError())
}

func TestProcessExitError_WithoutStderr(t *testing.T) {
	err := &ProcessExitError{Code: 1}

	require.Equal(t, "process exited with code 1", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestControlTimeoutError(t *testing.T) {
	err := &ControlTimeoutError{Subtype: "interrupt", Timeout: 5 * time.Second}

	require.Equal(t, `control request "interrupt" timed out after 5s`, err.Error())
	require.True(t, err.IsAgentPipeError())

	var wrapped error = err

	got, ok := errors.AsType[*ControlTimeoutError](wrapped)
	require.True(t, ok)
	require.Equal(t, "interrupt", got.Subtype)
}

func TestControlProtocolError(t *testing.T) {
	require.Equal(t,
		"control protocol error (set_model): unknown model",
		(&ControlProtocolError{Subtype: "set_model", Message: "unknown model"}).Error(),
	)
	require.Equal(t,
		"control protocol error: missing response",
		(&ControlProtocolError{Message: "missing response"}).Error(),
	)
}

func TestDecodeError(t *testing.T) {
	root := errors.New("invalid character 'o'")
	err := &DecodeError{Line: "not json", Err: root}

	require.Equal(t, "decode frame: invalid character 'o'", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsAgentPipeError())
}
