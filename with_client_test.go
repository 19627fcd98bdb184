package agentpipe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agentpipe"
)

func TestWithClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := agentpipe.WithClient(ctx, func(_ agentpipe.Client) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithClient_StartFailure(t *testing.T) {
	err := agentpipe.WithClient(context.Background(), func(_ agentpipe.Client) error {
		t.Error("callback should not be called when start fails")

		return nil
	}, agentpipe.WithCommand("/nonexistent/agentpipe-child"))

	require.Error(t, err)

	_, ok := errors.AsType[*agentpipe.SpawnError](err)
	require.True(t, ok, "got %v", err)
}

func TestWithClient_CallbackError(t *testing.T) {
	want := errors.New("callback failed")

	err := agentpipe.WithClient(context.Background(), func(c agentpipe.Client) error {
		require.NotNil(t, c.GetServerInfo())

		return want
	}, agentpipe.WithCommand(echoChild(t)))

	require.ErrorIs(t, err, want)
}
