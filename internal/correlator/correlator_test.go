package correlator

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agentpipe/internal/errors"
	"github.com/wagiedev/agentpipe/internal/frame"
)

func newTable() *Table {
	return New(slog.New(slog.DiscardHandler))
}

func TestRegister_UniqueIDs(t *testing.T) {
	table := newTable()
	seen := make(map[string]bool, 1000)

	for range 1000 {
		p := table.Register("interrupt")
		require.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}

	require.Equal(t, 1000, table.Len())
}

func TestResolve_CompletesAwait(t *testing.T) {
	table := newTable()
	p := table.Register("set_model")

	go func() {
		assert.True(t, table.Resolve(p.ID, frame.Success(p.ID, map[string]any{"ok": true})))
	}()

	resp, err := table.Await(context.Background(), p, time.Second)
	require.NoError(t, err)
	require.Equal(t, p.ID, resp.RequestID)
	require.Equal(t, map[string]any{"ok": true}, resp.Body)
	require.Zero(t, table.Len())
}

func TestResolve_UnknownID(t *testing.T) {
	table := newTable()

	require.False(t, table.Resolve("nope", frame.Success("nope", nil)))
}

func TestAwait_TimeoutThenLateResponse(t *testing.T) {
	table := newTable()
	p := table.Register("interrupt")

	_, err := table.Await(context.Background(), p, 20*time.Millisecond)

	timeoutErr, ok := stderrors.AsType[*errors.ControlTimeoutError](err)
	require.True(t, ok, "got %v", err)
	require.Equal(t, "interrupt", timeoutErr.Subtype)
	require.Zero(t, table.Len())

	require.False(t, table.Resolve(p.ID, frame.Success(p.ID, nil)))
}

func TestAwait_ContextCancelled(t *testing.T) {
	table := newTable()
	p := table.Register("get_mcp_status")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := table.Await(ctx, p, time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, table.Len())
}

func TestFail_WakesWaitersAndPoisonsTable(t *testing.T) {
	table := newTable()

	var wg sync.WaitGroup

	errs := make([]error, 5)

	for i := range errs {
		p := table.Register("interrupt")

		wg.Go(func() {
			_, errs[i] = table.Await(context.Background(), p, 5*time.Second)
		})
	}

	require.Eventually(t, func() bool { return table.Len() == 5 }, time.Second, time.Millisecond)

	table.Fail(errors.ErrTransportClosed)
	table.Fail(errors.ErrEngineClosed)
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, errors.ErrTransportClosed)
	}

	require.ErrorIs(t, table.Err(), errors.ErrTransportClosed)

	late := table.Register("set_model")
	_, err := table.Await(context.Background(), late, time.Second)
	require.ErrorIs(t, err, errors.ErrTransportClosed)
	require.Zero(t, table.Len())
}

func TestAbandon(t *testing.T) {
	table := newTable()
	p := table.Register("interrupt")

	table.Abandon(p)
	require.Zero(t, table.Len())
	require.False(t, table.Resolve(p.ID, frame.Success(p.ID, nil)))
}

// TestResolveRacesTimeout exercises resolve and timeout firing together: each
// request must complete exactly once, with either the response or a timeout.
func TestResolveRacesTimeout(t *testing.T) {
	table := newTable()

	for range 200 {
		p := table.Register("interrupt")

		var resolved bool

		var wg sync.WaitGroup

		wg.Go(func() {
			time.Sleep(time.Millisecond)

			resolved = table.Resolve(p.ID, frame.Success(p.ID, nil))
		})

		resp, err := table.Await(context.Background(), p, time.Millisecond)
		wg.Wait()

		if resolved {
			require.NoError(t, err)
			require.NotNil(t, resp)
		} else {
			_, isTimeout := stderrors.AsType[*errors.ControlTimeoutError](err)
			require.True(t, isTimeout, "got %v", err)
		}
	}

	require.Zero(t, table.Len())
}

func TestConcurrentOutOfOrderResponses(t *testing.T) {
	table := newTable()

	const n = 50

	pending := make([]*Pending, n)
	for i := range pending {
		pending[i] = table.Register("set_model")
	}

	var wg sync.WaitGroup

	for i := n - 1; i >= 0; i-- {
		p := pending[i]

		wg.Go(func() {
			table.Resolve(p.ID, frame.Success(p.ID, map[string]any{"id": p.ID}))
		})
	}

	for _, p := range pending {
		resp, err := table.Await(context.Background(), p, time.Second)
		require.NoError(t, err)
		require.Equal(t, p.ID, resp.Body["id"])
	}

	wg.Wait()
	require.Zero(t, table.Len())
}
