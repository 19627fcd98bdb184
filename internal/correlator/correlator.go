// Package correlator matches outbound control requests with their responses.
//
// Every request gets a pending entry holding a one-shot completion channel.
// Whoever removes the entry from the table owns the completion, so a response
// racing a timeout completes the request at most once and the loser is dropped.
package correlator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/agentpipe/internal/errors"
	"github.com/wagiedev/agentpipe/internal/frame"
)

// Pending is an outbound control request awaiting its response.
type Pending struct {
	ID      string
	Subtype string
	Created time.Time

	done chan result
}

type result struct {
	resp *frame.ControlResponse
	err  error
}

// Table is the pending-request table for one engine.
type Table struct {
	log *slog.Logger

	mu      sync.Mutex
	pending map[string]*Pending
	failErr error
}

// New creates an empty table.
func New(log *slog.Logger) *Table {
	return &Table{
		log:     log.With("component", "correlator"),
		pending: make(map[string]*Pending, 8),
	}
}

// Register allocates a request id and records the pending entry. After Fail,
// the returned entry is already completed with the failure error.
func (t *Table) Register(subtype string) *Pending {
	p := &Pending{
		ID:      ulid.Make().String(),
		Subtype: subtype,
		Created: time.Now(),
		done:    make(chan result, 1),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failErr != nil {
		p.done <- result{err: t.failErr}

		return p
	}

	t.pending[p.ID] = p

	return p
}

// Resolve completes the request with the given id. Unknown ids, including
// responses that arrive after a timeout, are logged and dropped.
func (t *Table) Resolve(id string, resp *frame.ControlResponse) bool {
	p, ok := t.take(id)
	if !ok {
		t.log.Warn("No pending request for control response", "request_id", id)

		return false
	}

	p.done <- result{resp: resp}

	return true
}

// Await blocks until the request completes, the timeout elapses or ctx ends.
// The entry is removed from the table in every case.
func (t *Table) Await(ctx context.Context, p *Pending, timeout time.Duration) (*frame.ControlResponse, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-p.done:
		return r.resp, r.err

	case <-timer.C:
		if _, ok := t.take(p.ID); !ok {
			// Lost the race: a completion is already buffered.
			r := <-p.done

			return r.resp, r.err
		}

		t.log.Warn("Control request timed out", "request_id", p.ID, "subtype", p.Subtype, "timeout", timeout)

		return nil, &errors.ControlTimeoutError{Subtype: p.Subtype, Timeout: timeout}

	case <-ctx.Done():
		if _, ok := t.take(p.ID); !ok {
			r := <-p.done

			return r.resp, r.err
		}

		return nil, ctx.Err()
	}
}

// Abandon removes the entry without completing it, e.g. when the request
// could not be written.
func (t *Table) Abandon(p *Pending) {
	t.take(p.ID)
}

// Fail completes every pending request with err and makes later Register
// calls fail immediately. Only the first call has an effect.
func (t *Table) Fail(err error) {
	t.mu.Lock()
	if t.failErr != nil {
		t.mu.Unlock()

		return
	}

	t.failErr = err
	drained := t.pending
	t.pending = make(map[string]*Pending)
	t.mu.Unlock()

	if len(drained) > 0 {
		t.log.Debug("Failing pending control requests", "count", len(drained), "error", err)
	}

	for _, p := range drained {
		p.done <- result{err: err}
	}
}

// Len returns the number of pending requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.pending)
}

// Err returns the error passed to Fail, or nil.
func (t *Table) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failErr
}

func (t *Table) take(id string) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}

	return p, ok
}
