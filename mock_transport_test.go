package agentpipe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wagiedev/agentpipe/internal/frame"
)

// mockTransport implements Transport for testing.
// It answers initialize and, through reply, any other control request.
// Frames it does not answer are published on sent.
type mockTransport struct {
	mu      sync.Mutex
	stopped bool
	err     error
	reply   func(req *ControlRequest) *ControlResponse

	frames chan Frame
	sent   chan Frame
	done   chan struct{}
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		frames: make(chan Frame, 100),
		sent:   make(chan Frame, 100),
		done:   make(chan struct{}),
	}
}

func (m *mockTransport) Start(context.Context) error { return nil }

func (m *mockTransport) Frames() <-chan Frame { return m.frames }

func (m *mockTransport) Send(_ context.Context, f Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrTransportClosed
	}

	if req, err := frame.AsControlRequest(f); err == nil {
		switch {
		case req.Subtype == frame.SubtypeInitialize:
			m.frames <- frame.NewControlResponse(frame.Success(req.RequestID, map[string]any{"version": "mock"}))

			return nil
		case m.reply != nil:
			m.frames <- frame.NewControlResponse(m.reply(req))

			return nil
		}
	}

	m.sent <- f

	return nil
}

func (m *mockTransport) EndInput() error { return nil }

func (m *mockTransport) Done() <-chan struct{} { return m.done }

func (m *mockTransport) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.err
}

// push delivers a frame as if the child had written it.
func (m *mockTransport) push(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stopped {
		m.frames <- f
	}
}

func (m *mockTransport) exit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	m.stopped = true
	m.err = err
	close(m.frames)
	close(m.done)
}

func (m *mockTransport) Stop() error {
	m.exit(ErrTransportClosed)

	return nil
}

func (m *mockTransport) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stopped
}

// next waits for the next frame the engine wrote and did not get answered.
func (m *mockTransport) next(t *testing.T) Frame {
	t.Helper()

	select {
	case f := <-m.sent:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sent frame")

		return nil
	}
}

// ask pushes a child-initiated control request and returns the response.
func (m *mockTransport) ask(t *testing.T, id, subtype string, payload map[string]any) *ControlResponse {
	t.Helper()

	m.push(frame.NewControlRequest(id, subtype, payload))

	resp, err := frame.AsControlResponse(m.next(t))
	if err != nil {
		t.Fatalf("expected control response: %v", err)
	}

	if resp.RequestID != id {
		t.Fatalf("response for %q, want %q", resp.RequestID, id)
	}

	return resp
}
