package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/wagiedev/agentpipe/internal/config"
	"github.com/wagiedev/agentpipe/internal/correlator"
	"github.com/wagiedev/agentpipe/internal/dispatch"
	"github.com/wagiedev/agentpipe/internal/errors"
	"github.com/wagiedev/agentpipe/internal/frame"
	"github.com/wagiedev/agentpipe/internal/hook"
	"github.com/wagiedev/agentpipe/internal/subprocess"
)

const (
	// ProtocolVersion is the only control protocol version spoken.
	ProtocolVersion = "1"

	// MessageBuffer is the capacity of the Messages channel.
	MessageBuffer = 256
)

// Engine drives one child process through the control protocol.
type Engine struct {
	log        *slog.Logger
	opts       *config.Options
	transport  config.Transport
	table      *correlator.Table
	dispatcher *dispatch.Dispatcher
	hooks      *hook.Registry

	controlTimeout time.Duration
	initTimeout    time.Duration

	messages chan frame.Frame

	mu           sync.Mutex
	state        State
	serverInfo   map[string]any
	capabilities map[string]bool
	fatalErr     error
	routerCancel context.CancelFunc
	routerDone   chan struct{}

	inFlightMu sync.Mutex
	inFlight   map[string]context.CancelFunc
	handlers   sync.WaitGroup

	closeOnce sync.Once
}

// NewEngine creates an idle engine. The transport is opts.Transport, or a
// subprocess pump for opts.Command.
func NewEngine(log *slog.Logger, opts *config.Options) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if opts == nil {
		opts = &config.Options{}
	}

	transport := opts.Transport
	if transport == nil {
		transport = subprocess.NewPump(log, opts.Command, opts.Stderr)
	}

	hooks := hook.NewRegistry(opts.Hooks...)
	mcpHandler := opts.ResolveMCPHandler()

	return &Engine{
		log:       log.With("component", "engine"),
		opts:      opts,
		transport: transport,
		table:     correlator.New(log),
		dispatcher: dispatch.New(log, dispatch.Capabilities{
			CanUseTool: opts.CanUseTool,
			Hooks:      hooks,
			MCP:        mcpHandler,
			FailClosed: opts.FailClosed,
		}),
		hooks:          hooks,
		controlTimeout: opts.ResolveControlTimeout(),
		initTimeout:    opts.ResolveInitializeTimeout(),
		messages:       make(chan frame.Frame, MessageBuffer),
		inFlight:       make(map[string]context.CancelFunc, 4),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Messages yields non-control frames in arrival order. It is closed when the
// transport ends or the engine is closed.
func (e *Engine) Messages() <-chan frame.Frame {
	return e.messages
}

// Err returns the fatal transport error, if the transport has ended.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.fatalErr
}

// ServerInfo returns a copy of the initialize response body, or nil before
// the handshake completes.
func (e *Engine) ServerInfo() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.serverInfo == nil {
		return nil
	}

	return maps.Clone(e.serverInfo)
}

// Capabilities returns the capability flags advertised in the handshake.
func (e *Engine) Capabilities() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return maps.Clone(e.capabilities)
}

// ControlTimeout returns the effective timeout for control commands.
func (e *Engine) ControlTimeout() time.Duration { return e.controlTimeout }

// Connect starts the transport and performs the handshake. It may be called
// once; on failure the engine is closed.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()

	switch e.state {
	case StateIdle:
	case StateConnecting, StateReady:
		e.mu.Unlock()

		return errors.ErrAlreadyConnected
	default:
		e.mu.Unlock()

		return errors.ErrEngineClosed
	}

	e.state = StateConnecting
	e.mu.Unlock()

	if e.opts.Transport == nil {
		if err := e.opts.Validate(); err != nil {
			_ = e.Close()

			return fmt.Errorf("invalid options: %w", err)
		}
	}

	e.log.Info("Connecting")

	if err := e.transport.Start(ctx); err != nil {
		e.log.Error("Failed to start transport", "error", err)
		_ = e.Close()

		return err
	}

	if err := e.startRouter(); err != nil {
		_ = e.Close()

		return err
	}

	if err := e.initialize(ctx); err != nil {
		_ = e.Close()

		return err
	}

	e.mu.Lock()
	if e.state != StateConnecting {
		e.mu.Unlock()

		return errors.ErrEngineClosed
	}

	e.state = StateReady
	e.mu.Unlock()

	e.log.Info("Connected", "hooks", e.hooks.Len())

	if mode := config.NormalizePermissionMode(e.opts.PermissionMode); mode != "" {
		if _, err := e.SendControlCommand(ctx, frame.SubtypeSetPermissionMode, map[string]any{"mode": mode}); err != nil {
			_ = e.Close()

			return fmt.Errorf("apply permission mode: %w", err)
		}
	}

	return nil
}

func (e *Engine) startRouter() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateConnecting {
		return errors.ErrEngineClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.routerCancel = cancel
	e.routerDone = make(chan struct{})

	go e.route(ctx, e.routerDone)

	return nil
}

// initialize sends the handshake and records the server info.
func (e *Engine) initialize(ctx context.Context) error {
	caps := e.dispatcher.Capabilities()
	flags := map[string]bool{
		"hooks":       e.hooks.Len() > 0,
		"permissions": caps.CanUseTool != nil,
		"mcp":         caps.MCP != nil,
	}

	params := map[string]any{
		"protocol_version": ProtocolVersion,
		"capabilities": map[string]any{
			"hooks":       flags["hooks"],
			"permissions": flags["permissions"],
			"mcp":         flags["mcp"],
		},
		"hooks": e.hooks.InitConfig(),
	}

	e.log.Debug("Sending initialize request", "hooks", e.hooks, "timeout", e.initTimeout)

	body, err := e.request(ctx, frame.SubtypeInitialize, params, e.initTimeout)
	if err != nil {
		// A dead transport explains a timeout better than the timeout does.
		select {
		case <-e.transport.Done():
			if terr := e.transport.Err(); terr != nil {
				err = terr
			}
		default:
		}

		return fmt.Errorf("initialize: %w", err)
	}

	e.mu.Lock()
	e.serverInfo = body
	e.capabilities = flags
	e.mu.Unlock()

	return nil
}

// Send writes a user message. It requires the Ready state.
func (e *Engine) Send(ctx context.Context, prompt, sessionID string) error {
	return e.SendFrame(ctx, frame.NewUserMessage(prompt, sessionID))
}

// SendFrame writes a content frame as is. It requires the Ready state.
func (e *Engine) SendFrame(ctx context.Context, f frame.Frame) error {
	if err := e.requireReady(); err != nil {
		return err
	}

	if err := e.transport.Send(ctx, f); err != nil {
		return fmt.Errorf("send %s: %w", f.Type(), err)
	}

	return nil
}

// EndInput closes the child's stdin once queued frames are written.
func (e *Engine) EndInput() error {
	if err := e.requireReady(); err != nil {
		return err
	}

	return e.transport.EndInput()
}

// SendControlCommand sends a control request and waits up to the control
// timeout for its response body.
func (e *Engine) SendControlCommand(ctx context.Context, subtype string, params map[string]any) (map[string]any, error) {
	return e.SendControlCommandTimeout(ctx, subtype, params, e.controlTimeout)
}

// SendControlCommandTimeout is SendControlCommand with an explicit timeout.
func (e *Engine) SendControlCommandTimeout(
	ctx context.Context,
	subtype string,
	params map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	if err := e.requireReady(); err != nil {
		return nil, err
	}

	return e.request(ctx, subtype, params, timeout)
}

func (e *Engine) request(
	ctx context.Context,
	subtype string,
	params map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	p := e.table.Register(subtype)

	e.log.Debug("Sending control request", "request_id", p.ID, "subtype", subtype)

	if err := e.transport.Send(ctx, frame.NewControlRequest(p.ID, subtype, params)); err != nil {
		e.table.Abandon(p)

		return nil, fmt.Errorf("send %s: %w", subtype, err)
	}

	resp, err := e.table.Await(ctx, p, timeout)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		e.log.Warn("Control request returned error", "request_id", p.ID, "subtype", subtype, "error", resp.Error)

		return nil, &errors.ControlProtocolError{Subtype: subtype, Message: resp.Error}
	}

	return resp.Body, nil
}

func (e *Engine) requireReady() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReady:
		if e.fatalErr != nil {
			return e.fatalErr
		}

		return nil
	case StateClosing, StateClosed:
		return errors.ErrEngineClosed
	default:
		return errors.ErrNotConnected
	}
}

// Close tears the engine down: pending requests fail with ErrEngineClosed,
// in-flight handlers are cancelled, the transport is stopped and every
// goroutine is waited for. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.state = StateClosing
		cancel, done := e.routerCancel, e.routerDone
		e.mu.Unlock()

		e.log.Debug("Closing engine")

		e.table.Fail(errors.ErrEngineClosed)
		e.cancelInFlight()

		if err := e.transport.Stop(); err != nil {
			e.log.Debug("Transport stop failed", "error", err)
		}

		if cancel != nil {
			cancel()
			<-done
		} else {
			close(e.messages)
		}

		e.handlers.Wait()

		e.mu.Lock()
		e.state = StateClosed
		e.mu.Unlock()

		e.log.Info("Engine closed")
	})

	return nil
}

// route is the single reader of the transport's frames.
func (e *Engine) route(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer close(e.messages)
	defer e.log.Debug("Router stopped")

	frames := e.transport.Frames()

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				e.transportEnded(ctx)

				return
			}

			e.routeFrame(ctx, f)

		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) transportEnded(ctx context.Context) {
	select {
	case <-e.transport.Done():
	case <-ctx.Done():
		return
	}

	err := e.transport.Err()
	if err == nil {
		err = errors.ErrTransportClosed
	}

	e.mu.Lock()
	if e.fatalErr == nil {
		e.fatalErr = err
	}
	e.mu.Unlock()

	e.log.Debug("Transport ended", "error", err)
	e.table.Fail(err)
	e.cancelInFlight()
}

func (e *Engine) routeFrame(ctx context.Context, f frame.Frame) {
	switch f.Kind() {
	case frame.KindControlResponse:
		resp, err := frame.AsControlResponse(f)
		if err != nil {
			e.log.Warn("Dropping malformed control response", "error", err)

			return
		}

		e.table.Resolve(resp.RequestID, resp)

	case frame.KindControlRequest:
		e.handleControlRequest(ctx, f)

	case frame.KindControlCancel:
		id, _ := f["request_id"].(string)
		e.cancelRequest(id)

	default:
		select {
		case e.messages <- f:
		case <-ctx.Done():
		}
	}
}

func (e *Engine) handleControlRequest(ctx context.Context, f frame.Frame) {
	req, err := frame.AsControlRequest(f)
	if err != nil {
		if req == nil || req.RequestID == "" {
			e.log.Warn("Dropping control request without request_id", "error", err)

			return
		}

		e.reply(ctx, frame.Failure(req.RequestID, err.Error()))

		return
	}

	opCtx, cancel := context.WithCancel(ctx)

	e.inFlightMu.Lock()
	e.inFlight[req.RequestID] = cancel
	e.inFlightMu.Unlock()

	e.handlers.Go(func() {
		defer func() {
			e.inFlightMu.Lock()
			delete(e.inFlight, req.RequestID)
			e.inFlightMu.Unlock()

			cancel()
		}()

		e.reply(ctx, e.dispatcher.Handle(opCtx, req))
	})
}

func (e *Engine) reply(ctx context.Context, resp *frame.ControlResponse) {
	if err := e.transport.Send(ctx, frame.NewControlResponse(resp)); err != nil {
		if ctx.Err() != nil || stderrors.Is(err, errors.ErrTransportClosed) {
			e.log.Debug("Could not send control response during shutdown", "request_id", resp.RequestID, "error", err)

			return
		}

		e.log.Error("Failed to send control response", "request_id", resp.RequestID, "error", err)
	}
}

// cancelRequest aborts the in-flight handler for id. The handler still
// answers, with an operation cancelled error.
func (e *Engine) cancelRequest(id string) {
	e.inFlightMu.Lock()
	cancel, ok := e.inFlight[id]
	e.inFlightMu.Unlock()

	if !ok {
		e.log.Debug("Cancel request for unknown operation", "request_id", id)

		return
	}

	e.log.Debug("Cancelling in-flight request", "request_id", id)
	cancel()
}

func (e *Engine) cancelInFlight() {
	e.inFlightMu.Lock()
	defer e.inFlightMu.Unlock()

	for _, cancel := range e.inFlight {
		cancel()
	}
}
