package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/agentpipe/internal/config"
	"github.com/wagiedev/agentpipe/internal/errors"
	"github.com/wagiedev/agentpipe/internal/frame"
	"github.com/wagiedev/agentpipe/internal/mcp"
	"github.com/wagiedev/agentpipe/internal/protocol"
)

// defaultMessageBufferSize is the buffer size for the messages channel.
const defaultMessageBufferSize = 10

// Client implements the interactive client interface.
type Client struct {
	log     *slog.Logger
	engine  *protocol.Engine
	options *config.Options

	messages chan frame.Frame

	errMu    sync.RWMutex
	fatalErr error

	eg *errgroup.Group

	mu        sync.Mutex
	done      chan struct{}
	connected bool
	closed    bool
	closeOnce sync.Once
}

// New creates a new interactive client.
//
// The client is not connected after creation. Call Start() with options to connect.
func New() *Client {
	return &Client{
		messages: make(chan frame.Frame, defaultMessageBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) setFatalError(err error) {
	if err == nil {
		return
	}

	c.errMu.Lock()
	defer c.errMu.Unlock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}
}

func (c *Client) getFatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// isConnected returns true if the client is connected.
func (c *Client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

// connectCore creates the engine and performs the handshake.
// Caller must hold c.mu.
func (c *Client) connectCore(ctx context.Context, options *config.Options) error {
	if c.closed {
		return errors.ErrEngineClosed
	}

	if c.connected {
		return errors.ErrAlreadyConnected
	}

	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	c.log = log.With("component", "client")
	c.options = options

	engine := protocol.NewEngine(log, options)
	if err := engine.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	c.engine = engine

	return nil
}

// Start connects to the child process and performs the handshake.
//
// No prompt is sent; use Query() to send prompts.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectCore(ctx, options); err != nil {
		return err
	}

	// The caller's ctx bounds the handshake only. The read loop lives
	// until Close.
	var egCtx context.Context

	c.eg, egCtx = errgroup.WithContext(context.Background())

	c.eg.Go(func() error {
		return c.readLoop(egCtx)
	})

	c.connected = true
	c.log.Info("Client started")

	return nil
}

// StartWithPrompt is Start followed by Query.
func (c *Client) StartWithPrompt(ctx context.Context, prompt string, options *config.Options) error {
	if err := c.Start(ctx, options); err != nil {
		return err
	}

	return c.Query(ctx, prompt)
}

// StartWithStream connects and streams prompts from the iterator as user
// messages. EndInput is called when the iterator completes.
func (c *Client) StartWithStream(
	ctx context.Context,
	prompts iter.Seq[string],
	options *config.Options,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectCore(ctx, options); err != nil {
		return err
	}

	var egCtx context.Context

	c.eg, egCtx = errgroup.WithContext(context.Background())

	c.eg.Go(func() error {
		return c.streamPrompts(egCtx, prompts)
	})

	c.eg.Go(func() error {
		return c.readLoop(egCtx)
	})

	c.connected = true
	c.log.Info("Client started in streaming mode")

	return nil
}

func (c *Client) streamPrompts(ctx context.Context, prompts iter.Seq[string]) (err error) {
	defer func() {
		select {
		case <-c.done:
			return
		default:
		}

		if endErr := c.engine.EndInput(); endErr != nil && err == nil {
			err = fmt.Errorf("end input: %w", endErr)
		}
	}()

	for prompt := range prompts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		if err := c.engine.Send(ctx, prompt, ""); err != nil {
			c.log.Error("Failed to send streamed prompt", "error", err)

			return fmt.Errorf("send streamed prompt: %w", err)
		}
	}

	c.log.Debug("Finished streaming prompts")

	return nil
}

// readLoop forwards engine messages to the client's channel. A transport
// that ends with anything other than a clean exit is a fatal error.
func (c *Client) readLoop(ctx context.Context) error {
	defer c.log.Debug("Read loop stopped")
	defer close(c.messages)

	in := c.engine.Messages()

	for {
		select {
		case f, ok := <-in:
			if !ok {
				return c.engineEnded()
			}

			select {
			case c.messages <- f:
			case <-c.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}

		case <-c.done:
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) engineEnded() error {
	select {
	case <-c.done:
		return nil
	default:
	}

	// Only the bare sentinel means the child exited cleanly.
	err := c.engine.Err()
	if err == nil || err == errors.ErrTransportClosed {
		c.log.Debug("Message stream ended")

		return nil
	}

	c.log.Error("Transport error", "error", err)
	c.setFatalError(err)

	return err
}

// Query sends a user prompt. Use ReceiveResponse to read the reply.
func (c *Client) Query(ctx context.Context, prompt string, sessionID ...string) error {
	if !c.isConnected() {
		return errors.ErrNotConnected
	}

	var sid string
	if len(sessionID) > 0 {
		sid = sessionID[0]
	}

	c.log.Debug("Sending query", "prompt_len", len(prompt), "session_id", sid)

	return c.engine.Send(ctx, prompt, sid)
}

// SendFrame writes an arbitrary content frame.
func (c *Client) SendFrame(ctx context.Context, f frame.Frame) error {
	if !c.isConnected() {
		return errors.ErrNotConnected
	}

	return c.engine.SendFrame(ctx, f)
}

// EndInput closes the child's stdin after queued frames are written.
func (c *Client) EndInput() error {
	if !c.isConnected() {
		return errors.ErrNotConnected
	}

	return c.engine.EndInput()
}

// receive returns the next message, io.EOF once the stream ends cleanly.
// Frames buffered before a failure are delivered before the error.
func (c *Client) receive(ctx context.Context) (frame.Frame, error) {
	select {
	case f, ok := <-c.messages:
		if !ok {
			if c.eg != nil {
				if err := c.eg.Wait(); err != nil {
					c.setFatalError(err)

					return nil, c.getFatalError()
				}
			}

			return nil, io.EOF
		}

		return f, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReceiveMessages returns an iterator over every non-control frame until the
// stream ends, an error occurs, or ctx is cancelled. A clean end of stream
// stops the iteration without an error.
func (c *Client) ReceiveMessages(ctx context.Context) iter.Seq2[frame.Frame, error] {
	return func(yield func(frame.Frame, error) bool) {
		if !c.isConnected() {
			yield(nil, errors.ErrNotConnected)

			return
		}

		for {
			f, err := c.receive(ctx)
			if stderrors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(f, nil) {
				return
			}
		}
	}
}

// ReceiveResponse returns an iterator that stops after the next result frame.
// A stream that ends before the result yields io.ErrUnexpectedEOF.
func (c *Client) ReceiveResponse(ctx context.Context) iter.Seq2[frame.Frame, error] {
	return func(yield func(frame.Frame, error) bool) {
		if !c.isConnected() {
			yield(nil, errors.ErrNotConnected)

			return
		}

		for {
			f, err := c.receive(ctx)
			if stderrors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}

			if err != nil {
				yield(nil, fmt.Errorf("receive response: %w", err))

				return
			}

			if !yield(f, nil) {
				return
			}

			if f.IsResult() {
				return
			}
		}
	}
}

// Interrupt asks the child to stop its current turn.
func (c *Client) Interrupt(ctx context.Context) error {
	if !c.isConnected() {
		return errors.ErrNotConnected
	}

	c.log.Info("Sending interrupt signal")

	if _, err := c.engine.SendControlCommand(ctx, frame.SubtypeInterrupt, nil); err != nil {
		return fmt.Errorf("send interrupt signal: %w", err)
	}

	return nil
}

// RewindFiles rewinds tracked files to their state at a previous user message.
func (c *Client) RewindFiles(ctx context.Context, userMessageID string) error {
	if !c.isConnected() {
		return errors.ErrNotConnected
	}

	c.log.Info("Rewinding files", "user_message_id", userMessageID)

	payload := map[string]any{"user_message_id": userMessageID}

	if _, err := c.engine.SendControlCommand(ctx, frame.SubtypeRewindFiles, payload); err != nil {
		return fmt.Errorf("rewind files: %w", err)
	}

	return nil
}

// SetPermissionMode changes the permission mode mid-session. Legacy aliases
// are normalized before sending.
func (c *Client) SetPermissionMode(ctx context.Context, mode string) error {
	if !c.isConnected() {
		return errors.ErrNotConnected
	}

	normalized := config.NormalizePermissionMode(mode)
	if !config.IsPermissionMode(normalized) {
		return fmt.Errorf("unknown permission mode %q", mode)
	}

	c.log.Info("Setting permission mode", "mode", normalized)

	payload := map[string]any{"mode": normalized}

	if _, err := c.engine.SendControlCommand(ctx, frame.SubtypeSetPermissionMode, payload); err != nil {
		return fmt.Errorf("set permission mode to %q: %w", normalized, err)
	}

	return nil
}

// SetModel changes the model mid-session. Pass nil for the default model.
func (c *Client) SetModel(ctx context.Context, model *string) error {
	if !c.isConnected() {
		return errors.ErrNotConnected
	}

	c.log.Info("Setting model", "model", model)

	payload := map[string]any{"model": nil}
	if model != nil {
		payload["model"] = *model
	}

	if _, err := c.engine.SendControlCommand(ctx, frame.SubtypeSetModel, payload); err != nil {
		return fmt.Errorf("set model: %w", err)
	}

	return nil
}

// GetMCPStatus queries the child for MCP server status. In-process servers
// the child does not report are appended as connected.
func (c *Client) GetMCPStatus(ctx context.Context) (*mcp.Status, error) {
	if !c.isConnected() {
		return nil, errors.ErrNotConnected
	}

	c.log.Info("Querying MCP server status")

	body, err := c.engine.SendControlCommand(ctx, frame.SubtypeGetMCPStatus, nil)
	if err != nil {
		return nil, fmt.Errorf("get mcp status: %w", err)
	}

	status, err := mcp.DecodeStatus(body)
	if err != nil {
		return nil, err
	}

	for _, name := range c.inProcessServers() {
		if slices.ContainsFunc(status.MCPServers, func(s mcp.ServerStatus) bool { return s.Name == name }) {
			continue
		}

		status.MCPServers = append(status.MCPServers, mcp.ServerStatus{Name: name, Status: "connected"})
	}

	return status, nil
}

func (c *Client) inProcessServers() []string {
	if set, ok := c.options.ResolveMCPHandler().(*mcp.ServerSet); ok {
		return set.Names()
	}

	return nil
}

// ServerInfo returns the handshake response, or nil when not connected.
func (c *Client) ServerInfo() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return nil
	}

	return c.engine.ServerInfo()
}

// Close terminates the session. The client cannot be reused.
// It is safe to call more than once.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		wasConnected := c.connected
		c.connected = false
		c.mu.Unlock()

		if !wasConnected {
			return
		}

		c.log.Info("Closing client")

		close(c.done)

		closeErr = c.engine.Close()

		if c.eg != nil {
			if err := c.eg.Wait(); err != nil && closeErr == nil {
				closeErr = err
			}
		}

		c.log.Info("Client closed")
	})

	return closeErr
}
