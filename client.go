package agentpipe

import (
	"context"
	"iter"
)

// Client provides an interactive, stateful interface for multi-turn sessions
// with a child process.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := agentpipe.NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    agentpipe.WithCommand("/usr/local/bin/agent", "--stdio"),
//	    agentpipe.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.Query(ctx, "What is 2+2?"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Receive the frames of this turn (stops after the result frame)
//	for frame, err := range client.ReceiveResponse(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // Process frame...
//	}
type Client interface {
	// Start spawns the child and performs the handshake.
	// Must be called before any other methods.
	Start(ctx context.Context, opts ...Option) error

	// StartWithPrompt is Start followed by Query(ctx, prompt).
	StartWithPrompt(ctx context.Context, prompt string, opts ...Option) error

	// StartWithStream starts and sends each prompt from the iterator as a
	// user message. EndInput is called when the iterator completes.
	StartWithStream(ctx context.Context, prompts iter.Seq[string], opts ...Option) error

	// Query sends a user prompt and returns once it is queued.
	// The optional sessionID is sent as is; empty encodes as null.
	Query(ctx context.Context, prompt string, sessionID ...string) error

	// SendFrame writes an arbitrary content frame.
	SendFrame(ctx context.Context, frame Frame) error

	// EndInput closes the child's stdin once queued frames are written.
	EndInput() error

	// ReceiveMessages yields every non-control frame until the stream ends,
	// an error occurs, or ctx is cancelled.
	ReceiveMessages(ctx context.Context) iter.Seq2[Frame, error]

	// ReceiveResponse yields frames until and including the next result frame.
	ReceiveResponse(ctx context.Context) iter.Seq2[Frame, error]

	// Interrupt asks the child to stop its current turn.
	Interrupt(ctx context.Context) error

	// SetPermissionMode changes the permission mode during the session.
	// Valid modes: "default", "acceptEdits", "plan", "bypassPermissions".
	SetPermissionMode(ctx context.Context, mode string) error

	// SetModel changes the model during the session. Pass nil for the default.
	SetModel(ctx context.Context, model *string) error

	// GetServerInfo returns the handshake response, or nil if not connected.
	GetServerInfo() map[string]any

	// GetMCPStatus queries the child for MCP server connection status.
	GetMCPStatus(ctx context.Context) (*MCPStatus, error)

	// RewindFiles rewinds tracked files to their state at a previous user message.
	RewindFiles(ctx context.Context, userMessageID string) error

	// Close terminates the session and cleans up resources.
	// After Close(), the client cannot be reused. Safe to call multiple times.
	Close() error
}

// NewClient creates a new interactive client.
//
// Call Start() with options to begin a session:
//
//	client := agentpipe.NewClient()
//	err := client.Start(ctx,
//	    agentpipe.WithCommand("/usr/local/bin/agent"),
//	    agentpipe.WithPermissionMode("acceptEdits"),
//	)
func NewClient() Client {
	return newClientImpl()
}
