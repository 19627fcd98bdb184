// Package agentpipe drives a long-lived child process that speaks a
// line-delimited JSON control protocol over its standard streams.
//
// The child writes one JSON object per line to stdout and reads one per line
// from stdin. Conversation frames (user, assistant, result, ...) flow to the
// caller in order. Control frames carry a request/response protocol in both
// directions: the caller sends commands such as interrupt or set_model, and
// the child asks the caller for permission decisions, hook decisions and
// in-process tool calls.
//
// # Basic Usage
//
// For a one-shot turn, use Query:
//
//	for frame, err := range agentpipe.Query(ctx, "What is 2+2?",
//	    agentpipe.WithCommand("/usr/local/bin/agent", "--stdio"),
//	) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(frame.Type())
//	}
//
// # Interactive Sessions
//
// For multi-turn sessions, use NewClient or the WithClient helper:
//
//	err := agentpipe.WithClient(ctx, func(c agentpipe.Client) error {
//	    if err := c.Query(ctx, "Hello"); err != nil {
//	        return err
//	    }
//	    for frame, err := range c.ReceiveResponse(ctx) {
//	        if err != nil {
//	            return err
//	        }
//	        // process frame...
//	    }
//	    return nil
//	},
//	    agentpipe.WithCommand("/usr/local/bin/agent"),
//	    agentpipe.WithDeniedTools("Bash"),
//	)
//
// # Callbacks
//
// Permission checks, hooks and in-process tool servers are registered as
// options. Requests the child sends while a turn is running are answered
// concurrently; a slow callback does not hold up the message stream.
//
//	agentpipe.WithCanUseTool(func(ctx context.Context, tool string, input map[string]any,
//	    _ *agentpipe.ToolPermissionContext) (agentpipe.PermissionResult, error) {
//	    if tool == "Bash" {
//	        return &agentpipe.PermissionResultDeny{Message: "no shell"}, nil
//	    }
//	    return &agentpipe.PermissionResultAllow{}, nil
//	})
//
// Requests with no registered handler fail open (allow, continue) unless
// WithFailClosed is set.
//
// # Logging
//
// Logging is disabled by default. Pass a *slog.Logger with WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	client.Start(ctx, agentpipe.WithLogger(logger), ...)
//
// # Error Handling
//
// Errors are typed and can be inspected with errors.Is and errors.AsType:
//
//	if err := client.Start(ctx, opts...); err != nil {
//	    if exitErr, ok := errors.AsType[*agentpipe.ProcessExitError](err); ok {
//	        log.Fatalf("child exited with code %d: %s", exitErr.Code, exitErr.Stderr)
//	    }
//	    if _, ok := errors.AsType[*agentpipe.ControlTimeoutError](err); ok {
//	        log.Fatal("child did not answer the handshake")
//	    }
//	    log.Fatal(err)
//	}
package agentpipe
