package agentpipe

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// It creates a client, starts it with the provided options, runs fn, and
// closes the client when fn returns. A Close failure is logged and does not
// override fn's error.
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
//	    agentpipe.WithPermissionMode("acceptEdits"),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	return fn(client)
}
