package agentpipe

import (
	"context"
	"iter"
)

// Query runs one turn against a fresh child process and returns an iterator
// of its frames.
//
// The child is started, the prompt sent, and frames are yielded up to and
// including the result frame. The child is closed when iteration ends, even
// if the caller breaks early.
//
//	for frame, err := range agentpipe.Query(ctx, "What is 2+2?",
//	    agentpipe.WithCommand("/usr/local/bin/agent"),
//	) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if frame.IsResult() {
//	        fmt.Println(frame["result"])
//	    }
//	}
//
// Setup and transport errors are yielded inline and end the iteration.
func Query(ctx context.Context, prompt string, opts ...Option) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		options := applyOptions(opts)

		log := options.Logger
		if log == nil {
			log = NopLogger()
		}

		log = log.With("component", "query")

		client := newClientImpl()

		defer func() {
			if err := client.Close(); err != nil {
				log.Debug("Close after query failed", "error", err)
			}
		}()

		if err := client.StartWithPrompt(ctx, prompt, opts...); err != nil {
			yield(nil, err)

			return
		}

		for frame, err := range client.ReceiveResponse(ctx) {
			if !yield(frame, err) || err != nil {
				return
			}
		}
	}
}
