package agentpipe

import (
	"github.com/wagiedev/agentpipe/internal/protocol"
)

// Engine is the low-level control-protocol engine. Most callers want Client;
// Engine exposes the raw message channel and arbitrary control commands.
type Engine = protocol.Engine

// NewEngine creates an idle engine. Call Connect to spawn the child and
// perform the handshake.
//
//	engine := agentpipe.NewEngine(agentpipe.WithCommand("/usr/local/bin/agent"))
//	if err := engine.Connect(ctx); err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	body, err := engine.SendControlCommand(ctx, "get_mcp_status", nil)
func NewEngine(opts ...Option) *Engine {
	options := applyOptions(opts)

	return protocol.NewEngine(options.Logger, options)
}
