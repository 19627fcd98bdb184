package agentpipe

import (
	internalmcp "github.com/wagiedev/agentpipe/internal/mcp"
)

// ToolServer is an in-process tool server answering the process's
// mcp_message requests.
type ToolServer = internalmcp.ToolServer

// NewToolServer creates an in-process tool server with the given tools.
//
// Register it with WithMCPServer; the process addresses it by that name:
//
//	calculator := agentpipe.NewToolServer("calculator", "1.0.0", addTool)
//
//	client.Start(ctx,
//	    agentpipe.WithCommand("/usr/local/bin/agent"),
//	    agentpipe.WithMCPServer("calculator", calculator),
//	)
func NewToolServer(name, version string, tools ...*Tool) *ToolServer {
	server := internalmcp.NewToolServer(name, version)

	for _, tool := range tools {
		if tool == nil {
			continue
		}

		server.AddTool(tool.definition(), tool.ToolHandler)
	}

	return server
}
