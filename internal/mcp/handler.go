package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// JSON-RPC error codes used in replies.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ProtocolVersion is the MCP protocol version reported by in-process servers.
const ProtocolVersion = "2024-11-05"

// Handler answers MCP messages addressed to in-process servers.
//
// The returned map is the JSON-RPC reply placed under mcp_response. A non-nil
// error becomes a control error response.
type Handler interface {
	HandleMessage(ctx context.Context, serverName string, message map[string]any) (map[string]any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, serverName string, message map[string]any) (map[string]any, error)

// HandleMessage implements Handler.
func (f HandlerFunc) HandleMessage(
	ctx context.Context,
	serverName string,
	message map[string]any,
) (map[string]any, error) {
	return f(ctx, serverName, message)
}

// Server is an in-process MCP tool server.
type Server interface {
	Name() string
	Version() string
	// ListTools returns tool metadata in tools/list shape.
	ListTools() []map[string]any
	// CallTool runs a tool and returns a tools/call result. Tool failures are
	// reported inside the result, not as an error.
	CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}

// Compile-time verification that ServerSet implements Handler.
var _ Handler = (*ServerSet)(nil)

// ServerSet routes messages to servers by name.
type ServerSet struct {
	log *slog.Logger

	mu      sync.RWMutex
	servers map[string]Server
}

// NewServerSet creates a ServerSet. A nil logger discards output.
func NewServerSet(log *slog.Logger) *ServerSet {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &ServerSet{
		log:     log.With("component", "mcp"),
		servers: make(map[string]Server, 4),
	}
}

// Add registers a server under key, replacing any server with the same key.
func (s *ServerSet) Add(key string, server Server) {
	if server == nil {
		return
	}

	s.mu.Lock()
	s.servers[key] = server
	s.mu.Unlock()

	s.log.Debug("Registered MCP server", "server", key)
}

// Names returns the registered server keys in sorted order.
func (s *ServerSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of registered servers.
func (s *ServerSet) Len() int {
	if s == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.servers)
}

// HandleMessage implements Handler.
//
// Unknown servers, unknown methods and bad params are answered with a JSON-RPC
// error reply rather than a Go error, so the process always gets a reply it
// can correlate by id.
func (s *ServerSet) HandleMessage(
	ctx context.Context,
	serverName string,
	message map[string]any,
) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if message == nil {
		return nil, fmt.Errorf("missing message for server %q", serverName)
	}

	method, _ := message["method"].(string)
	params, _ := message["params"].(map[string]any)
	msgID := messageID(message["id"])

	s.mu.RLock()
	server, ok := s.servers[serverName]
	s.mu.RUnlock()

	if !ok {
		return ErrorReply(msgID, CodeInvalidRequest, "MCP server not found: "+serverName), nil
	}

	s.log.Debug("Handling MCP message", "server", serverName, "method", method)

	switch method {
	case "initialize":
		return reply(msgID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    server.Name(),
				"version": server.Version(),
			},
		}), nil

	case "notifications/initialized":
		return reply(msgID, map[string]any{}), nil

	case "tools/list":
		return reply(msgID, map[string]any{"tools": server.ListTools()}), nil

	case "tools/call":
		return s.callTool(ctx, msgID, params, server), nil

	default:
		return ErrorReply(msgID, CodeMethodNotFound, "Method not found: "+method), nil
	}
}

func (s *ServerSet) callTool(ctx context.Context, msgID any, params map[string]any, server Server) map[string]any {
	if params == nil {
		return ErrorReply(msgID, CodeInvalidParams, "Missing params for tools/call")
	}

	name, _ := params["name"].(string)
	if name == "" {
		return ErrorReply(msgID, CodeInvalidParams, "Missing tool name in params")
	}

	arguments, _ := params["arguments"].(map[string]any)

	result, err := server.CallTool(ctx, name, arguments)
	if err != nil {
		return ErrorReply(msgID, CodeInternalError, err.Error())
	}

	return reply(msgID, result)
}

// messageID normalizes a JSON-RPC id: whole numbers decode as float64 and are
// echoed back as ints.
func messageID(raw any) any {
	if f, ok := raw.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}

	return raw
}

func reply(msgID any, result map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      msgID,
		"result":  result,
	}
}

// ErrorReply builds a JSON-RPC error reply.
func ErrorReply(msgID any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      msgID,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
