// Package mcp routes mcp_message control requests to in-process tool servers.
//
// A Handler receives the raw JSON-RPC message addressed to a named server and
// returns the JSON-RPC reply. ServerSet is the stock Handler: it keeps servers
// by name and answers initialize, notifications/initialized, tools/list and
// tools/call for each of them. Tools are described with the official MCP Go SDK
// types so handlers written for a standalone MCP server can be reused as is.
package mcp
