package mcp

import (
	"encoding/json"
	"fmt"
)

// ServerStatus is the connection status of one MCP server as seen by the process.
type ServerStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Status is the get_mcp_status response.
type Status struct {
	MCPServers []ServerStatus `json:"mcpServers"`
}

// DecodeStatus decodes a get_mcp_status response body.
func DecodeStatus(body map[string]any) (*Status, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode mcp status: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode mcp status: %w", err)
	}

	return &status, nil
}

// Connected reports whether the named server is connected.
func (s *Status) Connected(name string) bool {
	if s == nil {
		return false
	}

	for _, srv := range s.MCPServers {
		if srv.Name == name {
			return srv.Status == "connected"
		}
	}

	return false
}
