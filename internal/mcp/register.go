package mcp

import "github.com/mark3labs/mcp-go/server"

// Name and Version identify the server to MCP clients
const (
	Name    = "constprop-mcp"
	Version = "0.1.0"
)

// NewServer builds the MCP server with every constprop tool registered
func NewServer(state *State) *server.MCPServer {
	s := server.NewMCPServer(Name, Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)
	RegisterAllTools(s, state)
	return s
}

// RegisterAllTools wires every constprop tool into the MCP server.
func RegisterAllTools(s *server.MCPServer, state *State) {
	registerWorkspaceTools(s, state)
	registerLiteralTools(s, state)
	registerPropagateTools(s, state)
}
