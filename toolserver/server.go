// Package toolserver wires the MCP protocol handler and its weather tools.
//
// This is the composition root for the protocol side of the bridge: it
// creates the MCP server instance, registers the tools, and adapts the
// bridge's inbound message envelope to the JSON-RPC the server speaks. No
// transport or session logic lives here; responses leave through whatever
// sender the caller hooks up.
package toolserver

import (
	"log/slog"
	"sync/atomic"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cirrustream/cirrus/weather"
)

// Name and version reported during MCP initialization.
const (
	serverName    = "cirrus-weather"
	serverVersion = "1.0.0"
)

// Server owns the MCP server instance and the weather client backing its
// tools. One Server serves the whole process.
type Server struct {
	mcp    *mcpserver.MCPServer
	client *weather.Client
	logger *slog.Logger
	reqID  atomic.Int64
}

// New creates the protocol handler with all weather tools registered.
func New(client *weather.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		client: client,
		logger: logger,
	}

	s.mcp = mcpserver.NewMCPServer(
		serverName,
		serverVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(
			"Weather data tools backed by the US National Weather Service. "+
				"Use get-alerts for active alerts by state and get-forecast "+
				"for point forecasts by coordinate."),
	)

	s.registerTools()
	return s
}

// MCP exposes the underlying server for callers that host it on another
// transport.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

// nextID allocates a request id for internally synthesized JSON-RPC calls.
func (s *Server) nextID() int64 {
	return s.reqID.Add(1)
}
