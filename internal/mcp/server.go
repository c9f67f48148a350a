package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mol-cyberwhip/veteranVR/internal/app"
)

// Server exposes the client's consumer contract as MCP tools
type Server struct {
	mcpServer *mcp.Server
	app       *app.App
}

// NewServer creates a new MCP server exposing a as tools
func NewServer(a *app.App, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "veteranvr",
		Version: version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		app:       a,
	}
	s.registerTools()

	return s
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "sync_catalog",
		Description: "Refresh the game catalog. A cached catalog younger than the freshness window is reused unless force is set.",
	}, s.handleSyncCatalog)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_library",
		Description: "Search, filter and sort the synced catalog.",
	}, s.handleGetLibrary)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "enqueue_install",
		Description: "Queue a download and install for a package or release. Returns the existing operation if one is already active for the package.",
	}, s.handleEnqueueInstall)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "pause_operation",
		Description: "Pause a downloading operation. Has no effect in any other state.",
	}, s.handlePause)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "resume_operation",
		Description: "Resume a paused operation or retry a failed one.",
	}, s.handleResume)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "cancel_operation",
		Description: "Cancel an operation that has not finished.",
	}, s.handleCancel)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "uninstall_package",
		Description: "Uninstall a package and remove its OBB and data folders unless kept.",
	}, s.handleUninstall)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_operations",
		Description: "List download operations with their progress snapshots.",
	}, s.handleListOperations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_logs",
		Description: "Read the operation log, newest entries last.",
	}, s.handleListLogs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "permission_status",
		Description: "Report whether installs may start: installer reachability, storage access and free space.",
	}, s.handlePermissionStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "favorite",
		Description: "Add, remove or list favorite packages.",
	}, s.handleFavorite)
}

// RunStdio runs the server using stdio transport
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler creates an HTTP handler for SSE transport
func (s *Server) NewHTTPHandler() http.Handler {
	return mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// NewStreamableHTTPHandler creates a streamable HTTP handler
func (s *Server) NewStreamableHTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}
