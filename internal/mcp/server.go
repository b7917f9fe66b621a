package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ctl Controller, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LifeSuit", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LifeSuit rehabilitation exoskeleton simulator. Connect the device, run sessions, command limb motors, configure the timed-rehab program, and review session history and achievements. Commands report applied=false when the device state refuses them."),
	)

	h := &handlers{ctl: ctl, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetDeviceState, Handler: h.getDeviceState},
		server.ServerTool{Tool: toolConnectDevice, Handler: h.connectDevice},
		server.ServerTool{Tool: toolDisconnectDevice, Handler: h.disconnectDevice},
		server.ServerTool{Tool: toolStartSession, Handler: h.startSession},
		server.ServerTool{Tool: toolEndSession, Handler: h.endSession},
		server.ServerTool{Tool: toolSetVerticalMode, Handler: h.setVerticalMode},
		server.ServerTool{Tool: toolSetHorizontalMode, Handler: h.setHorizontalMode},
		server.ServerTool{Tool: toolConfigureSchedule, Handler: h.configureSchedule},
		server.ServerTool{Tool: toolGetSessionHistory, Handler: h.getSessionHistory},
		server.ServerTool{Tool: toolGetAchievements, Handler: h.getAchievements},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resState, Handler: h.state},
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ctl Controller
	log *slog.Logger
}

// --- Resource definitions ---

var resState = mcp.NewResource(
	"lifesuit://state",
	"Device State",
	mcp.WithResourceDescription("Live device snapshot: connection, session, limb modes/angles/reps, timed-rehab program and latest vitals"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSessions = mcp.NewResource(
	"lifesuit://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The 20 most recent finished sessions, newest first"),
	mcp.WithMIMEType("application/json"),
)
