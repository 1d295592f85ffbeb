package mcp

import (
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
// restThreshold is the session gap used when a caller does not pass one;
// zero leaves the choice to the DataSource, so a remote server applies its
// own configured gap.
func New(ds DataSource, version string, restThreshold time.Duration, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LightWeight", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LightWeight strength training log. List exercises, review past sessions grouped by rest gaps, and log new sets."),
	)

	h := &handlers{ds: ds, log: log, restThreshold: restThreshold}

	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolLogSet, Handler: h.logSet},
		server.ServerTool{Tool: toolCreateExercise, Handler: h.createExercise},
	)

	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds            DataSource
	log           *slog.Logger
	restThreshold time.Duration
}

var resExerciseCatalog = mcp.NewResource(
	"lightweight://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All exercises in display order with a summary of the most recent session of each"),
	mcp.WithMIMEType("application/json"),
)
