package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/classifier"
	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/internal/retriever"
	"github.com/focusd/focusd/internal/store"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"focus_search_context": {
		def: mcp.NewTool("focus_search_context",
			mcp.WithDescription("Classify a query and retrieve/format the same durable context the prompt hook would inject."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The text to classify and retrieve context for.")),
			mcp.WithString("workspace_path", mcp.Description("Workspace path, used to resolve the selected project.")),
			mcp.WithNumber("max_tokens", mcp.Description("Token budget for the formatted output; defaults to 1500 tokens.")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearchContext },
	},
	"focus_list_skills": {
		def: mcp.NewTool("focus_list_skills",
			mcp.WithDescription("List every installed, active skill document.")),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListSkills },
	},
	"focus_project_status": {
		def: mcp.NewTool("focus_project_status",
			mcp.WithDescription("Look up a project's tier, status, and engagement signals by slug."),
			mcp.WithString("slug", mcp.Required(), mcp.Description("The project's slug.")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectStatus },
	},
}

// AllToolNames returns every registered tool name.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer builds an MCP server with the focus tool surface registered,
// skipping any tool named in cfg.MCP.DisabledTools. The classifier's
// entity snapshot is loaded once, synchronously, before the server is
// returned — callers that run it for a long-lived process should refresh
// it themselves on their own cadence.
func NewServer(ctx context.Context, st *store.Store, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer("focusd", version, server.WithToolCapabilities(true))

	cls := classifier.New(st, cfg.Context.RetrieveTimeout)
	if err := cls.Refresh(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("initial classifier refresh failed")
	}
	r := retriever.New(st)
	h := NewHandlers(st, cls, r)

	disabled := make(map[string]bool, len(cfg.MCP.DisabledTools))
	for _, name := range cfg.MCP.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run refreshes the classifier's entity snapshot once and serves the MCP
// tool surface over stdio until the client disconnects.
func Run(st *store.Store, cfg *config.Config, version string) error {
	s := NewServer(context.Background(), st, cfg, version)
	return server.ServeStdio(s)
}
