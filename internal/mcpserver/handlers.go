// Package mcpserver exposes a small, read-mostly MCP tool surface over the
// same Classifier/Retriever/Formatter and Store components the hook pair
// uses, for MCP-capable clients that invoke tools directly rather than
// through the prompt/stop hook wire format.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/focusd/focusd/internal/classifier"
	focuserrors "github.com/focusd/focusd/internal/errors"
	"github.com/focusd/focusd/internal/formatter"
	"github.com/focusd/focusd/internal/retriever"
	"github.com/focusd/focusd/internal/store"
)

// Handlers holds the dependencies every tool handler closes over.
type Handlers struct {
	store      *store.Store
	classifier *classifier.Classifier
	retriever  *retriever.Retriever
}

// NewHandlers builds a Handlers instance.
func NewHandlers(st *store.Store, cls *classifier.Classifier, r *retriever.Retriever) *Handlers {
	return &Handlers{store: st, classifier: cls, retriever: r}
}

// SearchContextRequest is the arguments for focus_search_context.
type SearchContextRequest struct {
	Query         string `json:"query"`
	WorkspacePath string `json:"workspace_path"`
	MaxTokens     int    `json:"max_tokens,omitempty"`
}

// HandleSearchContext runs the exact hot-path pipeline (classify, retrieve,
// format) against an arbitrary query string, outside of a prompt hook.
func (h *Handlers) HandleSearchContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchContextRequest](req)
	if err != nil {
		return errorResult(focuserrors.NewInvalidRequest(err.Error())), nil
	}
	if input.Query == "" {
		return errorResult(focuserrors.NewInvalidRequest("query is required")), nil
	}

	sig := h.classifier.Classify(input.Query)
	items, err := h.retriever.Retrieve(ctx, sig, input.WorkspacePath)
	if err != nil {
		return errorResult(err), nil
	}

	budget := input.MaxTokens
	if budget <= 0 {
		budget = formatter.DefaultBudget
	}

	return successResult(map[string]any{
		"context": formatter.Format(items, budget),
		"items":   len(items),
	})
}

// ListSkillsRequest is the arguments for focus_list_skills.
type ListSkillsRequest struct{}

// HandleListSkills returns every installed, active skill.
func (h *Handlers) HandleListSkills(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skills, err := h.store.ListActiveSkills(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"skills": skills})
}

// ProjectStatusRequest is the arguments for focus_project_status.
type ProjectStatusRequest struct {
	Slug string `json:"slug"`
}

// HandleProjectStatus returns a single project's tier, status, and
// engagement signals by slug.
func (h *Handlers) HandleProjectStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectStatusRequest](req)
	if err != nil {
		return errorResult(focuserrors.NewInvalidRequest(err.Error())), nil
	}
	if input.Slug == "" {
		return errorResult(focuserrors.NewInvalidRequest("slug is required")), nil
	}

	project, err := h.store.GetProjectBySlug(ctx, input.Slug)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(project)
}

// errorResult renders a FocusError (or any error) as an MCP error result.
// Internal-kind errors never leak their underlying message.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if fErr, ok := err.(*focuserrors.FocusError); ok {
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": fErr.Message,
			"status":  fErr.Status,
		}
		if fErr.Code != focuserrors.ErrInternal && fErr.Details != nil {
			errorObj["details"] = fErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{"code": "INTERNAL", "message": "an internal error occurred", "status": 500},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult renders data as a successful MCP tool result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
