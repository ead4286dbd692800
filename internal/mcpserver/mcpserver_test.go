package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	focuserrors "github.com/focusd/focusd/internal/errors"
)

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func parseResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is not TextContent")
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func TestHandleSearchContext_EmptyQueryIsInvalidRequestWithoutTouchingStore(t *testing.T) {
	h := &Handlers{}
	req := makeRequest(map[string]any{"workspace_path": "/tmp/project"})
	result, err := h.HandleSearchContext(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	payload := parseResult(t, result)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, string(focuserrors.ErrInvalidRequest), errObj["code"])
}

func TestHandleProjectStatus_EmptySlugIsInvalidRequestWithoutTouchingStore(t *testing.T) {
	h := &Handlers{}
	req := makeRequest(map[string]any{})
	result, err := h.HandleProjectStatus(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	payload := parseResult(t, result)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, string(focuserrors.ErrInvalidRequest), errObj["code"])
}

func TestHandleSearchContext_MalformedArgumentsIsInvalidRequest(t *testing.T) {
	h := &Handlers{}
	req := makeRequest(map[string]any{"max_tokens": "not-a-number"})
	result, err := h.HandleSearchContext(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestErrorResult_InternalOmitsDetails(t *testing.T) {
	r := errorResult(focuserrors.NewInternal(assertErr{}))
	require.True(t, r.IsError)

	payload := parseResult(t, r)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, string(focuserrors.ErrInternal), errObj["code"])
	_, hasDetails := errObj["details"]
	assert.False(t, hasDetails)
}

func TestErrorResult_NotFoundIncludesDetails(t *testing.T) {
	r := errorResult(focuserrors.NewNotFound("project", "acme"))
	require.True(t, r.IsError)

	payload := parseResult(t, r)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, string(focuserrors.ErrNotFound), errObj["code"])
	_, hasDetails := errObj["details"]
	assert.True(t, hasDetails)
}

func TestErrorResult_NonFocusErrorIsGenericInternal(t *testing.T) {
	r := errorResult(assertErr{})
	require.True(t, r.IsError)

	payload := parseResult(t, r)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, "INTERNAL", errObj["code"])
	assert.Equal(t, "an internal error occurred", errObj["message"])
}

func TestSuccessResult_RendersDataAsJSON(t *testing.T) {
	result, err := successResult(map[string]any{"ok": true})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	payload := parseResult(t, result)
	assert.Equal(t, true, payload["ok"])
}

func TestDecode_UnmarshalsArgumentsIntoTypedStruct(t *testing.T) {
	req := makeRequest(map[string]any{"query": "what did I work on", "max_tokens": 200.0})
	out, err := decode[SearchContextRequest](req)
	require.NoError(t, err)
	assert.Equal(t, "what did I work on", out.Query)
	assert.Equal(t, 200, out.MaxTokens)
}

func TestDecode_EmptyArgumentsYieldsZeroValue(t *testing.T) {
	req := makeRequest(nil)
	out, err := decode[SearchContextRequest](req)
	require.NoError(t, err)
	assert.Equal(t, SearchContextRequest{}, out)
}

func TestAllToolNames_MatchesRegisteredRegistry(t *testing.T) {
	names := AllToolNames()
	assert.Len(t, names, len(toolRegistry))
	for _, name := range names {
		_, ok := toolRegistry[name]
		assert.True(t, ok, "unregistered tool name returned: %s", name)
	}
	assert.Contains(t, names, "focus_search_context")
	assert.Contains(t, names, "focus_list_skills")
	assert.Contains(t, names, "focus_project_status")
}

type assertErr struct{}

func (assertErr) Error() string { return "sql error: open /tmp/secret.db: permission denied" }
