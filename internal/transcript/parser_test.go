package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleUserAssistantPairIsOneTurn(t *testing.T) {
	input := `{"type":"user","message":{"role":"user","content":"fix the bug"}}
{"type":"assistant","message":{"role":"assistant","model":"claude-3-5-haiku","content":[{"type":"text","text":"done"}]}}`

	tr, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tr.Turns, 1)
	assert.Equal(t, "fix the bug", tr.Turns[0].UserMessage)
	assert.Equal(t, "done", tr.Turns[0].AssistantText)
	assert.Equal(t, "claude-3-5-haiku", tr.Turns[0].ModelName)
}

func TestParse_NewUserMessageStartsNewTurn(t *testing.T) {
	input := `{"type":"user","message":{"role":"user","content":"first"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"reply one"}]}}
{"type":"user","message":{"role":"user","content":"second"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"reply two"}]}}`

	tr, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tr.Turns, 2)
	assert.Equal(t, 0, tr.Turns[0].TurnNumber)
	assert.Equal(t, 1, tr.Turns[1].TurnNumber)
	assert.Equal(t, "first", tr.Turns[0].UserMessage)
	assert.Equal(t, "second", tr.Turns[1].UserMessage)
}

func TestParse_TrailingUserMessageWithNoReplyBecomesATurn(t *testing.T) {
	input := `{"type":"user","message":{"role":"user","content":"are you there"}}`
	tr, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tr.Turns, 1)
	assert.Empty(t, tr.Turns[0].AssistantText)
}

func TestParse_SkipsMalformedAndSidechainAndMetaLines(t *testing.T) {
	input := `not json at all
{"type":"user","isSidechain":true,"message":{"role":"user","content":"ignored"}}
{"type":"user","isMeta":true,"message":{"role":"user","content":"ignored too"}}
{"type":"user","message":{"role":"user","content":"real message"}}`

	tr, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tr.Turns, 1)
	assert.Equal(t, "real message", tr.Turns[0].UserMessage)
	assert.Equal(t, 1, tr.SkippedLines)
}

func TestParse_SkipsCommandNameAndLocalCommandPseudoMessages(t *testing.T) {
	input := `{"type":"user","message":{"role":"user","content":"<command-name>clear</command-name>"}}
{"type":"user","message":{"role":"user","content":"real one"}}`
	tr, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tr.Turns, 1)
	assert.Equal(t, "real one", tr.Turns[0].UserMessage)
}

func TestParse_CollectsToolNamesInFirstSeenOrderDeduped(t *testing.T) {
	input := `{"type":"user","message":{"role":"user","content":"go"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","name":"Read"},{"type":"tool_use","name":"Bash"},{"type":"tool_use","name":"Read"}]}}`
	tr, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tr.Turns, 1)
	assert.Equal(t, []string{"Read", "Bash"}, tr.Turns[0].ToolNames)
}

func TestComputeContentHash_IsDeterministicAndSensitiveToAllInputs(t *testing.T) {
	h1 := ComputeContentHash("u", "a", []string{"Read"})
	h2 := ComputeContentHash("u", "a", []string{"Read"})
	h3 := ComputeContentHash("u", "a", []string{"Write"})
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
