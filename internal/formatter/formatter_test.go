package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusd/focusd/internal/retriever"
)

func TestFormat_EmptyInputReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", Format(nil, DefaultBudget))
}

func TestFormat_GroupsByFixedKindOrderRegardlessOfInputOrder(t *testing.T) {
	items := []retriever.ContextItem{
		{Kind: retriever.KindError, Title: "boom", Score: 0.9},
		{Kind: retriever.KindFocus, Title: "focusd", Score: 0.1},
		{Kind: retriever.KindTask, Title: "ship it", Score: 0.5},
	}
	out := Format(items, DefaultBudget)
	focusIdx := strings.Index(out, "### Focus")
	taskIdx := strings.Index(out, "### Task")
	errIdx := strings.Index(out, "### Error")
	require.True(t, focusIdx >= 0 && taskIdx >= 0 && errIdx >= 0)
	assert.Less(t, focusIdx, taskIdx)
	assert.Less(t, taskIdx, errIdx)
}

func TestFormat_DropsItemsThatDoNotFitBudget(t *testing.T) {
	items := []retriever.ContextItem{
		{Kind: retriever.KindTask, Title: strings.Repeat("x", 400), Score: 0.9},
		{Kind: retriever.KindTask, Title: "small", Score: 0.1},
	}
	out := Format(items, 10)
	assert.NotContains(t, out, strings.Repeat("x", 400))
	assert.Contains(t, out, "small")
}

func TestFormat_MonotonicBudget_NeverShrinksAcceptedSetAsBudgetGrows(t *testing.T) {
	items := []retriever.ContextItem{
		{Kind: retriever.KindTask, Title: "one", Score: 0.9},
		{Kind: retriever.KindTask, Title: "two", Score: 0.8},
		{Kind: retriever.KindTask, Title: "three", Score: 0.7},
	}
	small := Format(items, 5)
	large := Format(items, 500)
	for _, line := range strings.Split(strings.TrimSpace(small), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		assert.Contains(t, large, line)
	}
}

func TestFormat_NonPositiveBudgetFallsBackToDefault(t *testing.T) {
	items := []retriever.ContextItem{{Kind: retriever.KindFocus, Title: "x", Score: 1}}
	out := Format(items, 0)
	assert.Contains(t, out, "[Focus] x")
}

func TestRenderLine_IncludesQualifierAndAge(t *testing.T) {
	item := retriever.ContextItem{
		Kind:     retriever.KindCommitment,
		Title:    "ship report",
		Recency:  time.Now().Add(-2 * time.Hour),
		Metadata: map[string]any{"qualifier": "to Alice"},
	}
	line := renderLine(item)
	assert.Contains(t, line, "[Commitment] ship report — to Alice")
	assert.Contains(t, line, "ago)")
}

func TestRenderLine_IncludesBodyOnSeparateLine(t *testing.T) {
	item := retriever.ContextItem{Kind: retriever.KindSkill, Title: "deploy", Body: "how to deploy"}
	line := renderLine(item)
	lines := strings.Split(line, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "how to deploy", lines[1])
}

func TestEstimateTokens_IsCeilingOfQuarterLength(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("abc"))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
}
