// Package llm wraps the optional large-model capability used by turn
// summarization and skill generation. When no API key is configured the
// capability is absent and callers fall back per §4.I/§4.J's documented
// degraded-mode contracts.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	focuserrors "github.com/focusd/focusd/internal/errors"
)

// defaultModel is the Claude model used for summarization and skill
// synthesis — small, fast completions, not agentic tool use.
const defaultModel = "claude-3-5-haiku-latest"

// Service exposes the two model-backed operations the cold path needs.
type Service struct {
	chat model.ToolCallingChatModel
}

// New builds a Service against apiKey, or returns (nil, nil) when apiKey is
// empty — callers must check for a nil Service and treat it as "model
// capability not configured" (focuserrors.ErrModelDisabled), per §4.J's
// degraded-mode rule.
func New(ctx context.Context, apiKey, modelName string) (*Service, error) {
	if apiKey == "" {
		return nil, nil
	}
	if modelName == "" {
		modelName = defaultModel
	}
	chat, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing claude chat model: %w", err)
	}
	return &Service{chat: chat}, nil
}

// SummarizeTurn produces a short title and one-paragraph summary of a
// turn's exchange, used by the turn_summary job handler.
func (s *Service) SummarizeTurn(ctx context.Context, userMessage, assistantText string) (title, summary string, err error) {
	if s == nil {
		return "", "", focuserrors.ErrModelDisabled
	}
	prompt := fmt.Sprintf(
		"Summarize this exchange in two lines. Line 1: a short title (under 8 words, no punctuation). Line 2: a one-sentence summary.\n\nUser: %s\n\nAssistant: %s",
		truncate(userMessage, 2000), truncate(assistantText, 4000))

	resp, err := s.chat.Generate(ctx, []*schema.Message{{Role: schema.User, Content: prompt}})
	if err != nil {
		return "", "", focuserrors.NewUnavailable("turn summarization model call failed", err)
	}

	title, summary = splitTwoLines(resp.Content)
	return title, summary, nil
}

// SynthesizeSkill drafts a SKILL document body from an ordered list of turn
// summaries, used by the skill_extract job handler's generation phase.
func (s *Service) SynthesizeSkill(ctx context.Context, sessionSummary string, turnSummaries []string) (description, procedure string, err error) {
	if s == nil {
		return "", "", focuserrors.ErrModelDisabled
	}
	prompt := fmt.Sprintf(
		"Given this session summary and ordered turn summaries, write:\nLine 1: a one-line skill description.\nThen a numbered procedure, one short imperative step per turn summary, generalized away from session-specific details.\n\nSession summary: %s\n\nTurn summaries:\n%s",
		truncate(sessionSummary, 1000), strings.Join(turnSummaries, "\n"))

	resp, err := s.chat.Generate(ctx, []*schema.Message{{Role: schema.User, Content: prompt}})
	if err != nil {
		return "", "", focuserrors.NewUnavailable("skill synthesis model call failed", err)
	}

	lines := strings.SplitN(strings.TrimSpace(resp.Content), "\n", 2)
	description = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		procedure = strings.TrimSpace(lines[1])
	}
	return description, procedure, nil
}

func splitTwoLines(text string) (first, second string) {
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	first = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		second = strings.TrimSpace(lines[1])
	}
	return first, second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
