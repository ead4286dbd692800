// Package skills implements the Skill Engine: session quality scoring,
// SKILL.md generation, and the installed-skill registry.
package skills

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/focusd/focusd/internal/store"
)

// Candidate is a session that qualified for skill generation.
type Candidate struct {
	SessionRowID  uuid.UUID
	QualityScore  float64
	SessionTitle  string
	Summary       string
	TurnSummaries []string
	FilesTouched  []string
	ToolsUsed     []string
}

// Analyzer scores completed sessions against §4.J's quality signals.
type Analyzer struct {
	store     *store.Store
	threshold float64
}

// NewAnalyzer builds an Analyzer gating generation at threshold.
func NewAnalyzer(st *store.Store, threshold float64) *Analyzer {
	return &Analyzer{store: st, threshold: threshold}
}

// Analyze scores the session at sessionRowID and returns a Candidate if it
// clears the configured quality threshold, or nil if it doesn't.
func (a *Analyzer) Analyze(ctx context.Context, sessionRowID uuid.UUID, confirmationTokens []string) (*Candidate, error) {
	turns, err := a.store.RecentTurnsForSession(ctx, sessionRowID)
	if err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, nil
	}

	var (
		toolCallTurns  int
		filesByTurn    = map[int][]string{}
		allFiles       []string
		allTools       []string
		errorsLastTurn []string
		lastTurn       = turns[len(turns)-1]
	)

	for _, t := range turns {
		if len(t.ToolNames) > 0 {
			toolCallTurns++
			allTools = append(allTools, t.ToolNames...)
		}
		content, err := a.store.GetTurnContent(ctx, t.ID)
		if err != nil {
			continue
		}
		if len(content.FilesTouched) > 0 {
			filesByTurn[t.TurnNumber] = content.FilesTouched
			allFiles = append(allFiles, content.FilesTouched...)
		}
		if t.ID == lastTurn.ID {
			errorsLastTurn = content.ErrorsEncountered
		}
	}

	score := scoreSessionQuality(sessionQualitySignals{
		turnCount:        len(turns),
		toolCallFraction:  float64(toolCallTurns) / float64(len(turns)),
		multiStepEdit:     multiStepEditsPresent(filesByTurn) && len(errorsLastTurn) == 0,
		toolDiversity:     len(distinct(allTools)),
		hasConfirmation:   hasConfirmationToken(lastTurn.UserMessage, confirmationTokens),
	})

	if score < a.threshold {
		return nil, nil
	}

	var turnSummaries []string
	var title string
	for _, t := range turns {
		if t.Title != nil && title == "" {
			title = *t.Title
		}
		if t.AssistantSummary != nil && *t.AssistantSummary != "" {
			turnSummaries = append(turnSummaries, *t.AssistantSummary)
		}
	}

	return &Candidate{
		SessionRowID:  sessionRowID,
		QualityScore:  score,
		SessionTitle:  title,
		TurnSummaries: turnSummaries,
		FilesTouched:  distinct(allFiles),
		ToolsUsed:     distinct(allTools),
	}, nil
}

type sessionQualitySignals struct {
	turnCount        int
	toolCallFraction float64
	multiStepEdit    bool
	toolDiversity    int
	hasConfirmation  bool
}

// scoreSessionQuality computes a five-signal quality score, each signal
// weighted evenly across [0,1].
func scoreSessionQuality(sig sessionQualitySignals) float64 {
	const weight = 0.2

	turnSignal := clamp01(math.Log2(float64(sig.turnCount)+1) / math.Log2(13))
	toolCallSignal := clamp01(sig.toolCallFraction)
	editSignal := 0.0
	if sig.multiStepEdit {
		editSignal = 1.0
	}
	diversitySignal := clamp01(float64(sig.toolDiversity) / 5)
	confirmationSignal := 0.0
	if sig.hasConfirmation {
		confirmationSignal = 1.0
	}

	return clamp01(weight * (turnSignal + toolCallSignal + editSignal + diversitySignal + confirmationSignal))
}

// multiStepEditsPresent reports whether files were touched across at least
// two distinct turns, per §4.J's "successful multi-step edits" signal.
func multiStepEditsPresent(filesByTurn map[int][]string) bool {
	turnsWithFiles := 0
	for _, files := range filesByTurn {
		if len(files) > 0 {
			turnsWithFiles++
		}
	}
	return turnsWithFiles >= 2
}

func hasConfirmationToken(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

func distinct(ss []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
