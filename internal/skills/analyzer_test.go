package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreSessionQuality_AllSignalsHighScoresNearOne(t *testing.T) {
	score := scoreSessionQuality(sessionQualitySignals{
		turnCount:        12,
		toolCallFraction: 1.0,
		multiStepEdit:    true,
		toolDiversity:    5,
		hasConfirmation:  true,
	})
	assert.InDelta(t, 1.0, score, 0.05)
}

func TestScoreSessionQuality_NoSignalsScoresZero(t *testing.T) {
	score := scoreSessionQuality(sessionQualitySignals{})
	assert.Equal(t, 0.0, score)
}

func TestScoreSessionQuality_IsMonotonicInTurnCount(t *testing.T) {
	low := scoreSessionQuality(sessionQualitySignals{turnCount: 1})
	high := scoreSessionQuality(sessionQualitySignals{turnCount: 10})
	assert.Greater(t, high, low)
}

func TestMultiStepEditsPresent(t *testing.T) {
	assert.False(t, multiStepEditsPresent(map[int][]string{1: {"a.go"}}))
	assert.True(t, multiStepEditsPresent(map[int][]string{1: {"a.go"}, 2: {"b.go"}}))
	assert.False(t, multiStepEditsPresent(map[int][]string{1: {}, 2: {}}))
}

func TestHasConfirmationToken(t *testing.T) {
	assert.True(t, hasConfirmationToken("Thanks, that works great!", []string{"thanks", "works"}))
	assert.False(t, hasConfirmationToken("still broken", []string{"thanks", "works"}))
}

func TestDistinct_PreservesFirstOccurrenceOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, distinct([]string{"a", "b", "a", "b"}))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
}
