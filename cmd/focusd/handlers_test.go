package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	focuserrors "github.com/focusd/focusd/internal/errors"
	"github.com/focusd/focusd/internal/store"
)

func TestFallbackSummary_ShortTextReturnsItselfForBothFields(t *testing.T) {
	title, summary := fallbackSummary("fixed the bug")
	assert.Equal(t, "fixed the bug", title)
	assert.Equal(t, "fixed the bug", summary)
}

func TestFallbackSummary_LongTextTruncatesToEightyChars(t *testing.T) {
	text := "this is a very long assistant response that definitely exceeds the eighty character truncation threshold by a wide margin"
	title, summary := fallbackSummary(text)
	assert.Len(t, title, 80)
	assert.Equal(t, title, summary)
	assert.Equal(t, text[:80], title)
}

func TestHandleSkillExtract_AutoGenerateDisabledIsANoOp(t *testing.T) {
	d := &deps{
		skillsCfg: skillsConfig{AutoGenerate: false},
		logger:    zerolog.Nop(),
	}
	job := &store.Job{Payload: []byte(`{"session_id":"` + uuid.New().String() + `"}`)}
	err := d.handleSkillExtract(context.Background(), job)
	require.NoError(t, err)
}

func TestHandleSessionProcess_MalformedPayloadIsInvalidRequest(t *testing.T) {
	d := &deps{logger: zerolog.Nop()}
	job := &store.Job{Payload: []byte(`not json`)}
	err := d.handleSessionProcess(context.Background(), job)
	require.Error(t, err)
	assert.True(t, focuserrors.Is(err, focuserrors.ErrInvalidRequest))
}

func TestHandleTurnSummary_MalformedPayloadIsInvalidRequest(t *testing.T) {
	d := &deps{logger: zerolog.Nop()}
	job := &store.Job{Payload: []byte(`not json`)}
	err := d.handleTurnSummary(context.Background(), job)
	require.Error(t, err)
	assert.True(t, focuserrors.Is(err, focuserrors.ErrInvalidRequest))
}

func TestHandleEntityExtract_MalformedPayloadIsInvalidRequest(t *testing.T) {
	d := &deps{logger: zerolog.Nop()}
	job := &store.Job{Payload: []byte(`not json`)}
	err := d.handleEntityExtract(context.Background(), job)
	require.Error(t, err)
	assert.True(t, focuserrors.Is(err, focuserrors.ErrInvalidRequest))
}

func TestHandleSkillExtract_MalformedPayloadWhenEnabledIsInvalidRequest(t *testing.T) {
	d := &deps{skillsCfg: skillsConfig{AutoGenerate: true}, logger: zerolog.Nop()}
	job := &store.Job{Payload: []byte(`not json`)}
	err := d.handleSkillExtract(context.Background(), job)
	require.Error(t, err)
	assert.True(t, focuserrors.Is(err, focuserrors.ErrInvalidRequest))
}
