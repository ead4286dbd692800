package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusd/focusd/internal/classifier"
	"github.com/focusd/focusd/internal/retriever"
)

func TestPrompt_Run_MalformedInputReturnsEmptyResponseNotError(t *testing.T) {
	cls := classifier.New(nil, time.Minute)
	r := retriever.New(nil)
	p := NewPrompt(cls, r, 500, zerolog.Nop())

	var out bytes.Buffer
	err := p.Run(context.Background(), strings.NewReader("not json"), &out)
	require.NoError(t, err)

	var resp PromptResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "", resp.Context)
}

func TestPrompt_Run_ShortPromptProducesEmptyContextWithoutTouchingStore(t *testing.T) {
	cls := classifier.New(nil, time.Minute)
	r := retriever.New(nil)
	p := NewPrompt(cls, r, 500, zerolog.Nop())

	req := PromptRequest{SessionID: "s1", Prompt: "hi"}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	err = p.Run(context.Background(), bytes.NewReader(body), &out)
	require.NoError(t, err)

	var resp PromptResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "", resp.Context)
}

func TestStop_Run_MalformedInputNeverErrors(t *testing.T) {
	s := NewStop(nil, zerolog.Nop())
	err := s.Run(context.Background(), strings.NewReader("not json"), &bytes.Buffer{})
	require.NoError(t, err)
}

