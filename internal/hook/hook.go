// Package hook implements the two wire-level entry points the coding
// assistant invokes directly: the prompt hook (hot path, derives context
// to inject) and the stop hook (enqueues session ingestion). Both are pure
// functions over io.Reader/io.Writer so they're testable without a process,
// per spec.md §6's description of the invocation surface.
package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/classifier"
	"github.com/focusd/focusd/internal/formatter"
	"github.com/focusd/focusd/internal/jobqueue"
	"github.com/focusd/focusd/internal/retriever"
	"github.com/focusd/focusd/internal/store"
)

// PromptRequest is the JSON object the assistant writes to stdin for a
// prompt-hook invocation.
type PromptRequest struct {
	SessionID     string `json:"session_id"`
	WorkspacePath string `json:"workspace_path"`
	Prompt        string `json:"prompt"`
}

// PromptResponse is the JSON object written to stdout. Context is the
// empty string both when nothing qualified and when the hook failed
// internally — the two cases are indistinguishable to the caller by
// design, per the silent-on-failure contract.
type PromptResponse struct {
	Context string `json:"context"`
}

// Prompt implements the prompt hook: classify, retrieve, format, respond.
// Any internal failure is logged and swallowed, surfacing as an empty
// PromptResponse; Run returns an error only when writing the response fails.
type Prompt struct {
	classifier *classifier.Classifier
	retriever  *retriever.Retriever
	budget     int
	logger     zerolog.Logger
}

// NewPrompt builds a Prompt hook handler.
func NewPrompt(c *classifier.Classifier, r *retriever.Retriever, tokenBudget int, logger zerolog.Logger) *Prompt {
	return &Prompt{classifier: c, retriever: r, budget: tokenBudget, logger: logger.With().Str("component", "hook_prompt").Logger()}
}

// Run reads a PromptRequest from r, derives context, and writes a
// PromptResponse to w. Always writes a valid response: a malformed request
// or a swallowed-internally failure gets an empty one. Only a write failure
// is returned to the caller.
func (p *Prompt) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	var req PromptRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return writeResponse(w, PromptResponse{})
	}

	resp := PromptResponse{Context: p.derive(ctx, req)}
	return writeResponse(w, resp)
}

func (p *Prompt) derive(ctx context.Context, req PromptRequest) string {
	sig := p.classifier.Classify(req.Prompt)

	items, err := p.retriever.Retrieve(ctx, sig, req.WorkspacePath)
	if err != nil {
		p.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("retrieval failed")
		return ""
	}

	return formatter.Format(items, p.budget)
}

// StopRequest is the JSON object the assistant writes to stdin for a
// stop-hook invocation.
type StopRequest struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	WorkspacePath  string `json:"workspace_path"`
}

// Stop implements the stop hook: enqueue a session_process job and exit.
// It does not read or parse the transcript itself — that's the worker's
// session_process handler's job, run asynchronously off the job queue.
type Stop struct {
	queue  *jobqueue.Queue
	logger zerolog.Logger
}

// NewStop builds a Stop hook handler.
func NewStop(q *jobqueue.Queue, logger zerolog.Logger) *Stop {
	return &Stop{queue: q, logger: logger.With().Str("component", "hook_stop").Logger()}
}

type stopPayload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	WorkspacePath  string `json:"workspace_path"`
}

// Run reads a StopRequest from r and enqueues the session for ingestion.
// Always returns nil to the caller — failures are logged, never surfaced,
// per the silent-on-failure contract.
func (s *Stop) Run(ctx context.Context, r io.Reader, _ io.Writer) error {
	var req StopRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		s.logger.Warn().Err(err).Msg("malformed stop hook request")
		return nil
	}

	dedupe := fmt.Sprintf("stop_hook:%s", req.SessionID)
	_, err := s.queue.Enqueue(ctx, nil, store.JobSessionProcess, stopPayload{
		SessionID:      req.SessionID,
		TranscriptPath: req.TranscriptPath,
		WorkspacePath:  req.WorkspacePath,
	}, 1, dedupe, 0)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("enqueuing session_process failed")
	}
	return nil
}

func writeResponse(w io.Writer, resp PromptResponse) error {
	return json.NewEncoder(w).Encode(resp)
}
