// Package recorder implements idempotent session ingestion: parsing a
// transcript, deduplicating by content hash, and enqueueing the follow-up
// jobs that drive the cold path.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/artifact"
	"github.com/focusd/focusd/internal/jobqueue"
	"github.com/focusd/focusd/internal/store"
	"github.com/focusd/focusd/internal/transcript"
)

// Recorder orchestrates session ingestion.
type Recorder struct {
	store  *store.Store
	queue  *jobqueue.Queue
	logger zerolog.Logger
}

// New builds a Recorder.
func New(st *store.Store, q *jobqueue.Queue, logger zerolog.Logger) *Recorder {
	return &Recorder{store: st, queue: q, logger: logger}
}

// Input describes one session to ingest.
type Input struct {
	SessionID      string
	TranscriptPath string
	WorkspacePath  string
	RawTranscript  string // the transcript file's already-read contents
}

// Summary reports what Record did, for logging/testing.
type Summary struct {
	SessionRowID  uuid.UUID
	TurnsTotal    int
	TurnsChanged  int
	JobsEnqueued  int
	SkippedLines  int
}

type turnFollowupPayload struct {
	TurnID    uuid.UUID `json:"turn_id"`
	SessionID uuid.UUID `json:"session_id"`
}

type sessionFollowupPayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

// Record parses in.RawTranscript, upserts the Session and every Turn, and
// enqueues follow-up jobs for turns whose content actually changed. Turns
// whose stored content_hash already matches are a pure no-op: re-running
// Record on an unchanged transcript enqueues nothing new.
func (r *Recorder) Record(ctx context.Context, in Input) (*Summary, error) {
	parsed, err := transcript.Parse(strings.NewReader(in.RawTranscript))
	if err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}

	summary := &Summary{TurnsTotal: len(parsed.Turns), SkippedLines: parsed.SkippedLines}

	err = r.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		startedAt := now
		if len(parsed.Turns) > 0 && !parsed.Turns[0].StartedAt.IsZero() {
			startedAt = parsed.Turns[0].StartedAt
		}

		sessRowID, err := r.store.UpsertSession(ctx, tx, &store.Session{
			SessionID:      in.SessionID,
			TranscriptPath: in.TranscriptPath,
			WorkspacePath:  in.WorkspacePath,
			StartedAt:      startedAt,
			LastActivityAt: now,
			TurnCount:      len(parsed.Turns),
		})
		if err != nil {
			return fmt.Errorf("upserting session: %w", err)
		}
		summary.SessionRowID = sessRowID

		for _, t := range parsed.Turns {
			_, existingHash, err := r.store.GetTurnHash(ctx, sessRowID, t.TurnNumber)
			changed := true
			if err == nil {
				changed = existingHash != t.ContentHash
			} else if err != store.ErrNotFound {
				return fmt.Errorf("checking existing turn hash: %w", err)
			}

			turnID, err := r.store.UpsertTurn(ctx, tx, &store.Turn{
				SessionID:   sessRowID,
				TurnNumber:  t.TurnNumber,
				UserMessage: t.UserMessage,
				ContentHash: t.ContentHash,
				ModelName:   nilIfEmpty(t.ModelName),
				ToolNames:   t.ToolNames,
				StartedAt:   t.StartedAt,
				EndedAt:     t.EndedAt,
			})
			if err != nil {
				return fmt.Errorf("upserting turn %d: %w", t.TurnNumber, err)
			}

			if !changed {
				continue
			}
			summary.TurnsChanged++

			extracted := artifact.Extract(t.RawJSONL)
			if err := r.store.UpsertTurnContent(ctx, tx, &store.TurnContent{
				TurnID:            turnID,
				RawJSONL:          t.RawJSONL,
				AssistantText:     t.AssistantText,
				FilesTouched:      extracted.FilesTouched(),
				CommandsRun:       extracted.CommandsRun,
				ErrorsEncountered: extracted.ErrorsEncountered,
				ToolCallCount:     extracted.ToolCallCount,
				ContentSize:       len(t.RawJSONL),
			}); err != nil {
				return fmt.Errorf("upserting turn content %d: %w", t.TurnNumber, err)
			}

			payload := turnFollowupPayload{TurnID: turnID, SessionID: sessRowID}
			if _, err := r.queue.Enqueue(ctx, tx, store.JobTurnSummary, payload, 5, fmt.Sprintf("turn_summary:%s", turnID), 0); err != nil {
				return fmt.Errorf("enqueuing turn_summary: %w", err)
			}
			if _, err := r.queue.Enqueue(ctx, tx, store.JobEntityExtract, payload, 7, fmt.Sprintf("entity_extract:%s", turnID), 0); err != nil {
				return fmt.Errorf("enqueuing entity_extract: %w", err)
			}
			if _, err := r.queue.Enqueue(ctx, tx, store.JobArtifactExtract, payload, 7, fmt.Sprintf("artifact_extract:%s", turnID), 0); err != nil {
				return fmt.Errorf("enqueuing artifact_extract: %w", err)
			}
			summary.JobsEnqueued += 3
		}

		if len(parsed.Turns) > 0 {
			if _, err := r.queue.Enqueue(ctx, tx, store.JobSessionSummary, sessionFollowupPayload{SessionID: sessRowID}, 10,
				fmt.Sprintf("session_summary:%s", sessRowID), 0); err != nil {
				return fmt.Errorf("enqueuing session_summary: %w", err)
			}
			if _, err := r.queue.Enqueue(ctx, tx, store.JobSkillExtract, sessionFollowupPayload{SessionID: sessRowID}, 20,
				fmt.Sprintf("skill_extract:%s", sessRowID), 0); err != nil {
				return fmt.Errorf("enqueuing skill_extract: %w", err)
			}
			summary.JobsEnqueued += 2
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if parsed.SkippedLines > 0 {
		r.logger.Warn().Int("skipped_lines", parsed.SkippedLines).Str("session_id", in.SessionID).
			Msg("transcript parsing skipped malformed lines")
	}
	return summary, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
