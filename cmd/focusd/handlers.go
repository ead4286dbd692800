package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/classifier"
	"github.com/focusd/focusd/internal/entitylink"
	focuserrors "github.com/focusd/focusd/internal/errors"
	"github.com/focusd/focusd/internal/llm"
	"github.com/focusd/focusd/internal/recorder"
	"github.com/focusd/focusd/internal/skills"
	"github.com/focusd/focusd/internal/store"
	"github.com/focusd/focusd/internal/worker"
)

// deps bundles the components every job handler closes over.
type deps struct {
	store      *store.Store
	recorder   *recorder.Recorder
	classifier *classifier.Classifier
	linker     *entitylink.Linker
	llm        *llm.Service
	skills     *skills.Engine
	skillsCfg  skillsConfig
	logger     zerolog.Logger
}

type skillsConfig struct {
	AutoGenerate       bool
	ConfirmationTokens []string
}

// registerHandlers binds every store.JobKind to its handler on w.
func registerHandlers(w *worker.Worker, d *deps) {
	w.Register(store.JobSessionProcess, d.handleSessionProcess)
	w.Register(store.JobTurnSummary, d.handleTurnSummary)
	w.Register(store.JobEntityExtract, d.handleEntityExtract)
	w.Register(store.JobArtifactExtract, d.handleArtifactExtract)
	w.Register(store.JobSessionSummary, d.handleSessionSummary)
	w.Register(store.JobSkillExtract, d.handleSkillExtract)
}

type sessionProcessPayload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	WorkspacePath  string `json:"workspace_path"`
}

// handleSessionProcess reads the transcript off disk and runs the
// Recorder's idempotent ingestion. This is the only job that reads raw
// transcript bytes — every other kind operates on already-ingested rows.
func (d *deps) handleSessionProcess(ctx context.Context, job *store.Job) error {
	var p sessionProcessPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return focuserrors.NewInvalidRequest("malformed session_process payload: " + err.Error())
	}

	raw, err := os.ReadFile(p.TranscriptPath)
	if err != nil {
		return focuserrors.NewUnavailable("reading transcript file", err)
	}

	_, err = d.recorder.Record(ctx, recorder.Input{
		SessionID:      p.SessionID,
		TranscriptPath: p.TranscriptPath,
		WorkspacePath:  p.WorkspacePath,
		RawTranscript:  string(raw),
	})
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	return nil
}

type turnPayload struct {
	TurnID    uuid.UUID `json:"turn_id"`
	SessionID uuid.UUID `json:"session_id"`
}

// handleTurnSummary produces a turn's title/summary via the model
// capability, falling back to truncation when it's unavailable per
// §4.I's degraded-mode contract.
func (d *deps) handleTurnSummary(ctx context.Context, job *store.Job) error {
	var p turnPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return focuserrors.NewInvalidRequest("malformed turn_summary payload: " + err.Error())
	}

	content, err := d.store.GetTurnContent(ctx, p.TurnID)
	if err != nil {
		return fmt.Errorf("loading turn content: %w", err)
	}

	title, summary, err := d.llm.SummarizeTurn(ctx, "", content.AssistantText)
	if err != nil {
		title, summary = fallbackSummary(content.AssistantText)
	}

	if err := d.store.SetTurnSummary(ctx, p.TurnID, title, summary); err != nil {
		return fmt.Errorf("storing turn summary: %w", err)
	}
	return nil
}

func fallbackSummary(text string) (title, summary string) {
	const n = 80
	if len(text) <= n {
		return text, text
	}
	return text[:n], text[:n]
}

// handleEntityExtract links a turn's text to project/person rows via the
// shared matching core, reusing the classifier's compiled patterns.
func (d *deps) handleEntityExtract(ctx context.Context, job *store.Job) error {
	var p turnPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return focuserrors.NewInvalidRequest("malformed entity_extract payload: " + err.Error())
	}

	turn, err := d.store.GetTurnByID(ctx, p.TurnID)
	if err != nil {
		return fmt.Errorf("loading turn: %w", err)
	}
	content, err := d.store.GetTurnContent(ctx, p.TurnID)
	if err != nil {
		return fmt.Errorf("loading turn content: %w", err)
	}

	text := turn.UserMessage + "\n" + content.AssistantText
	return d.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := d.linker.Link(ctx, tx, p.TurnID, text)
		return err
	})
}

type artifactPayload = turnPayload

// handleArtifactExtract materializes the bulky extracted artifacts the
// recorder already computed inline into individual turn_artifacts rows —
// the fine-grained per-artifact history the retriever's error branch and
// future audit tooling query against.
func (d *deps) handleArtifactExtract(ctx context.Context, job *store.Job) error {
	var p artifactPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return focuserrors.NewInvalidRequest("malformed artifact_extract payload: " + err.Error())
	}

	content, err := d.store.GetTurnContent(ctx, p.TurnID)
	if err != nil {
		return fmt.Errorf("loading turn content: %w", err)
	}

	return d.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, f := range content.FilesTouched {
			if err := d.store.InsertTurnArtifact(ctx, tx, &store.TurnArtifact{
				TurnID: p.TurnID, ArtifactType: store.ArtifactFile, ArtifactValue: f,
			}); err != nil {
				return err
			}
		}
		for _, c := range content.CommandsRun {
			if err := d.store.InsertTurnArtifact(ctx, tx, &store.TurnArtifact{
				TurnID: p.TurnID, ArtifactType: store.ArtifactCommand, ArtifactValue: c,
			}); err != nil {
				return err
			}
		}
		for _, e := range content.ErrorsEncountered {
			if err := d.store.InsertTurnArtifact(ctx, tx, &store.TurnArtifact{
				TurnID: p.TurnID, ArtifactType: store.ArtifactError, ArtifactValue: e,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// handleSessionSummary aggregates a session's turn summaries into its
// title/summary and marks it processed.
func (d *deps) handleSessionSummary(ctx context.Context, job *store.Job) error {
	var p struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return focuserrors.NewInvalidRequest("malformed session_summary payload: " + err.Error())
	}

	turns, err := d.store.RecentTurnsForSession(ctx, p.SessionID)
	if err != nil {
		return fmt.Errorf("loading turns: %w", err)
	}

	var title, summary string
	for _, t := range turns {
		if t.Title != nil && title == "" {
			title = *t.Title
		}
		if t.AssistantSummary != nil {
			summary += *t.AssistantSummary + " "
		}
	}

	if err := d.store.MarkSessionProcessed(ctx, p.SessionID, title, summary); err != nil {
		return fmt.Errorf("marking session processed: %w", err)
	}
	return nil
}

// handleSkillExtract runs the Skill Engine's quality gate over a completed
// session and, if it qualifies, generates and installs a SKILL document.
func (d *deps) handleSkillExtract(ctx context.Context, job *store.Job) error {
	if !d.skillsCfg.AutoGenerate {
		return nil
	}
	var p struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return focuserrors.NewInvalidRequest("malformed skill_extract payload: " + err.Error())
	}

	sk, err := d.skills.GenerateFromSession(ctx, p.SessionID, d.skillsCfg.ConfirmationTokens)
	if err != nil {
		return fmt.Errorf("generating skill: %w", err)
	}
	if sk == nil {
		d.logger.Debug().Str("session_id", p.SessionID.String()).Msg("session did not qualify for skill generation")
	}
	return nil
}
