package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// GetTurnHash returns the content_hash of the turn at (sessionID,
// turnNumber), or ErrNotFound if it doesn't exist yet — the Recorder uses
// this to decide whether re-ingestion is a no-op.
func (s *Store) GetTurnHash(ctx context.Context, sessionID uuid.UUID, turnNumber int) (uuid.UUID, string, error) {
	var id uuid.UUID
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content_hash FROM turns WHERE session_id = $1 AND turn_number = $2
	`, sessionID, turnNumber).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return uuid.Nil, "", ErrNotFound
	}
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("reading turn hash: %w", err)
	}
	return id, hash, nil
}

// UpsertTurn inserts or replaces the turn at (session_id, turn_number),
// returning its id. The recorder checks GetTurnHash first and, when the
// hash already matches, still calls this but skips all downstream work.
func (s *Store) UpsertTurn(ctx context.Context, tx *sql.Tx, t *Turn) (uuid.UUID, error) {
	q := s.q(tx)
	var id uuid.UUID
	err := q.QueryRowContext(ctx, `
		INSERT INTO turns (session_id, turn_number, user_message, assistant_summary, title,
			content_hash, model_name, tool_names, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id, turn_number) DO UPDATE SET
			user_message = EXCLUDED.user_message,
			content_hash = EXCLUDED.content_hash,
			tool_names = EXCLUDED.tool_names,
			ended_at = EXCLUDED.ended_at
		RETURNING id
	`, t.SessionID, t.TurnNumber, t.UserMessage, t.AssistantSummary, t.Title,
		t.ContentHash, t.ModelName, pq.Array(t.ToolNames), t.StartedAt, t.EndedAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting turn: %w", err)
	}
	return id, nil
}

// SetTurnSummary records the title/assistant_summary produced by turn
// summarization, falling back to truncation when the model is unavailable.
func (s *Store) SetTurnSummary(ctx context.Context, turnID uuid.UUID, title, summary string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE turns SET title = $2, assistant_summary = $3 WHERE id = $1`, turnID, title, summary)
	if err != nil {
		return fmt.Errorf("setting turn summary: %w", err)
	}
	return nil
}

// UpsertTurnContent inserts or replaces the bulky body of a turn.
func (s *Store) UpsertTurnContent(ctx context.Context, tx *sql.Tx, c *TurnContent) error {
	q := s.q(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO turn_contents (turn_id, raw_jsonl, assistant_text, files_touched, commands_run,
			errors_encountered, tool_call_count, content_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (turn_id) DO UPDATE SET
			raw_jsonl = EXCLUDED.raw_jsonl,
			assistant_text = EXCLUDED.assistant_text,
			files_touched = EXCLUDED.files_touched,
			commands_run = EXCLUDED.commands_run,
			errors_encountered = EXCLUDED.errors_encountered,
			tool_call_count = EXCLUDED.tool_call_count,
			content_size = EXCLUDED.content_size
	`, c.TurnID, c.RawJSONL, c.AssistantText, pq.Array(c.FilesTouched), pq.Array(c.CommandsRun),
		pq.Array(c.ErrorsEncountered), c.ToolCallCount, c.ContentSize)
	if err != nil {
		return fmt.Errorf("upserting turn content: %w", err)
	}
	return nil
}

// GetTurnContent fetches the bulky body of a turn, used by turn
// summarization and entity extraction handlers.
func (s *Store) GetTurnContent(ctx context.Context, turnID uuid.UUID) (*TurnContent, error) {
	var c TurnContent
	c.TurnID = turnID
	err := s.db.QueryRowContext(ctx, `
		SELECT raw_jsonl, assistant_text, files_touched, commands_run, errors_encountered,
			tool_call_count, content_size
		FROM turn_contents WHERE turn_id = $1
	`, turnID).Scan(&c.RawJSONL, &c.AssistantText, pq.Array(&c.FilesTouched), pq.Array(&c.CommandsRun),
		pq.Array(&c.ErrorsEncountered), &c.ToolCallCount, &c.ContentSize)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading turn content: %w", err)
	}
	return &c, nil
}

// GetTurnByID fetches a single turn by its row id, used by the
// entity_extract job handler to read the text to scan for mentions.
func (s *Store) GetTurnByID(ctx context.Context, turnID uuid.UUID) (*Turn, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, turn_number, user_message, assistant_summary, title,
			content_hash, model_name, tool_names, started_at, ended_at
		FROM turns WHERE id = $1
	`, turnID)
	var t Turn
	if err := row.Scan(&t.ID, &t.SessionID, &t.TurnNumber, &t.UserMessage, &t.AssistantSummary, &t.Title,
		&t.ContentHash, &t.ModelName, pq.Array(&t.ToolNames), &t.StartedAt, &t.EndedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading turn: %w", err)
	}
	return &t, nil
}

// RecentTurnsForSession returns every turn for a session, ordered by
// turn_number, used by session summarization.
func (s *Store) RecentTurnsForSession(ctx context.Context, sessionID uuid.UUID) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, turn_number, user_message, assistant_summary, title,
			content_hash, model_name, tool_names, started_at, ended_at
		FROM turns WHERE session_id = $1 ORDER BY turn_number
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing turns for session: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// TurnsMatchingSignal returns recent turns whose linked entities or touched
// files intersect the retriever's signal, within the lookback window.
func (s *Store) TurnsMatchingSignal(ctx context.Context, projectSlugs, personNames, paths []string, since time.Time, limit int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT t.id, t.session_id, t.turn_number, t.user_message, t.assistant_summary, t.title,
			t.content_hash, t.model_name, t.tool_names, t.started_at, t.ended_at
		FROM turns t
		LEFT JOIN turn_entities te ON te.turn_id = t.id
		LEFT JOIN turn_contents tc ON tc.turn_id = t.id
		WHERE t.started_at >= $4
			AND (
				te.entity_name = ANY($1)
				OR te.entity_name = ANY($2)
				OR tc.files_touched && $3
			)
		ORDER BY t.started_at DESC
		LIMIT $5
	`, pq.Array(projectSlugs), pq.Array(personNames), pq.Array(paths), since, limit)
	if err != nil {
		return nil, fmt.Errorf("matching turns to signal: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TurnNumber, &t.UserMessage, &t.AssistantSummary, &t.Title,
			&t.ContentHash, &t.ModelName, pq.Array(&t.ToolNames), &t.StartedAt, &t.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EntityNamesForTurn returns the project/person names linked to a turn,
// used by the conversation retrieval branch to compute entity_overlap.
func (s *Store) EntityNamesForTurn(ctx context.Context, turnID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_name FROM turn_entities WHERE turn_id = $1`, turnID)
	if err != nil {
		return nil, fmt.Errorf("listing turn entities: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning entity name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
