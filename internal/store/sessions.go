package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertSession inserts a session by external session_id, or updates
// last_activity_at/transcript_path/turn_count if it already exists. Returns
// the row's internal id.
func (s *Store) UpsertSession(ctx context.Context, tx *sql.Tx, sess *Session) (uuid.UUID, error) {
	q := s.q(tx)
	var id uuid.UUID
	err := q.QueryRowContext(ctx, `
		INSERT INTO sessions (session_id, transcript_path, workspace_path, started_at, last_activity_at, turn_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			last_activity_at = GREATEST(sessions.last_activity_at, EXCLUDED.last_activity_at),
			transcript_path = EXCLUDED.transcript_path,
			turn_count = EXCLUDED.turn_count
		RETURNING id
	`, sess.SessionID, sess.TranscriptPath, sess.WorkspacePath, sess.StartedAt, sess.LastActivityAt, sess.TurnCount).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting session: %w", err)
	}
	return id, nil
}

// GetSessionByExternalID looks up a session by its external session_id.
func (s *Store) GetSessionByExternalID(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, transcript_path, workspace_path, started_at, last_activity_at,
			turn_count, project_id, is_processed, title, summary
		FROM sessions WHERE session_id = $1
	`, sessionID)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.SessionID, &sess.TranscriptPath, &sess.WorkspacePath,
		&sess.StartedAt, &sess.LastActivityAt, &sess.TurnCount, &sess.ProjectID,
		&sess.IsProcessed, &sess.Title, &sess.Summary)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}

// MarkSessionProcessed sets is_processed and, when non-empty, the title and
// summary computed by session_summary job handling.
func (s *Store) MarkSessionProcessed(ctx context.Context, id uuid.UUID, title, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET is_processed = true,
			title = CASE WHEN $2 = '' THEN title ELSE $2 END,
			summary = CASE WHEN $3 = '' THEN summary ELSE $3 END
		WHERE id = $1
	`, id, title, summary)
	if err != nil {
		return fmt.Errorf("marking session processed: %w", err)
	}
	return nil
}

// SetSessionProject links a session to its selected project.
func (s *Store) SetSessionProject(ctx context.Context, id, projectID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET project_id = $2 WHERE id = $1`, id, projectID)
	if err != nil {
		return fmt.Errorf("setting session project: %w", err)
	}
	return nil
}

// RecentSessionsForWorkspace returns sessions touching workspacePath within
// the lookback window, most recent first. The entity linker's
// per-workspace project selection uses SelectedProjectForWorkspace instead.
func (s *Store) RecentSessionsForWorkspace(ctx context.Context, workspacePath string, since time.Time) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, transcript_path, workspace_path, started_at, last_activity_at,
			turn_count, project_id, is_processed, title, summary
		FROM sessions
		WHERE workspace_path = $1 AND last_activity_at >= $2
		ORDER BY last_activity_at DESC
	`, workspacePath, since)
	if err != nil {
		return nil, fmt.Errorf("listing sessions for workspace: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.SessionID, &sess.TranscriptPath, &sess.WorkspacePath,
			&sess.StartedAt, &sess.LastActivityAt, &sess.TurnCount, &sess.ProjectID,
			&sess.IsProcessed, &sess.Title, &sess.Summary); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
