package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// InsertTurnEntity links a project or person mention to a turn. Callers
// (the entity linker) are expected to have already deduplicated mentions
// within a turn.
func (s *Store) InsertTurnEntity(ctx context.Context, tx *sql.Tx, e *TurnEntity) error {
	q := s.q(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO turn_entities (turn_id, entity_type, entity_id, entity_name, confidence)
		VALUES ($1, $2, $3, $4, $5)
	`, e.TurnID, e.EntityType, e.EntityID, e.EntityName, e.Confidence)
	if err != nil {
		return fmt.Errorf("inserting turn entity: %w", err)
	}
	return nil
}

// InsertTurnArtifact materializes one extracted file/command/error artifact.
func (s *Store) InsertTurnArtifact(ctx context.Context, tx *sql.Tx, a *TurnArtifact) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling artifact metadata: %w", err)
	}
	q := s.q(tx)
	_, err = q.ExecContext(ctx, `
		INSERT INTO turn_artifacts (turn_id, artifact_type, artifact_value, metadata)
		VALUES ($1, $2, $3, $4)
	`, a.TurnID, a.ArtifactType, a.ArtifactValue, meta)
	if err != nil {
		return fmt.Errorf("inserting turn artifact: %w", err)
	}
	return nil
}

// RecentErrorArtifacts returns error artifacts within the lookback window
// whose turn links to one of the given project/person entity names or
// touches one of the given paths.
func (s *Store) RecentErrorArtifacts(ctx context.Context, entityNames, paths []string, since time.Time, limit int) ([]TurnArtifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT a.id, a.turn_id, a.artifact_type, a.artifact_value, a.metadata
		FROM turn_artifacts a
		JOIN turns t ON t.id = a.turn_id
		LEFT JOIN turn_entities te ON te.turn_id = t.id
		LEFT JOIN turn_contents tc ON tc.turn_id = t.id
		WHERE a.artifact_type = 'error'
			AND t.started_at >= $3
			AND (te.entity_name = ANY($1) OR tc.files_touched && $2)
		ORDER BY t.started_at DESC
		LIMIT $4
	`, pq.Array(entityNames), pq.Array(paths), since, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent error artifacts: %w", err)
	}
	defer rows.Close()

	var out []TurnArtifact
	for rows.Next() {
		var a TurnArtifact
		var meta []byte
		if err := rows.Scan(&a.ID, &a.TurnID, &a.ArtifactType, &a.ArtifactValue, &meta); err != nil {
			return nil, fmt.Errorf("scanning error artifact: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling artifact metadata: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
