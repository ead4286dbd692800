package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ListActiveSkills returns every installed, active skill — the retriever's
// skill branch scores each against the classifier's signal.
func (s *Store) ListActiveSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, source, source_session_id, installed_path, scope,
			quality_score, content_hash, is_active
		FROM skills WHERE is_active
	`)
	if err != nil {
		return nil, fmt.Errorf("listing active skills: %w", err)
	}
	defer rows.Close()
	return scanSkills(rows)
}

// GetSkillByNameScope looks up an active skill by its (name, scope) key,
// used to detect a matching content_hash before regenerating.
func (s *Store) GetSkillByNameScope(ctx context.Context, name string, scope SkillScope) (*Skill, error) {
	var sk Skill
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, source, source_session_id, installed_path, scope,
			quality_score, content_hash, is_active
		FROM skills WHERE name = $1 AND scope = $2 AND is_active
	`, name, scope).Scan(&sk.ID, &sk.Name, &sk.Description, &sk.Source, &sk.SourceSessionID,
		&sk.InstalledPath, &sk.Scope, &sk.QualityScore, &sk.ContentHash, &sk.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading skill: %w", err)
	}
	return &sk, nil
}

// UpsertSkill inserts a new skill or, if (name, scope) collides with an
// active row, deactivates the old one and inserts the new version — skills
// are treated as append-only so a prior version's provenance is never
// silently overwritten.
func (s *Store) UpsertSkill(ctx context.Context, sk *Skill) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE skills SET is_active = false WHERE name = $1 AND scope = $2 AND is_active
		`, sk.Name, sk.Scope); err != nil {
			return fmt.Errorf("deactivating prior skill version: %w", err)
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO skills (name, description, source, source_session_id, installed_path, scope,
				quality_score, content_hash, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
			RETURNING id
		`, sk.Name, sk.Description, sk.Source, sk.SourceSessionID, sk.InstalledPath, sk.Scope,
			sk.QualityScore, sk.ContentHash).Scan(&id)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting skill: %w", err)
	}
	return id, nil
}

func scanSkills(rows *sql.Rows) ([]Skill, error) {
	var out []Skill
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Description, &sk.Source, &sk.SourceSessionID,
			&sk.InstalledPath, &sk.Scope, &sk.QualityScore, &sk.ContentHash, &sk.IsActive); err != nil {
			return nil, fmt.Errorf("scanning skill row: %w", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}
