package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListActiveProjects returns every active project — the classifier and
// entity linker prefetch this set once per invocation/refresh cycle to
// compile their matchers against.
func (s *Store) ListActiveProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, description, tier, status, mention_count, last_activity,
			user_pinned, user_priority, user_deadline, first_mention_at, source_diversity, people_count
		FROM projects WHERE status = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("listing active projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Tier, &p.Status, &p.MentionCount,
			&p.LastActivity, &p.UserPinned, &p.UserPriority, &p.UserDeadline, &p.FirstMentionAt,
			&p.SourceDiversity, &p.PeopleCount); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProjectBySlug looks up a project by its unique slug.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, tier, status, mention_count, last_activity,
			user_pinned, user_priority, user_deadline, first_mention_at, source_diversity, people_count
		FROM projects WHERE slug = $1
	`, slug).Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Tier, &p.Status, &p.MentionCount,
		&p.LastActivity, &p.UserPinned, &p.UserPriority, &p.UserDeadline, &p.FirstMentionAt,
		&p.SourceDiversity, &p.PeopleCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return &p, nil
}

// BumpProjectMention increments a project's mention_count and
// last_activity, called whenever the entity linker attributes a turn to it.
func (s *Store) BumpProjectMention(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	q := s.q(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE projects SET mention_count = mention_count + 1, last_activity = GREATEST(last_activity, $2)
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("bumping project mention: %w", err)
	}
	return nil
}

// ProjectIDsBySlugs resolves a set of project slugs to their row ids,
// silently dropping any slug with no matching active-or-not project —
// callers treat an empty result as "no match", not an error.
func (s *Store) ProjectIDsBySlugs(ctx context.Context, slugs []string) ([]uuid.UUID, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects WHERE slug = ANY($1)`, pq.Array(slugs))
	if err != nil {
		return nil, fmt.Errorf("resolving project ids by slug: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning project id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SelectedProjectForWorkspace implements the entity linker's per-workspace
// project-selection heuristic: of the sessions recently active in
// workspacePath, find the project most often attributed to their turns via
// turn_entities, breaking ties by that project's own last_activity.
func (s *Store) SelectedProjectForWorkspace(ctx context.Context, workspacePath string, since time.Time) (*Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.slug, p.description, p.tier, p.status, p.mention_count, p.last_activity,
			p.user_pinned, p.user_priority, p.user_deadline, p.first_mention_at, p.source_diversity, p.people_count
		FROM projects p
		JOIN (
			SELECT te.entity_id AS project_id, COUNT(*) AS hits
			FROM turn_entities te
			JOIN turns t ON t.id = te.turn_id
			JOIN sessions s ON s.id = t.session_id
			WHERE s.workspace_path = $1 AND s.last_activity_at >= $2
				AND te.entity_type = 'project' AND te.entity_id IS NOT NULL
			GROUP BY te.entity_id
		) ranked ON ranked.project_id = p.id
		ORDER BY ranked.hits DESC, p.last_activity DESC
		LIMIT 1
	`, workspacePath, since).Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Tier, &p.Status, &p.MentionCount,
		&p.LastActivity, &p.UserPinned, &p.UserPriority, &p.UserDeadline, &p.FirstMentionAt,
		&p.SourceDiversity, &p.PeopleCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting project for workspace: %w", err)
	}
	return &p, nil
}

// EffectiveSprintBoost returns the priority_boost of the project's
// currently-effective sprint, or 1.0 if none applies.
func (s *Store) EffectiveSprintBoost(ctx context.Context, projectID uuid.UUID, now time.Time) (float64, error) {
	var boost float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(priority_boost), 1.0) FROM sprints
		WHERE project_id = $1 AND is_active AND $2 BETWEEN starts_at AND ends_at
	`, projectID, now).Scan(&boost)
	if err != nil {
		return 1.0, fmt.Errorf("reading effective sprint boost: %w", err)
	}
	return boost, nil
}
