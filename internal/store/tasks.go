package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// OpenTasksForEntities returns open tasks (backlog/in_progress/waiting)
// whose project matches one of the given project ids, used by the
// retriever's task branch.
func (s *Store) OpenTasksForEntities(ctx context.Context, projectIDs []string, limit int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, title, status, priority, due_date, user_pinned, source_type, source_id
		FROM tasks
		WHERE status IN ('backlog', 'in_progress', 'waiting')
			AND (project_id::text = ANY($1) OR $1 = '{}')
		ORDER BY due_date NULLS LAST
		LIMIT $2
	`, pq.Array(projectIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("listing open tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &t.DueDate,
			&t.UserPinned, &t.SourceType, &t.SourceID); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
