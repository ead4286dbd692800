package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// OpenCommitmentsForEntities returns open commitments touching the given
// project or person ids, used by the retriever's commitment branch.
func (s *Store) OpenCommitmentsForEntities(ctx context.Context, projectIDs, personIDs []string, limit int) ([]Commitment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, project_id, direction, description, deadline, status, source_type, source_id
		FROM commitments
		WHERE status = 'open'
			AND (
				(project_id::text = ANY($1) AND $1 != '{}')
				OR (person_id::text = ANY($2) AND $2 != '{}')
			)
		ORDER BY deadline NULLS LAST
		LIMIT $3
	`, pq.Array(projectIDs), pq.Array(personIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("listing open commitments: %w", err)
	}
	defer rows.Close()

	var out []Commitment
	for rows.Next() {
		var c Commitment
		if err := rows.Scan(&c.ID, &c.PersonID, &c.ProjectID, &c.Direction, &c.Description, &c.Deadline,
			&c.Status, &c.SourceType, &c.SourceID); err != nil {
			return nil, fmt.Errorf("scanning commitment row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
