package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListPeople returns every known person — prefetched once per classifier
// invocation/refresh cycle, mirroring ListActiveProjects.
func (s *Store) ListPeople(ctx context.Context) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, relationship, organization, phone, first_contact_at, last_contact_at, notes
		FROM people
	`)
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Relationship, &p.Organization, &p.Phone,
			&p.FirstContactAt, &p.LastContactAt, &p.Notes); err != nil {
			return nil, fmt.Errorf("scanning person row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PersonIDsByNames resolves a set of person names to their row ids,
// case-insensitively, silently dropping unmatched names.
func (s *Store) PersonIDsByNames(ctx context.Context, names []string) ([]uuid.UUID, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM people WHERE lower(name) = ANY($1)`, pq.Array(lowerAll(names)))
	if err != nil {
		return nil, fmt.Errorf("resolving person ids by name: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning person id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}
