// Package entitylink matches free-text mentions to project/person rows and
// maintains the per-workspace "selected project" used by the Retriever's
// Focus branch when no explicit Signal match exists.
package entitylink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/focusd/focusd/internal/store"
)

// matcher is the subset of Classifier's compiled-pattern matching the
// linker reuses, shared via an interface rather than a copy so both the
// hot-path classifier and the cold-path entity_extract handler run the
// exact same matching core over the exact same entity snapshot.
type matcher interface {
	Refresh(ctx context.Context) error
	MatchProjects(text string) []Match
	MatchPeople(text string) []Match
}

// Match pairs a matched entity's row id/name with a confidence score.
type Match struct {
	EntityID   *uuid.UUID
	EntityName string
	Confidence float64
}

// Linker links turn text to project/person rows and tracks selected
// project state per workspace.
type Linker struct {
	store   *store.Store
	matcher matcher
}

// New builds a Linker over st, reusing m for lexical matching.
func New(st *store.Store, m matcher) *Linker {
	return &Linker{store: st, matcher: m}
}

// Link scans text for project and person mentions and inserts TurnEntity
// rows for each, bumping the matched project's mention_count. Safe to call
// more than once for the same turn — callers are responsible for turn-level
// idempotency via content_hash, per the recorder's contract.
func (l *Linker) Link(ctx context.Context, tx *sql.Tx, turnID uuid.UUID, text string) ([]store.TurnEntity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var entities []store.TurnEntity

	for _, m := range l.matcher.MatchProjects(text) {
		e := store.TurnEntity{
			TurnID:     turnID,
			EntityType: store.EntityProject,
			EntityID:   m.EntityID,
			EntityName: m.EntityName,
			Confidence: m.Confidence,
		}
		if err := l.store.InsertTurnEntity(ctx, tx, &e); err != nil {
			return nil, fmt.Errorf("inserting project entity %q: %w", m.EntityName, err)
		}
		if m.EntityID != nil {
			if err := l.store.BumpProjectMention(ctx, tx, *m.EntityID, time.Now()); err != nil {
				return nil, fmt.Errorf("bumping project mention %q: %w", m.EntityName, err)
			}
		}
		entities = append(entities, e)
	}

	for _, m := range l.matcher.MatchPeople(text) {
		e := store.TurnEntity{
			TurnID:     turnID,
			EntityType: store.EntityPerson,
			EntityID:   m.EntityID,
			EntityName: m.EntityName,
			Confidence: m.Confidence,
		}
		if err := l.store.InsertTurnEntity(ctx, tx, &e); err != nil {
			return nil, fmt.Errorf("inserting person entity %q: %w", m.EntityName, err)
		}
		entities = append(entities, e)
	}

	return entities, nil
}

// selectedProjectLookback bounds how far back a workspace's sessions are
// considered when picking its selected project — stale activity shouldn't
// pin a project forever.
const selectedProjectLookback = 90 * 24 * time.Hour

// SelectedProject returns the project most recently associated with the
// highest-mention sessions for workspacePath, or store.ErrNotFound if the
// workspace has no attributed project yet.
func (l *Linker) SelectedProject(ctx context.Context, workspacePath string) (*store.Project, error) {
	since := time.Now().Add(-selectedProjectLookback)
	return l.store.SelectedProjectForWorkspace(ctx, workspacePath, since)
}

