package store

import (
	"context"
	"fmt"
)

// CurrentSchemaVersion is the latest schema version. Bump when adding a
// migration function below.
const CurrentSchemaVersion = 1

// migrate applies every migration above the schema_migrations ledger's
// recorded version. PostgreSQL has no equivalent of SQLite's user_version
// pragma, so a one-row-per-version ledger table plays the same role.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	version, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	if version < 1 {
		if err := s.migrateV1(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, version int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
	if err != nil {
		return fmt.Errorf("recording schema version %d: %w", version, err)
	}
	return nil
}

// migrateV1 creates the full schema: sessions, turns, turn content,
// entities, artifacts, projects, people, tasks, commitments, sprints,
// skills, and the durable job queue.
func (s *Store) migrateV1(ctx context.Context) error {
	schema := `
	CREATE EXTENSION IF NOT EXISTS pgcrypto;

	CREATE TABLE IF NOT EXISTS sessions (
		id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id       TEXT NOT NULL UNIQUE,
		transcript_path  TEXT NOT NULL,
		workspace_path   TEXT NOT NULL,
		started_at       TIMESTAMPTZ NOT NULL,
		last_activity_at TIMESTAMPTZ NOT NULL,
		turn_count       INTEGER NOT NULL DEFAULT 0,
		project_id       UUID,
		is_processed     BOOLEAN NOT NULL DEFAULT false,
		title            TEXT,
		summary          TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_workspace ON sessions(workspace_path, last_activity_at DESC);

	CREATE TABLE IF NOT EXISTS turns (
		id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id        UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		turn_number       INTEGER NOT NULL,
		user_message      TEXT NOT NULL,
		assistant_summary TEXT,
		title             TEXT,
		content_hash      TEXT NOT NULL,
		model_name        TEXT,
		tool_names        TEXT[] NOT NULL DEFAULT '{}',
		started_at        TIMESTAMPTZ NOT NULL,
		ended_at          TIMESTAMPTZ NOT NULL,
		UNIQUE (session_id, turn_number)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn_number);
	CREATE INDEX IF NOT EXISTS idx_turns_started ON turns(started_at DESC);

	CREATE TABLE IF NOT EXISTS turn_contents (
		turn_id            UUID PRIMARY KEY REFERENCES turns(id) ON DELETE CASCADE,
		raw_jsonl          TEXT NOT NULL,
		assistant_text     TEXT NOT NULL DEFAULT '',
		files_touched      TEXT[] NOT NULL DEFAULT '{}',
		commands_run       TEXT[] NOT NULL DEFAULT '{}',
		errors_encountered TEXT[] NOT NULL DEFAULT '{}',
		tool_call_count    INTEGER NOT NULL DEFAULT 0,
		content_size       INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS turn_entities (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		turn_id     UUID NOT NULL REFERENCES turns(id) ON DELETE CASCADE,
		entity_type TEXT NOT NULL CHECK (entity_type IN ('project', 'person')),
		entity_id   UUID,
		entity_name TEXT NOT NULL,
		confidence  DOUBLE PRECISION NOT NULL CHECK (confidence >= 0 AND confidence <= 1)
	);
	CREATE INDEX IF NOT EXISTS idx_turn_entities_turn ON turn_entities(turn_id);
	CREATE INDEX IF NOT EXISTS idx_turn_entities_entity ON turn_entities(entity_type, entity_id);

	CREATE TABLE IF NOT EXISTS turn_artifacts (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		turn_id        UUID NOT NULL REFERENCES turns(id) ON DELETE CASCADE,
		artifact_type  TEXT NOT NULL CHECK (artifact_type IN ('file', 'command', 'error')),
		artifact_value TEXT NOT NULL,
		metadata       JSONB NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_turn_artifacts_turn ON turn_artifacts(turn_id);
	CREATE INDEX IF NOT EXISTS idx_turn_artifacts_type ON turn_artifacts(artifact_type, turn_id);

	CREATE TABLE IF NOT EXISTS projects (
		id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name                TEXT NOT NULL,
		slug                TEXT NOT NULL UNIQUE,
		description         TEXT NOT NULL DEFAULT '',
		tier                TEXT NOT NULL DEFAULT 'simple' CHECK (tier IN ('fleeting','simple','complex','life_thread')),
		status              TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','paused','completed','abandoned')),
		mention_count       INTEGER NOT NULL DEFAULT 0,
		last_activity       TIMESTAMPTZ NOT NULL DEFAULT now(),
		user_pinned         BOOLEAN NOT NULL DEFAULT false,
		user_priority       TEXT,
		user_deadline       TIMESTAMPTZ,
		first_mention_at    TIMESTAMPTZ,
		source_diversity    INTEGER NOT NULL DEFAULT 0,
		people_count        INTEGER NOT NULL DEFAULT 0,
		auto_archive_after  INTERVAL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);

	CREATE TABLE IF NOT EXISTS people (
		id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name             TEXT NOT NULL,
		email            TEXT,
		relationship     TEXT NOT NULL DEFAULT '',
		organization     TEXT,
		phone            TEXT,
		first_contact_at TIMESTAMPTZ,
		last_contact_at  TIMESTAMPTZ,
		notes            TEXT
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_people_name ON people(lower(name));

	CREATE TABLE IF NOT EXISTS tasks (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_id  UUID REFERENCES projects(id),
		title       TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'backlog' CHECK (status IN ('backlog','in_progress','waiting','done')),
		priority    TEXT NOT NULL DEFAULT 'normal',
		due_date    TIMESTAMPTZ,
		user_pinned BOOLEAN NOT NULL DEFAULT false,
		source_type TEXT,
		source_id   UUID
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_open ON tasks(project_id, status) WHERE status != 'done';

	CREATE TABLE IF NOT EXISTS commitments (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		person_id   UUID REFERENCES people(id),
		project_id  UUID REFERENCES projects(id),
		direction   TEXT NOT NULL CHECK (direction IN ('from_me','to_me')),
		description TEXT NOT NULL,
		deadline    TIMESTAMPTZ,
		status      TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','fulfilled','broken','cancelled')),
		source_type TEXT,
		source_id   UUID
	);
	CREATE INDEX IF NOT EXISTS idx_commitments_open ON commitments(status) WHERE status = 'open';

	CREATE TABLE IF NOT EXISTS sprints (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_id     UUID NOT NULL REFERENCES projects(id),
		priority_boost DOUBLE PRECISION NOT NULL DEFAULT 1.0 CHECK (priority_boost >= 1.0),
		starts_at      TIMESTAMPTZ NOT NULL,
		ends_at        TIMESTAMPTZ NOT NULL,
		is_active      BOOLEAN NOT NULL DEFAULT true
	);
	CREATE INDEX IF NOT EXISTS idx_sprints_project_active ON sprints(project_id) WHERE is_active;

	CREATE TABLE IF NOT EXISTS skills (
		id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name              TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		source            TEXT NOT NULL CHECK (source IN ('auto','manual','registry')),
		source_session_id UUID,
		installed_path    TEXT NOT NULL,
		scope             TEXT NOT NULL CHECK (scope IN ('personal','project')),
		quality_score     DOUBLE PRECISION,
		content_hash      TEXT NOT NULL,
		is_active         BOOLEAN NOT NULL DEFAULT true
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_skills_name_scope_active
		ON skills(name, scope) WHERE is_active;

	CREATE TABLE IF NOT EXISTS jobs (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		kind          TEXT NOT NULL,
		payload       JSONB NOT NULL DEFAULT '{}',
		status        TEXT NOT NULL DEFAULT 'queued' CHECK (status IN ('queued','processing','retry','done','failed')),
		priority      INTEGER NOT NULL DEFAULT 10,
		dedupe_key    TEXT,
		attempts      INTEGER NOT NULL DEFAULT 0,
		max_attempts  INTEGER NOT NULL DEFAULT 10,
		locked_until  TIMESTAMPTZ,
		locked_by     TEXT,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_dedupe_key ON jobs(dedupe_key) WHERE dedupe_key IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_jobs_claimable ON jobs(priority, created_at)
		WHERE status IN ('queued', 'retry');
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migration v1 failed: %w", err)
	}
	return s.setSchemaVersion(ctx, 1)
}
