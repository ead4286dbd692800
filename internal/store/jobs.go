package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueueJob inserts a job, or no-ops if dedupeKey collides with a row that
// hasn't reached a terminal status. Returns the id of the row that ends up
// representing this unit of work (new or pre-existing).
func (s *Store) EnqueueJob(ctx context.Context, tx *sql.Tx, kind JobKind, payload []byte, priority int, dedupeKey *string, maxAttempts int, notBefore *time.Time) (uuid.UUID, error) {
	q := s.q(tx)
	var id uuid.UUID
	err := q.QueryRowContext(ctx, `
		INSERT INTO jobs (kind, payload, priority, dedupe_key, max_attempts, locked_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
		RETURNING id
	`, kind, payload, priority, dedupeKey, maxAttempts, notBefore).Scan(&id)
	if err == sql.ErrNoRows {
		// Conflict hit and nothing was inserted; the existing row already
		// represents this unit of work.
		if dedupeKey == nil {
			return uuid.Nil, fmt.Errorf("enqueue returned no row without a dedupe key")
		}
		err = s.db.QueryRowContext(ctx, `SELECT id FROM jobs WHERE dedupe_key = $1`, *dedupeKey).Scan(&id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("resolving existing job for dedupe key: %w", err)
		}
		return id, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueuing job: %w", err)
	}
	return id, nil
}

// ClaimJob atomically claims the oldest-by-(priority, created_at) job that
// is queued or retry-eligible and not currently leased, setting its status
// to processing and extending its lease. Returns ErrNotFound if nothing is
// claimable.
func (s *Store) ClaimJob(ctx context.Context, workerID string, lease time.Duration) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE jobs SET status = 'processing', locked_until = now() + $2::interval,
			locked_by = $3, attempts = attempts + 1, updated_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status IN ('queued', 'retry')
				AND (locked_until IS NULL OR locked_until < now())
			ORDER BY priority ASC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, kind, payload, status, priority, dedupe_key, attempts, max_attempts,
			locked_until, locked_by, error_message, created_at, updated_at
	`, workerID, fmt.Sprintf("%d seconds", int(lease.Seconds())), workerID)
	return scanJob(row)
}

// CompleteJob marks a job done. Done/failed rows never transition again.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'done', locked_until = NULL, locked_by = NULL, updated_at = now()
		WHERE id = $1 AND status NOT IN ('done', 'failed')
	`, id)
	if err != nil {
		return fmt.Errorf("completing job: %w", err)
	}
	return nil
}

// FailJob records a handler failure. If forceFailed is true, the job moves
// straight to failed regardless of remaining attempts — used for
// non-retryable errors (malformed payloads, invariant breaches) per §7's
// "programmer error is surfaced as failed, not retried" rule. Otherwise, if
// attempts remain, the job goes back to retry with an exponential-backoff
// lease; when attempts are exhausted it moves to failed either way and
// stays queryable for operator inspection.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, backoff time.Duration, errMsg string, forceFailed bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = CASE WHEN NOT $4 AND attempts < max_attempts THEN 'retry' ELSE 'failed' END,
			locked_until = CASE WHEN NOT $4 AND attempts < max_attempts THEN now() + $2::interval ELSE locked_until END,
			locked_by = NULL,
			error_message = $3,
			updated_at = now()
		WHERE id = $1 AND status NOT IN ('done', 'failed')
	`, id, fmt.Sprintf("%d seconds", int(backoff.Seconds())), errMsg, forceFailed)
	if err != nil {
		return fmt.Errorf("failing job: %w", err)
	}
	return nil
}

// ReapExpiredJobs reverts processing jobs whose lease expired back to
// retry, so another claimer can pick them up. Returns the count reverted.
func (s *Store) ReapExpiredJobs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'retry', locked_by = NULL, updated_at = now()
		WHERE status = 'processing' AND locked_until < now()
	`)
	if err != nil {
		return 0, fmt.Errorf("reaping expired jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading reap count: %w", err)
	}
	return int(n), nil
}

// CountQueued returns the number of jobs currently queued or retry-pending,
// used by the worker's backpressure check.
func (s *Store) CountQueued(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM jobs WHERE status IN ('queued', 'retry')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting queued jobs: %w", err)
	}
	return n, nil
}

func scanJob(row *sql.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Kind, &j.Payload, &j.Status, &j.Priority, &j.DedupeKey, &j.Attempts,
		&j.MaxAttempts, &j.LockedUntil, &j.LockedBy, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	return &j, nil
}
