// Package jobqueue implements the durable, lease-locked priority queue
// that drives every cold-path job (turn summarization, entity extraction,
// artifact extraction, session summarization, skill generation).
package jobqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	focuserrors "github.com/focusd/focusd/internal/errors"
	"github.com/focusd/focusd/internal/retry"
	"github.com/focusd/focusd/internal/store"
)

// Queue wraps the store's job table with dedupe-key defaults, backoff
// computation, and an optional LISTEN/NOTIFY wake-up channel.
type Queue struct {
	store    *store.Store
	dsn      string
	logger   zerolog.Logger
	listener *pq.Listener
	notifyCh chan struct{}
}

const notifyChannel = "focus_jobs"

// New builds a Queue over an already-open Store. dsn is used only to open
// the separate LISTEN connection pq.Listener requires; pass "" to disable
// notify-driven wake-up and fall back to pure polling.
func New(st *store.Store, dsn string, logger zerolog.Logger) *Queue {
	q := &Queue{store: st, dsn: dsn, logger: logger, notifyCh: make(chan struct{}, 1)}
	if dsn != "" {
		q.startListener()
	}
	return q
}

func (q *Queue) startListener() {
	listener := pq.NewListener(q.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			q.logger.Warn().Err(err).Msg("jobqueue listener event error")
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		q.logger.Warn().Err(err).Msg("jobqueue: LISTEN failed, falling back to polling")
		listener.Close()
		return
	}
	q.listener = listener
	go func() {
		for range listener.Notify {
			select {
			case q.notifyCh <- struct{}{}:
			default:
			}
		}
	}()
}

// Close releases the LISTEN connection, if one was established.
func (q *Queue) Close() {
	if q.listener != nil {
		q.listener.Close()
	}
}

// Notify returns a channel that receives a value shortly after any
// successful Enqueue, letting the worker's backoff sleep wake up early
// instead of always waiting out the full interval. Without a listener the
// channel fires only for non-transactional Enqueue calls made through this
// Queue; anything else is picked up by the worker's bounded polling backoff.
func (q *Queue) Notify() <-chan struct{} { return q.notifyCh }

// Enqueue inserts a job with the given kind/payload/priority. dedupeKey, if
// non-empty, collapses concurrent or repeated enqueues of the same unit of
// work into the pre-existing row. maxAttempts of 0 uses the queue default
// of 10, per the durable queue's stated contract.
func (q *Queue) Enqueue(ctx context.Context, tx *sql.Tx, kind store.JobKind, payload any, priority int, dedupeKey string, maxAttempts int) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling job payload: %w", err)
	}
	if maxAttempts == 0 {
		maxAttempts = 10
	}
	var key *string
	if dedupeKey != "" {
		key = &dedupeKey
	}
	id, err := q.store.EnqueueJob(ctx, tx, kind, body, priority, key, maxAttempts, nil)
	if err != nil {
		return uuid.Nil, err
	}
	// Only notify after a successful, non-transactional enqueue: inside a
	// caller's transaction the row isn't visible to other connections
	// until commit, so notifying here would wake a claimer onto a row it
	// can't yet see. Transactional enqueues therefore wake no claimer;
	// their rows are found on the claimers' next poll.
	if tx == nil {
		q.wake()
	}
	return id, nil
}

// EnqueueDelayed inserts a job that isn't claimable until delay has
// elapsed, used by the worker's backpressure rule for low-priority kinds
// once the queue grows past its soft cap.
func (q *Queue) EnqueueDelayed(ctx context.Context, kind store.JobKind, payload any, priority int, dedupeKey string, delay time.Duration) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling job payload: %w", err)
	}
	var key *string
	if dedupeKey != "" {
		key = &dedupeKey
	}
	notBefore := time.Now().Add(delay)
	return q.store.EnqueueJob(ctx, nil, kind, body, priority, key, 10, &notBefore)
}

func (q *Queue) wake() {
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
}

// Claim atomically claims the next eligible job for workerID, extending its
// lease by leaseDuration. Returns store.ErrNotFound if nothing is
// claimable right now.
func (q *Queue) Claim(ctx context.Context, workerID string, leaseDuration time.Duration) (*store.Job, error) {
	return q.store.ClaimJob(ctx, workerID, leaseDuration)
}

// Complete marks a job done.
func (q *Queue) Complete(ctx context.Context, id uuid.UUID) error {
	return q.store.CompleteJob(ctx, id)
}

// Fail records a handler failure, computing the backoff lease from the
// job's current attempt count via the queue's documented ceiling
// (min(2^attempts * 30s, 1h)). A non-retryable cause (per
// focuserrors.IsRetryable) skips the attempts/backoff path entirely and
// fails the job immediately, rather than burning through max_attempts on
// an error that will never succeed on retry.
func (q *Queue) Fail(ctx context.Context, job *store.Job, cause error) error {
	backoff := retry.JobBackoff(job.Attempts)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	forceFailed := cause != nil && !focuserrors.IsRetryable(cause)
	return q.store.FailJob(ctx, job.ID, backoff, msg, forceFailed)
}

// ReapExpired reverts jobs whose lease expired back to retry so another
// claimer can pick them up.
func (q *Queue) ReapExpired(ctx context.Context) (int, error) {
	return q.store.ReapExpiredJobs(ctx)
}

// Depth returns the current queued+retry count, used for backpressure
// decisions.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	return q.store.CountQueued(ctx)
}
