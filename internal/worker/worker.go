// Package worker runs the cold path: N parallel claimers pulling from the
// durable job queue and dispatching to kind-keyed handlers.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/jobqueue"
	"github.com/focusd/focusd/internal/metrics"
	focuserrors "github.com/focusd/focusd/internal/errors"
	"github.com/focusd/focusd/internal/store"
)

// Handler processes one claimed job's payload.
type Handler func(ctx context.Context, job *store.Job) error

// leaseDuration is the claim lease every claimer extends, per §4.I.
const leaseDuration = 60 * time.Second

// maxPollBackoff caps how long a claimer sleeps between empty claims.
const maxPollBackoff = 5 * time.Second

// reapInterval is how often the Worker's single reaper goroutine calls
// ReapExpired on behalf of all claimers; the reap query is itself a no-op
// once nothing has an expired lease.
const reapInterval = 30 * time.Second

// Worker owns N parallel claimers over a jobqueue.Queue.
type Worker struct {
	queue       *jobqueue.Queue
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	parallelism int
	workerID    string

	handlers map[store.JobKind]Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
	running atomic.Bool
}

// New builds a Worker. workerID identifies this process's claims in the
// job table's locked_by column, for operational visibility.
func New(q *jobqueue.Queue, m *metrics.Metrics, logger zerolog.Logger, parallelism int, workerID string) *Worker {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Worker{
		queue:       q,
		logger:      logger.With().Str("component", "worker").Logger(),
		metrics:     m,
		parallelism: parallelism,
		workerID:    workerID,
		handlers:    map[store.JobKind]Handler{},
	}
}

// Register binds a handler to a job kind. Must be called before Start.
func (w *Worker) Register(kind store.JobKind, h Handler) {
	w.handlers[kind] = h
}

// Start launches w.parallelism claimer goroutines plus one reaper
// goroutine. Safe to call once; a second call is a no-op.
func (w *Worker) Start(ctx context.Context) {
	if w.running.Swap(true) {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.reapLoop(ctx)

	for i := 0; i < w.parallelism; i++ {
		w.wg.Add(1)
		go w.claimLoop(ctx, i)
	}
	w.logger.Info().Int("parallelism", w.parallelism).Msg("worker started")
}

// Stop signals every claimer to finish its in-flight job (bounded by the
// lease) and then exit, blocking until they do.
func (w *Worker) Stop() {
	if !w.running.Swap(false) {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info().Msg("worker stopped")
}

func (w *Worker) reapLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.queue.ReapExpired(ctx)
			if err != nil {
				w.logger.Warn().Err(err).Msg("reap expired jobs failed")
			} else if n > 0 {
				w.logger.Info().Int("count", n).Msg("reaped expired job leases")
			}
		}
	}
}

func (w *Worker) claimLoop(ctx context.Context, idx int) {
	defer w.wg.Done()
	backoff := 100 * time.Millisecond

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queue.Claim(ctx, w.workerID, leaseDuration)
		if err == store.ErrNotFound {
			w.sleepOrWake(ctx, backoff)
			backoff = nextBackoff(backoff)
			continue
		}
		if err != nil {
			w.logger.Warn().Err(err).Int("claimer", idx).Msg("claim failed")
			w.sleepOrWake(ctx, backoff)
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = 100 * time.Millisecond
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *store.Job) {
	if w.metrics != nil {
		w.metrics.JobsClaimedTotal.WithLabelValues(string(job.Kind)).Inc()
	}
	// Stop cancels ctx; the claimed job still runs to completion (bounded
	// by the lease) and its outcome is recorded.
	ctx = context.WithoutCancel(ctx)
	log := w.logger.With().Str("job_id", job.ID.String()).Str("kind", string(job.Kind)).Logger()

	handler, ok := w.handlers[job.Kind]
	if !ok {
		log.Error().Msg("no handler registered for job kind")
		_ = w.queue.Fail(ctx, job, focuserrors.NewInvalidRequest("no handler registered for job kind"))
		if w.metrics != nil {
			w.metrics.JobsFailedTotal.WithLabelValues(string(job.Kind)).Inc()
		}
		return
	}

	start := time.Now()
	handlerCtx, cancel := context.WithTimeout(ctx, leaseDuration)
	err := handler(handlerCtx, job)
	cancel()

	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("job handler failed")
		if failErr := w.queue.Fail(ctx, job, err); failErr != nil {
			log.Error().Err(failErr).Msg("failed to record job failure")
		}
		if w.metrics != nil {
			w.metrics.JobsFailedTotal.WithLabelValues(string(job.Kind)).Inc()
		}
		return
	}

	if err := w.queue.Complete(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("failed to mark job complete")
		return
	}
	if w.metrics != nil {
		w.metrics.JobsCompletedTotal.WithLabelValues(string(job.Kind)).Inc()
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("job completed")
}

// sleepOrWake waits out backoff, or wakes early on a queue notification,
// or returns immediately on cancellation.
func (w *Worker) sleepOrWake(ctx context.Context, backoff time.Duration) {
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-w.queue.Notify():
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxPollBackoff {
		return maxPollBackoff
	}
	return next
}
