package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore opens a Store against FOCUS_TEST_DATABASE_URL, skipping the
// test entirely when it isn't set — these tests exercise real migrations
// and SQL, so they need a live Postgres instance rather than a mock.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("FOCUS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FOCUS_TEST_DATABASE_URL not set, skipping store integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := Open(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen_MigratesAndPings(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.DB().PingContext(context.Background()))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.EnqueueJob(ctx, nil, JobTurnSummary, []byte(`{}`), 1, nil, 5, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	txErr := st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET priority = 99 WHERE id = $1`, id); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, txErr, boom)

	var priority int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT priority FROM jobs WHERE id = $1`, id).Scan(&priority))
	assert.Equal(t, 1, priority, "update should have been rolled back")
}

func TestClaimJob_ConcurrentClaimersNeverShareAJob(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	const n = 20
	for i := 0; i < n; i++ {
		_, err := st.EnqueueJob(ctx, nil, JobTurnSummary, []byte(`{}`), 1, nil, 5, nil)
		require.NoError(t, err)
	}

	claimed := make(chan uuid.UUID, n*2)
	var wg sync.WaitGroup
	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			for {
				job, err := st.ClaimJob(ctx, workerID, time.Minute)
				if errors.Is(err, ErrNotFound) {
					return
				}
				require.NoError(t, err)
				claimed <- job.ID
				require.NoError(t, st.CompleteJob(ctx, job.ID))
			}
		}(fmt.Sprintf("worker-%d", w))
	}
	wg.Wait()
	close(claimed)

	seen := make(map[uuid.UUID]int)
	for id := range claimed {
		seen[id]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "job %s was claimed more than once", id)
	}
	assert.Len(t, seen, n)
}

func TestReapExpiredJobs_RevertsExpiredLeaseToRetry(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.EnqueueJob(ctx, nil, JobTurnSummary, []byte(`{}`), 1, nil, 5, nil)
	require.NoError(t, err)

	job, err := st.ClaimJob(ctx, "worker-a", time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, id, job.ID)

	time.Sleep(10 * time.Millisecond)

	n, err := st.ReapExpiredJobs(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	reclaimed, err := st.ClaimJob(ctx, "worker-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, id, reclaimed.ID)
}

func TestEnqueueAndClaimJob_RoundTrips(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.EnqueueJob(ctx, nil, JobTurnSummary, []byte(`{"turn_id":"00000000-0000-0000-0000-000000000000"}`), 1, nil, 5, nil)
	require.NoError(t, err)
	require.NotEqual(t, id.String(), "")

	job, err := st.ClaimJob(ctx, "test-worker", time.Minute)
	require.NoError(t, err)
	require.Equal(t, id, job.ID)

	require.NoError(t, st.CompleteJob(ctx, job.ID))
}
