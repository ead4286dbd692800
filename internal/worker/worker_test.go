package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/focusd/focusd/internal/jobqueue"
	"github.com/focusd/focusd/internal/metrics"
	"github.com/focusd/focusd/internal/store"
)

func TestNextBackoff_DoublesUpToCeiling(t *testing.T) {
	b := 100 * time.Millisecond
	b = nextBackoff(b)
	assert.Equal(t, 200*time.Millisecond, b)
	for i := 0; i < 10; i++ {
		b = nextBackoff(b)
	}
	assert.Equal(t, maxPollBackoff, b)
}

func TestNew_DefaultsNonPositiveParallelismToOne(t *testing.T) {
	q := jobqueue.New(nil, "", zerolog.Nop())
	w := New(q, nil, zerolog.Nop(), 0, "worker-1")
	assert.Equal(t, 1, w.parallelism)
}

func TestRegister_BindsHandlerForKind(t *testing.T) {
	q := jobqueue.New(nil, "", zerolog.Nop())
	w := New(q, nil, zerolog.Nop(), 1, "worker-1")

	called := false
	w.Register(store.JobTurnSummary, func(ctx context.Context, job *store.Job) error {
		called = true
		return nil
	})

	h, ok := w.handlers[store.JobTurnSummary]
	assert.True(t, ok)
	require := assert.New(t)
	require.NoError(h(context.Background(), &store.Job{}))
	assert.True(t, called)
}

func TestSleepOrWake_ReturnsImmediatelyOnContextCancel(t *testing.T) {
	q := jobqueue.New(nil, "", zerolog.Nop())
	w := New(q, nil, zerolog.Nop(), 1, "worker-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.sleepOrWake(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleepOrWake did not return promptly on cancellation")
	}
}

func TestStop_BeforeStartIsANoOp(t *testing.T) {
	q := jobqueue.New(nil, "", zerolog.Nop())
	m := metrics.New()
	w := New(q, m, zerolog.Nop(), 1, "worker-1")
	assert.NotPanics(t, func() { w.Stop() })
}
