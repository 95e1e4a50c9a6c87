package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/jzx17/threadpool/internal/testutils"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestState(t *testing.T, config *Config) *poolState {
	t.Helper()
	cfg := config.withDefaults()
	state, err := newPoolState(cfg, cfg.Logger)
	require.NoError(t, err)
	return state
}

func TestWorkerState_String(t *testing.T) {
	tests := []struct {
		state    WorkerState
		expected string
	}{
		{WorkerStateWaiting, "waiting"},
		{WorkerStateExecuting, "executing"},
		{WorkerStateTerminated, "terminated"},
		{WorkerState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestWorker_Lifecycle(t *testing.T) {
	state := newTestState(t, newTestConfig(1))
	w := newWorker(7, state)

	assert.Equal(t, 7, w.id)
	assert.Equal(t, WorkerStateWaiting, w.State())

	go w.run()

	gate := make(chan struct{})
	started := make(chan struct{})
	_, err := state.push(newTask(func() error {
		close(started)
		<-gate
		return nil
	}, nil, time.Now()))
	require.NoError(t, err)

	testutils.RequireClosed(t, started, testutils.DefaultTimeout)
	assert.Equal(t, WorkerStateExecuting, w.State())
	assert.True(t, w.Stats().IsActive())

	close(gate)
	assert.Eventually(t, func() bool {
		return w.State() == WorkerStateWaiting
	}, time.Second, time.Millisecond)
	assert.True(t, w.Stats().IsIdle())

	state.stop(false)
	testutils.RequireClosed(t, w.done, testutils.DefaultTimeout)
	assert.Equal(t, WorkerStateTerminated, w.State())
}

func TestWorker_DrainsQueueBeforeTerminating(t *testing.T) {
	state := newTestState(t, newTestConfig(1))
	w := newWorker(0, state)

	var ran int
	for i := 0; i < 5; i++ {
		_, err := state.push(newTask(func() error {
			ran++
			return nil
		}, nil, time.Now()))
		require.NoError(t, err)
	}

	// stop before the worker ever ran; it still empties the queue
	state.stop(false)
	go w.run()
	testutils.RequireClosed(t, w.done, testutils.DefaultTimeout)

	assert.Equal(t, 5, ran)
	assert.Equal(t, int64(5), w.Stats().TotalProcessed)
}

func TestWorker_ProcessTaskOutcomes(t *testing.T) {
	handled := make(chan error, 1)
	config := newTestConfig(1)
	config.ErrorHandler = func(err error) error {
		handled <- err
		return nil
	}
	state := newTestState(t, config)
	w := newWorker(0, state)

	taskErr := errors.New("task error")
	w.processTask(newTask(func() error { return nil }, nil, time.Now()), 0)
	w.processTask(newTask(func() error { return taskErr }, nil, time.Now()), 0)
	w.processTask(newTask(func() error { panic("boom") }, nil, time.Now()), 0)

	select {
	case err := <-handled:
		assert.True(t, types.IsTaskPanic(err))
	default:
		t.Fatal("panic did not reach the error handler")
	}

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.TotalFailed)
	assert.Equal(t, int64(1), stats.TotalPanicked)
	assert.Equal(t, int64(3), stats.Total())
	assert.InDelta(t, 1.0/3.0, stats.GetSuccessRate(), 0.001)
	assert.False(t, stats.LastTaskTime.IsZero())

	assert.Equal(t, int64(1), state.completed)
	assert.Equal(t, int64(1), state.failed)
	assert.Equal(t, int64(1), state.panicked)
}

func TestWorker_PanicDeliveredToFail(t *testing.T) {
	state := newTestState(t, newTestConfig(1))
	w := newWorker(3, state)

	var delivered error
	task := newTask(func() error {
		panic("future panic")
	}, func(err error) { delivered = err }, time.Now())

	w.processTask(task, 0)

	var panicErr *types.TaskPanicError
	require.ErrorAs(t, delivered, &panicErr)
	assert.Equal(t, task.id, panicErr.TaskID)
	assert.Equal(t, "future panic", panicErr.Value)
	assert.Equal(t, 3, panicErr.Context["worker_id"])
	assert.Contains(t, panicErr.Stack, "goroutine")
}

func TestWorkerStats_GetSuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		stats    WorkerStats
		expected float64
	}{
		{"no tasks", WorkerStats{}, 0},
		{"all succeeded", WorkerStats{TotalProcessed: 4}, 1},
		{"half failed", WorkerStats{TotalProcessed: 2, TotalFailed: 1, TotalPanicked: 1}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.stats.GetSuccessRate(), 0.0001)
		})
	}
}

func TestWorker_TracingSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	config := newTestConfig(1)
	config.Tracer = provider.Tracer("threadpool-test")

	pool, err := NewThreadPool(config)
	require.NoError(t, err)

	ok, err := SubmitValue(pool, func() int { return 1 })
	require.NoError(t, err)
	bad, err := Submit(pool, func() (int, error) { panic("traced") })
	require.NoError(t, err)

	require.NoError(t, pool.Stop())
	_, _ = bad.Get()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	outcomes := make(map[string]sdktrace.ReadOnlySpan)
	for _, span := range spans {
		assert.Equal(t, "threadpool.task", span.Name())
		for _, kv := range span.Attributes() {
			if kv.Key == attribute.Key("threadpool.outcome") {
				outcomes[kv.Value.AsString()] = span
			}
		}
	}

	require.Contains(t, outcomes, "succeeded")
	require.Contains(t, outcomes, "panicked")
	assert.Equal(t, codes.Unset, outcomes["succeeded"].Status().Code)
	assert.Equal(t, codes.Error, outcomes["panicked"].Status().Code)
	assert.Contains(t, outcomes["succeeded"].Attributes(), attribute.String("threadpool.task_id", ok.TaskID()))
	assert.Contains(t, outcomes["panicked"].Attributes(), attribute.Int("threadpool.worker_id", 0))
}
