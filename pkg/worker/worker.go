package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateWaiting the worker is parked on the pool condition
	WorkerStateWaiting WorkerState = iota
	// WorkerStateExecuting the worker runs a task with no lock held
	WorkerStateExecuting
	// WorkerStateTerminated the worker observed stop with an empty queue and exited
	WorkerStateTerminated
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateWaiting:
		return "waiting"
	case WorkerStateExecuting:
		return "executing"
	case WorkerStateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Worker represents a single long-lived worker goroutine
type Worker struct {
	id    int
	state int32 // atomic WorkerState
	pool  *poolState
	done  chan struct{}

	// statistics
	totalProcessed int64
	totalFailed    int64
	totalPanicked  int64
	lastTaskTime   int64 // Unix nanosecond timestamp
}

func newWorker(id int, pool *poolState) *Worker {
	return &Worker{
		id:    id,
		state: int32(WorkerStateWaiting),
		pool:  pool,
		done:  make(chan struct{}),
	}
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// run is the consume loop: wait for work or stop, dequeue under the lock,
// execute without it, repeat until stop is seen with an empty queue.
func (w *Worker) run() {
	defer close(w.done)
	defer atomic.StoreInt32(&w.state, int32(WorkerStateTerminated))

	for {
		task, queueLen, ok := w.pool.next()
		if !ok {
			w.pool.logger.Debug("worker terminated", slog.Int("worker_id", w.id))
			return
		}
		w.processTask(task, queueLen)
	}
}

// processTask processes a single task
func (w *Worker) processTask(task *Task, queueLen int) {
	atomic.StoreInt32(&w.state, int32(WorkerStateExecuting))
	defer atomic.StoreInt32(&w.state, int32(WorkerStateWaiting))

	p := w.pool
	startTime := p.clock.Now()
	atomic.StoreInt64(&w.lastTaskTime, startTime.UnixNano())
	p.observer.TaskStarted(w.id, startTime.Sub(task.submittedAt), queueLen)

	_, span := p.tracer.Start(context.Background(), "threadpool.task",
		trace.WithAttributes(
			attribute.String("threadpool.task_id", task.id),
			attribute.Int("threadpool.worker_id", w.id),
		),
	)

	panicked, err := w.executeTask(task)
	executionTime := p.clock.Since(startTime)
	outcome := w.record(err, panicked)

	span.SetAttributes(attribute.String("threadpool.outcome", outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	p.observer.TaskFinished(w.id, executionTime, outcome)

	if panicked {
		w.handlePanic(task, err)
	}
}

// executeTask executes a task with panic recovery support
func (w *Worker) executeTask(task *Task) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			err = types.NewTaskPanicError(task.id, r, string(buf[:n])).
				WithContext("worker_id", w.id)
			panicked = true
		}
	}()

	return false, task.fn()
}

// record updates worker and pool counters
func (w *Worker) record(err error, panicked bool) types.TaskOutcome {
	switch {
	case panicked:
		atomic.AddInt64(&w.totalPanicked, 1)
		atomic.AddInt64(&w.pool.panicked, 1)
		return types.OutcomePanicked
	case err != nil:
		atomic.AddInt64(&w.totalFailed, 1)
		atomic.AddInt64(&w.pool.failed, 1)
		return types.OutcomeFailed
	default:
		atomic.AddInt64(&w.totalProcessed, 1)
		atomic.AddInt64(&w.pool.completed, 1)
		return types.OutcomeSucceeded
	}
}

// handlePanic delivers a recovered panic to the task's future, or to the
// failure handlers when nobody is waiting for the task
func (w *Worker) handlePanic(task *Task, err error) {
	p := w.pool
	if !task.detached() {
		p.logger.Debug("task panic delivered to future",
			slog.String("task_id", task.id),
			slog.Int("worker_id", w.id),
		)
		task.fail(err)
		return
	}

	unhandled := p.handleFailure(task.id, w.id, err)
	if unhandled == nil {
		return
	}

	var panicErr *types.TaskPanicError
	errors.As(err, &panicErr)
	p.logger.Error("task panicked",
		slog.String("task_id", task.id),
		slog.Int("worker_id", w.id),
		slog.Any("panic", panicErr.Value),
		slog.String("stack", panicErr.Stack),
	)

	if p.panicPolicy == PanicCrash {
		panic(panicErr)
	}
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	var lastTaskTime time.Time
	if ns := atomic.LoadInt64(&w.lastTaskTime); ns != 0 {
		lastTaskTime = time.Unix(0, ns)
	}
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		TotalPanicked:  atomic.LoadInt64(&w.totalPanicked),
		LastTaskTime:   lastTaskTime,
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	TotalPanicked  int64
	LastTaskTime   time.Time
}

// IsActive checks if Worker is executing a task
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateExecuting
}

// IsIdle checks if Worker is waiting for work
func (ws WorkerStats) IsIdle() bool {
	return ws.State == WorkerStateWaiting
}

// Total returns the number of tasks the worker ran
func (ws WorkerStats) Total() int64 {
	return ws.TotalProcessed + ws.TotalFailed + ws.TotalPanicked
}

// GetSuccessRate gets the success rate
func (ws WorkerStats) GetSuccessRate() float64 {
	total := ws.Total()
	if total == 0 {
		return 0
	}
	return float64(ws.TotalProcessed) / float64(total)
}
