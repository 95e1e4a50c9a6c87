package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	poolerrors "github.com/jzx17/threadpool/internal/errors"
	"github.com/jzx17/threadpool/pkg/types"
	"go.opentelemetry.io/otel/trace"
)

// configHandlerName names Config.ErrorHandler in the failure registry
const configHandlerName = "Config"

const (
	poolRunning int32 = iota
	poolStopping
	poolStopped
)

// poolState is the state shared by the pool and all of its workers. mu guards
// queue and stopping together; the remaining fields are fixed at construction
// or updated atomically.
type poolState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    taskQueue
	stopping bool

	clock       types.Clock
	logger      *slog.Logger
	observer    types.Observer
	tracer      trace.Tracer
	panicPolicy PanicPolicy
	failures    *poolerrors.HandlerRegistry

	submitted int64
	completed int64
	failed    int64
	panicked  int64
	rejected  int64
	discarded int64
}

func newPoolState(cfg *Config, logger *slog.Logger) (*poolState, error) {
	strategy := poolerrors.ContinueOnErrorStrategy
	if cfg.PanicPolicy == PanicCrash {
		strategy = poolerrors.FailFastStrategy
	}
	failures := poolerrors.NewHandlerRegistry(strategy, logger)
	if cfg.ErrorHandler != nil {
		handler := poolerrors.NewFuncHandler(configHandlerName, cfg.ErrorHandler)
		if err := failures.RegisterHandler(handler); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
		}
		if err := failures.SetDefaultHandler(handler); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
		}
	}
	for _, route := range cfg.ErrorRoutes {
		if err := failures.RegisterHandler(poolerrors.NewFuncHandler(route.Name, route.Handler)); err != nil {
			return nil, fmt.Errorf("%w: error route: %w", types.ErrInvalidConfig, err)
		}
		if err := failures.BindErrorTypeToHandler(route.ErrorType, route.Name); err != nil {
			return nil, fmt.Errorf("%w: error route: %w", types.ErrInvalidConfig, err)
		}
	}

	s := &poolState{
		clock:       cfg.Clock,
		logger:      logger,
		observer:    cfg.Observer,
		tracer:      cfg.Tracer,
		panicPolicy: cfg.PanicPolicy,
		failures:    failures,
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// push queues t and wakes one waiting worker
func (s *poolState) push(t *Task) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return 0, types.ErrPoolClosed
	}
	s.queue.push(t)
	atomic.AddInt64(&s.submitted, 1)
	s.cond.Signal()
	return s.queue.len(), nil
}

// next blocks until a task is available or the pool is stopping with an
// empty queue; ok is false in the latter case.
func (s *poolState) next() (t *Task, queueLen int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.stopping && s.queue.len() == 0 {
		s.cond.Wait()
	}
	if s.stopping && s.queue.len() == 0 {
		return nil, 0, false
	}
	t = s.queue.pop()
	return t, s.queue.len(), true
}

// stop sets the stop flag and wakes every worker. With discard the queued
// tasks are removed and returned so they never run.
func (s *poolState) stop(discard bool) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopping = true
	var leftovers []*Task
	if discard {
		leftovers = s.queue.drain()
	}
	s.cond.Broadcast()
	return leftovers
}

func (s *poolState) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

// handleFailure runs the failure handlers and returns what they left unhandled
func (s *poolState) handleFailure(taskID string, workerID int, err error) error {
	fc := poolerrors.NewFailureContext(err, taskID, workerID)
	fc.Timestamp = s.clock.Now()
	return s.failures.Handle(context.Background(), fc)
}

// ThreadPool is a fixed-size pool of workers consuming an unbounded FIFO queue
type ThreadPool struct {
	config     *Config
	state      *poolState
	workers    []*Worker
	status     int32
	terminated chan struct{}
	logger     *slog.Logger
}

var _ types.ThreadPool = (*ThreadPool)(nil)

// New creates a pool with numThreads workers and default settings
func New(numThreads int) (*ThreadPool, error) {
	config := DefaultConfig()
	config.NumThreads = numThreads
	return NewThreadPool(config)
}

// NewThreadPool validates config and spawns every worker. If a worker cannot
// be spawned, the ones already running are stopped and joined before the
// error is returned.
func NewThreadPool(config *Config) (*ThreadPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := config.withDefaults()
	logger := cfg.Logger.With(slog.String("component", "threadpool"))

	state, err := newPoolState(cfg, logger)
	if err != nil {
		return nil, err
	}

	p := &ThreadPool{
		config:     cfg,
		state:      state,
		workers:    make([]*Worker, 0, cfg.NumThreads),
		terminated: make(chan struct{}),
		logger:     logger,
	}

	for i := 0; i < cfg.NumThreads; i++ {
		w := newWorker(i, p.state)
		if err := cfg.spawn(w); err != nil {
			p.abort()
			return nil, fmt.Errorf("%w: worker %d: %w", types.ErrSpawnFailed, i, err)
		}
		p.workers = append(p.workers, w)
	}

	logger.Info("thread pool started",
		slog.Int("threads", cfg.NumThreads),
		slog.String("shutdown_policy", cfg.ShutdownPolicy.String()),
		slog.String("panic_policy", cfg.PanicPolicy.String()),
	)
	return p, nil
}

// abort tears down a partially constructed pool
func (p *ThreadPool) abort() {
	p.state.stop(false)
	p.join()
	atomic.StoreInt32(&p.status, poolStopped)
	close(p.terminated)
}

// Enqueue submits a fire-and-forget task. A panic inside fn is handled
// according to Config.PanicPolicy.
func (p *ThreadPool) Enqueue(fn func()) error {
	if fn == nil {
		return p.reject(types.ErrNilTask)
	}
	task := newTask(func() error {
		fn()
		return nil
	}, nil, p.state.clock.Now())
	return p.push(task)
}

// Submit submits a task producing a value and returns its future. The future
// carries the returned value and error, or a *types.TaskPanicError.
func Submit[R any](p *ThreadPool, fn func() (R, error)) (*Future[R], error) {
	if fn == nil {
		return nil, p.reject(types.ErrNilTask)
	}

	future := newFuture[R]()
	task := newTask(func() error {
		value, err := fn()
		future.complete(value, err)
		return err
	}, func(err error) {
		var zero R
		future.complete(zero, err)
	}, p.state.clock.Now())
	future.taskID = task.id

	if err := p.push(task); err != nil {
		return nil, err
	}
	return future, nil
}

// SubmitValue submits an infallible task producing a value
func SubmitValue[R any](p *ThreadPool, fn func() R) (*Future[R], error) {
	if fn == nil {
		return nil, p.reject(types.ErrNilTask)
	}
	return Submit(p, func() (R, error) {
		return fn(), nil
	})
}

func (p *ThreadPool) push(task *Task) error {
	queueLen, err := p.state.push(task)
	if err != nil {
		return p.reject(err)
	}
	p.state.observer.TaskSubmitted(queueLen)
	return nil
}

func (p *ThreadPool) reject(err error) error {
	atomic.AddInt64(&p.state.rejected, 1)
	p.state.observer.TaskRejected(err)
	return err
}

// Stop sets the stop flag, wakes every worker and joins them all. Under
// ShutdownDrain every queued task runs first; under ShutdownImmediate queued
// tasks are discarded and their futures fail with types.ErrTaskDiscarded.
// A second call returns types.ErrPoolStopped.
//
// Stop must not be called from inside a task: the calling worker can never
// exit while it waits for itself, so Stop would block forever. From a task,
// use Shutdown with a deadline, or call Stop from a separate goroutine.
func (p *ThreadPool) Stop() error {
	if err := p.beginStop(); err != nil {
		return err
	}
	<-p.terminated
	return nil
}

// Shutdown is Stop bounded by ctx. When ctx expires first the workers keep
// finishing in the background and Done reports when they are gone. Called
// from inside a task, Shutdown returns types.ErrTimeout once ctx expires and
// the pool terminates after that task returns; a ctx without deadline blocks
// forever, like Stop.
func (p *ThreadPool) Shutdown(ctx context.Context) error {
	if err := p.beginStop(); err != nil {
		return err
	}
	select {
	case <-p.terminated:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for workers: %w", types.ErrTimeout, ctx.Err())
	}
}

// Close stops the pool if needed and waits until every worker exited.
// It is safe to call more than once, but like Stop never from inside a task.
func (p *ThreadPool) Close() error {
	if err := p.Stop(); err != nil && !errors.Is(err, types.ErrPoolStopped) {
		return err
	}
	<-p.terminated
	return nil
}

func (p *ThreadPool) beginStop() error {
	if !atomic.CompareAndSwapInt32(&p.status, poolRunning, poolStopping) {
		return types.ErrPoolStopped
	}

	p.logger.Debug("thread pool stopping", slog.String("shutdown_policy", p.config.ShutdownPolicy.String()))
	leftovers := p.state.stop(p.config.ShutdownPolicy == ShutdownImmediate)
	p.discard(leftovers)

	go p.awaitTermination()
	return nil
}

// discard fails the futures of tasks removed by an immediate shutdown
func (p *ThreadPool) discard(tasks []*Task) {
	if len(tasks) == 0 {
		return
	}
	for _, t := range tasks {
		if !t.detached() {
			t.fail(types.ErrTaskDiscarded)
		}
	}
	atomic.AddInt64(&p.state.discarded, int64(len(tasks)))
	p.state.observer.TasksDiscarded(len(tasks))
	p.logger.Warn("discarded queued tasks on shutdown", slog.Int("count", len(tasks)))
}

func (p *ThreadPool) awaitTermination() {
	p.join()
	atomic.StoreInt32(&p.status, poolStopped)

	stats := p.Stats()
	p.logger.Info("thread pool stopped",
		slog.Int64("completed", stats.Completed),
		slog.Int64("failed", stats.Failed),
		slog.Int64("panicked", stats.Panicked),
		slog.Int64("discarded", stats.Discarded),
	)
	close(p.terminated)
}

// join blocks until every spawned worker exited
func (p *ThreadPool) join() {
	for _, w := range p.workers {
		<-w.done
	}
}

// Done returns a channel closed once every worker has exited
func (p *ThreadPool) Done() <-chan struct{} {
	return p.terminated
}

// Size returns the number of workers
func (p *ThreadPool) Size() int {
	return p.config.NumThreads
}

// IsRunning checks if the pool still accepts tasks
func (p *ThreadPool) IsRunning() bool {
	return atomic.LoadInt32(&p.status) == poolRunning
}

// IsClosed checks if the pool stopped and every worker exited
func (p *ThreadPool) IsClosed() bool {
	return atomic.LoadInt32(&p.status) == poolStopped
}

// QueueLength gets the number of tasks waiting for a worker
func (p *ThreadPool) QueueLength() int {
	return p.state.queueLen()
}

// Stats gets pool statistics
func (p *ThreadPool) Stats() types.PoolStats {
	var busy int
	for _, w := range p.workers {
		if w.State() == WorkerStateExecuting {
			busy++
		}
	}

	s := p.state
	return types.PoolStats{
		PoolSize:    p.config.NumThreads,
		BusyWorkers: busy,
		QueueLength: s.queueLen(),
		Submitted:   atomic.LoadInt64(&s.submitted),
		Completed:   atomic.LoadInt64(&s.completed),
		Failed:      atomic.LoadInt64(&s.failed),
		Panicked:    atomic.LoadInt64(&s.panicked),
		Rejected:    atomic.LoadInt64(&s.rejected),
		Discarded:   atomic.LoadInt64(&s.discarded),
	}
}

// WorkerStats gets statistics of all workers
func (p *ThreadPool) WorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}
