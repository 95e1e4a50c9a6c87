/*
Package worker provides a fixed-size thread pool: a set of long-lived worker
goroutines consuming tasks from one shared, unbounded FIFO queue.

# Overview

The pool bounds concurrency to a fixed worker count while keeping submission
non-blocking. It supports:
- Fire-and-forget tasks (Enqueue)
- Value-returning tasks with futures (Submit, SubmitValue)
- Panic recovery that never kills a worker
- Explicit drain or discard semantics on shutdown
- Statistics, observer hooks and per-task tracing spans

# Core Components

## ThreadPool

Owns the shared state and the worker handles:
- Spawns exactly Config.NumThreads workers at construction
- Rejects submissions once shutdown began (types.ErrPoolClosed)
- Stop, Shutdown and Close set the stop flag, wake every worker and join them

## Worker

One goroutine running the consume loop:

	waiting -> (dequeue) -> executing -> waiting | terminated

A worker parks on the pool condition until the queue is non-empty or the pool
is stopping. It pops one task while holding the lock, releases the lock and
runs the task. It terminates once it sees the stop flag with an empty queue.

## Future

One-shot result handle. Get blocks the caller (never a worker) until the task
returned, panicked, or was discarded.

# Synchronization

A single mutex guards the queue and the stop flag together; a sync.Cond on the
same mutex is the wait primitive. Submitting one task signals one worker,
stopping broadcasts to all of them. Tasks run with no lock held, so a slow
task never serializes the rest of the pool.

# Shutdown Semantics

Config.ShutdownPolicy selects what happens to tasks still queued when Stop is
called:
- ShutdownDrain (default): every queued task runs before workers exit
- ShutdownImmediate: queued tasks are dropped; their futures fail with
  types.ErrTaskDiscarded

In-flight tasks always finish; nothing is interrupted.

Stop and Close wait for every worker, including the one running the caller,
so a task must not call them on its own pool. A task may call Shutdown with a
deadline: it returns types.ErrTimeout and the pool terminates once the task
returns.

# Error Handling

A panic in a Submit task is delivered to its future as *types.TaskPanicError.
A panic in an Enqueue task goes to Config.ErrorHandler, then to the strategy
chosen by Config.PanicPolicy: PanicRecover logs and continues, PanicCrash
re-raises it and terminates the process.

# Usage Examples

Basic usage:

	pool, err := worker.New(4)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	_ = pool.Enqueue(func() {
		// Execute work
	})

	f1, _ := worker.SubmitValue(pool, func() int { return 1 })
	f2, _ := worker.SubmitValue(pool, func() int { return 2 })

	v1, _ := f1.Get()
	v2, _ := f2.Get()
	fmt.Println(v1 + v2)

Loading configuration:

	config, err := worker.LoadConfig("threadpool.yaml")
	if err != nil {
		log.Fatal(err)
	}
	pool, err := worker.NewThreadPool(config)
*/
package worker
