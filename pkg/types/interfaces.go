// Package types defines core interfaces and types shared by the thread pool and its observers
package types

import (
	"context"
	"time"
)

// TaskOutcome describes how a task execution ended
type TaskOutcome int

const (
	// OutcomeSucceeded the task returned normally
	OutcomeSucceeded TaskOutcome = iota
	// OutcomeFailed the task returned an error
	OutcomeFailed
	// OutcomePanicked the task panicked and was recovered
	OutcomePanicked
)

// String returns the string representation of TaskOutcome
func (o TaskOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomePanicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// Observer receives pool lifecycle events. Implementations must be safe for
// concurrent use; they are never called with the pool lock held.
type Observer interface {
	// TaskSubmitted is called after a task was queued; queueLen is the depth after the push
	TaskSubmitted(queueLen int)

	// TaskRejected is called when a submission is refused
	TaskRejected(err error)

	// TaskStarted is called when a worker dequeues a task; wait is the time spent queued
	TaskStarted(workerID int, wait time.Duration, queueLen int)

	// TaskFinished is called once a task body returned or panicked
	TaskFinished(workerID int, elapsed time.Duration, outcome TaskOutcome)

	// TasksDiscarded is called when an immediate shutdown drops queued tasks
	TasksDiscarded(n int)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) TaskSubmitted(int) {}
func (NopObserver) TaskRejected(error) {}
func (NopObserver) TaskStarted(int, time.Duration, int) {}
func (NopObserver) TaskFinished(int, time.Duration, TaskOutcome) {}
func (NopObserver) TasksDiscarded(int) {}

// PoolStats defines basic statistics for the thread pool
type PoolStats struct {
	// PoolSize is the fixed number of workers
	PoolSize int

	// BusyWorkers is the number of workers currently executing a task
	BusyWorkers int

	// QueueLength is the number of tasks waiting to be dequeued
	QueueLength int

	// Submitted is the total number of accepted tasks
	Submitted int64

	// Completed is the total number of tasks that returned without error
	Completed int64

	// Failed is the total number of tasks that returned an error
	Failed int64

	// Panicked is the total number of tasks that panicked
	Panicked int64

	// Rejected is the total number of refused submissions
	Rejected int64

	// Discarded is the total number of queued tasks dropped by shutdown
	Discarded int64
}

// Finished returns the number of tasks that ran to an outcome
func (s PoolStats) Finished() int64 {
	return s.Completed + s.Failed + s.Panicked
}

// ThreadPool defines the fixed-size pool interface
type ThreadPool interface {
	// Enqueue submits a fire-and-forget task
	Enqueue(fn func()) error

	// Stop signals shutdown and joins every worker
	Stop() error

	// Shutdown is Stop bounded by ctx
	Shutdown(ctx context.Context) error

	// Close stops the pool if needed; safe to call repeatedly
	Close() error

	// Size returns the number of workers
	Size() int

	// Stats returns pool statistics
	Stats() PoolStats
}

// ErrorHandler receives failures of fire-and-forget tasks; returning nil
// marks the failure as handled
type ErrorHandler func(error) error
