// Package worker provides the fixed-size thread pool implementation
package worker

import (
	"time"

	"github.com/google/uuid"
)

// Task is one unit of deferred work. Once pushed it is owned by the queue,
// then by exactly one worker until it has run.
type Task struct {
	id          string
	fn          func() error
	fail        func(error)
	submittedAt time.Time
}

// newTask creates a task. fail is nil for fire-and-forget tasks; for tasks
// with a future it fulfils the future when the body panics or the task is
// discarded without running.
func newTask(fn func() error, fail func(error), submittedAt time.Time) *Task {
	return &Task{
		id:          uuid.NewString(),
		fn:          fn,
		fail:        fail,
		submittedAt: submittedAt,
	}
}

// detached reports whether nobody waits for the task's outcome
func (t *Task) detached() bool {
	return t.fail == nil
}
