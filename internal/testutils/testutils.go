// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"sync"
	"testing"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every blocking wait in tests
const DefaultTimeout = 5 * time.Second

// FinishedEvent is one recorded TaskFinished call
type FinishedEvent struct {
	WorkerID int
	Elapsed  time.Duration
	Outcome  types.TaskOutcome
}

// StartedEvent is one recorded TaskStarted call
type StartedEvent struct {
	WorkerID int
	Wait     time.Duration
	QueueLen int
}

// RecordingObserver records every observer event for later assertions
type RecordingObserver struct {
	mu        sync.Mutex
	submitted int
	rejected  []error
	started   []StartedEvent
	finished  []FinishedEvent
	discarded int
}

var _ types.Observer = (*RecordingObserver)(nil)

// NewRecordingObserver creates an empty recorder
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) TaskSubmitted(queueLen int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted++
}

func (o *RecordingObserver) TaskRejected(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, err)
}

func (o *RecordingObserver) TaskStarted(workerID int, wait time.Duration, queueLen int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, StartedEvent{WorkerID: workerID, Wait: wait, QueueLen: queueLen})
}

func (o *RecordingObserver) TaskFinished(workerID int, elapsed time.Duration, outcome types.TaskOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, FinishedEvent{WorkerID: workerID, Elapsed: elapsed, Outcome: outcome})
}

func (o *RecordingObserver) TasksDiscarded(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.discarded += n
}

// Submitted returns the number of TaskSubmitted calls
func (o *RecordingObserver) Submitted() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitted
}

// Rejected returns a copy of the rejection errors
func (o *RecordingObserver) Rejected() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.rejected...)
}

// Started returns a copy of the started events
func (o *RecordingObserver) Started() []StartedEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]StartedEvent(nil), o.started...)
}

// Finished returns a copy of the finished events
func (o *RecordingObserver) Finished() []FinishedEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]FinishedEvent(nil), o.finished...)
}

// Discarded returns the total reported by TasksDiscarded
func (o *RecordingObserver) Discarded() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.discarded
}

// RequireClosed fails the test if ch is not closed within timeout
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for channel to close", msgAndArgs...)
	}
}

// RequireReturns runs fn in a goroutine and fails the test if it does not
// return within timeout
func RequireReturns(t testing.TB, timeout time.Duration, fn func(), msgAndArgs ...interface{}) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	RequireClosed(t, done, timeout, msgAndArgs...)
}
