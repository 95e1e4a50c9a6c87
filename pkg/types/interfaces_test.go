package types

import (
	"testing"
	"time"
)

func TestTaskOutcome_String(t *testing.T) {
	tests := []struct {
		outcome  TaskOutcome
		expected string
	}{
		{OutcomeSucceeded, "succeeded"},
		{OutcomeFailed, "failed"},
		{OutcomePanicked, "panicked"},
		{TaskOutcome(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.expected {
			t.Errorf("TaskOutcome(%d).String() = %q, want %q", tt.outcome, got, tt.expected)
		}
	}
}

func TestPoolStats_Finished(t *testing.T) {
	stats := PoolStats{
		Submitted: 10,
		Completed: 5,
		Failed:    2,
		Panicked:  1,
		Discarded: 2,
	}

	if got := stats.Finished(); got != 8 {
		t.Errorf("Finished() = %d, want 8", got)
	}
}

func TestNopObserver(t *testing.T) {
	var observer Observer = NopObserver{}

	observer.TaskSubmitted(1)
	observer.TaskRejected(ErrPoolClosed)
	observer.TaskStarted(0, time.Millisecond, 0)
	observer.TaskFinished(0, time.Millisecond, OutcomeSucceeded)
	observer.TasksDiscarded(3)
}

func TestRealClock(t *testing.T) {
	clock := NewRealClock()

	before := time.Now()
	now := clock.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v is before %v", now, before)
	}
	if clock.Since(before) < 0 {
		t.Errorf("Since() returned a negative duration")
	}
}
