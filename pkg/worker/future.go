package worker

import (
	"context"
	"sync"
)

// Future is the caller-side handle of a value-returning task. It is fulfilled
// exactly once, after the task body completes, is discarded, or panics.
type Future[R any] struct {
	taskID string
	done   chan struct{}
	once   sync.Once
	value  R
	err    error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{
		done: make(chan struct{}),
	}
}

// complete fulfils the future; later calls are ignored
func (f *Future[R]) complete(value R, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Get blocks until the task finished and returns its value or error. A
// panicking task yields a *types.TaskPanicError.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.value, f.err
}

// GetContext is Get bounded by ctx. The task keeps running if ctx expires.
func (f *Future[R]) GetContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the future is fulfilled
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future is fulfilled
func (f *Future[R]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// TaskID returns the ID of the task behind this future
func (f *Future[R]) TaskID() string {
	return f.taskID
}
