// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrPoolClosed indicates the pool no longer accepts tasks
	ErrPoolClosed = errors.New("thread pool is closed")

	// ErrPoolStopped indicates Stop was already called on the pool
	ErrPoolStopped = errors.New("thread pool is already stopped")

	// ErrInvalidConfig indicates the pool configuration failed validation
	ErrInvalidConfig = errors.New("invalid thread pool config")

	// ErrSpawnFailed indicates a worker could not be started
	ErrSpawnFailed = errors.New("failed to spawn worker")

	// ErrNilTask indicates a nil task function was submitted
	ErrNilTask = errors.New("task cannot be nil")

	// ErrTaskDiscarded indicates a queued task was dropped by an immediate shutdown
	ErrTaskDiscarded = errors.New("task discarded by shutdown")

	// ErrTimeout indicates operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// TaskPanicError is delivered in place of a result when a task body panics
type TaskPanicError struct {
	// TaskID identifies the task that panicked
	TaskID string

	// Value is the value passed to panic
	Value interface{}

	// Stack is the goroutine stack captured at recovery
	Stack string

	// Context contains error context information
	Context map[string]interface{}
}

// NewTaskPanicError creates a new panic error
func NewTaskPanicError(taskID string, value interface{}, stack string) *TaskPanicError {
	return &TaskPanicError{
		TaskID:  taskID,
		Value:   value,
		Stack:   stack,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.TaskID, e.Value)
}

// Unwrap returns the panic value when it is itself an error
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// WithContext adds error context
func (e *TaskPanicError) WithContext(key string, value interface{}) *TaskPanicError {
	e.Context[key] = value
	return e
}

// IsTaskPanic reports whether err carries a recovered task panic
func IsTaskPanic(err error) bool {
	var panicErr *TaskPanicError
	return errors.As(err, &panicErr)
}
