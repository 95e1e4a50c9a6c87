// Package errors provides the failure handling strategies used for tasks that
// have no result channel of their own.
package errors

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// FailureHandler handles a task failure, returning the error that remains
// unhandled or nil if the failure was absorbed
type FailureHandler interface {
	// HandleFailure handles the failure
	HandleFailure(ctx context.Context, fc *FailureContext) error

	// Name returns the name of the handler
	Name() string

	// CanHandle determines if it can handle specific type of error
	CanHandle(err error) bool
}

// FailureContext defines context information when a task fails
type FailureContext struct {
	// Error that occurred
	Error error

	// TaskID is the ID of the failing task
	TaskID string

	// WorkerID is the worker that executed the task
	WorkerID int

	// Timestamp when the failure was observed
	Timestamp time.Time

	// Metadata contains additional metadata information
	Metadata map[string]interface{}
}

// NewFailureContext creates a new failure context
func NewFailureContext(err error, taskID string, workerID int) *FailureContext {
	return &FailureContext{
		Error:     err,
		TaskID:    taskID,
		WorkerID:  workerID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// Strategy defines failure handling strategy types
type Strategy int

const (
	// FailFastStrategy leaves the failure unhandled so the caller escalates it
	FailFastStrategy Strategy = iota
	// ContinueOnErrorStrategy logs the failure and continues execution
	ContinueOnErrorStrategy
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case FailFastStrategy:
		return "FailFast"
	case ContinueOnErrorStrategy:
		return "ContinueOnError"
	default:
		return "Unknown"
	}
}

// FailFastHandler returns every failure unchanged
type FailFastHandler struct {
	name string
}

// NewFailFastHandler creates a new fail-fast handler
func NewFailFastHandler() *FailFastHandler {
	return &FailFastHandler{
		name: FailFastStrategy.String(),
	}
}

// HandleFailure implements the FailureHandler interface
func (h *FailFastHandler) HandleFailure(ctx context.Context, fc *FailureContext) error {
	return fc.Error
}

// Name returns the handler name
func (h *FailFastHandler) Name() string {
	return h.name
}

// CanHandle reports true for every error
func (h *FailFastHandler) CanHandle(err error) bool {
	return true
}

// ContinueOnErrorHandler logs failures and absorbs them
type ContinueOnErrorHandler struct {
	name   string
	logger *slog.Logger
}

// NewContinueOnErrorHandler creates a continue-on-error handler. A nil logger
// disables logging.
func NewContinueOnErrorHandler(logger *slog.Logger) *ContinueOnErrorHandler {
	return &ContinueOnErrorHandler{
		name:   ContinueOnErrorStrategy.String(),
		logger: logger,
	}
}

// HandleFailure implements the FailureHandler interface
func (h *ContinueOnErrorHandler) HandleFailure(ctx context.Context, fc *FailureContext) error {
	if h.logger != nil {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "task failure ignored",
			slog.String("task_id", fc.TaskID),
			slog.Int("worker_id", fc.WorkerID),
			slog.Any("error", fc.Error),
		)
	}
	return nil
}

// Name returns the handler name
func (h *ContinueOnErrorHandler) Name() string {
	return h.name
}

// CanHandle reports true for every error
func (h *ContinueOnErrorHandler) CanHandle(err error) bool {
	return true
}

// FuncHandler adapts a plain func(error) error into a FailureHandler
type FuncHandler struct {
	name string
	fn   func(error) error
}

// NewFuncHandler wraps fn under the given name
func NewFuncHandler(name string, fn func(error) error) *FuncHandler {
	return &FuncHandler{name: name, fn: fn}
}

// HandleFailure implements the FailureHandler interface
func (h *FuncHandler) HandleFailure(ctx context.Context, fc *FailureContext) error {
	if h.fn == nil {
		return fc.Error
	}
	return h.fn(fc.Error)
}

// Name returns the handler name
func (h *FuncHandler) Name() string {
	return h.name
}

// CanHandle reports true for every error
func (h *FuncHandler) CanHandle(err error) bool {
	return true
}

// HandlerRegistry is a registry for failure handlers
type HandlerRegistry struct {
	handlers       map[string]FailureHandler
	typeHandlers   map[reflect.Type]FailureHandler
	defaultHandler FailureHandler
	mu             sync.RWMutex
}

// NewHandlerRegistry creates a registry holding the built-in strategies with
// the given one as default
func NewHandlerRegistry(strategy Strategy, logger *slog.Logger) *HandlerRegistry {
	failFast := NewFailFastHandler()
	continueOnError := NewContinueOnErrorHandler(logger)

	registry := &HandlerRegistry{
		handlers:     make(map[string]FailureHandler),
		typeHandlers: make(map[reflect.Type]FailureHandler),
	}
	registry.handlers[failFast.Name()] = failFast
	registry.handlers[continueOnError.Name()] = continueOnError

	if strategy == ContinueOnErrorStrategy {
		registry.defaultHandler = continueOnError
	} else {
		registry.defaultHandler = failFast
	}

	return registry
}

// RegisterHandler registers a failure handler
func (r *HandlerRegistry) RegisterHandler(handler FailureHandler) error {
	if handler == nil {
		return fmt.Errorf("cannot register nil handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := handler.Name()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler with name %s already exists", name)
	}

	r.handlers[name] = handler
	return nil
}

// SetDefaultHandler sets the default failure handler
func (r *HandlerRegistry) SetDefaultHandler(handler FailureHandler) error {
	if handler == nil {
		return fmt.Errorf("cannot set nil as default handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaultHandler = handler
	return nil
}

// BindErrorTypeToHandler routes errors with the dynamic type of errType to
// the named handler. The handler must be registered first.
func (r *HandlerRegistry) BindErrorTypeToHandler(errType error, handlerName string) error {
	if errType == nil {
		return fmt.Errorf("cannot bind nil error type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handler, exists := r.handlers[handlerName]
	if !exists {
		return fmt.Errorf("handler with name %s not found", handlerName)
	}

	r.typeHandlers[reflect.TypeOf(errType)] = handler
	return nil
}

// GetHandlerForError gets the most suitable handler for an error. The unwrap
// chain is searched outermost first for a bound type; the default handler
// serves everything else.
func (r *HandlerRegistry) GetHandlerForError(err error) FailureHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for e := err; e != nil; e = unwrap(e) {
		if handler, exists := r.typeHandlers[reflect.TypeOf(e)]; exists && handler.CanHandle(err) {
			return handler
		}
	}

	return r.defaultHandler
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// Handle dispatches fc to the handler selected for its error
func (r *HandlerRegistry) Handle(ctx context.Context, fc *FailureContext) error {
	if fc == nil || fc.Error == nil {
		return nil
	}
	return r.GetHandlerForError(fc.Error).HandleFailure(ctx, fc)
}
