package worker

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jzx17/threadpool/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultNumThreads is the worker count used by DefaultConfig
	DefaultNumThreads = 4

	// DefaultMaxThreads matches the Go runtime's default OS thread limit
	// (see runtime/debug.SetMaxThreads); every worker blocked in a syscall
	// pins one OS thread.
	DefaultMaxThreads = 10000

	tracerName = "github.com/jzx17/threadpool/pkg/worker"
)

// ShutdownPolicy decides what happens to queued tasks when the pool stops
type ShutdownPolicy int

const (
	// ShutdownDrain executes every queued task before workers terminate
	ShutdownDrain ShutdownPolicy = iota
	// ShutdownImmediate discards queued tasks; in-flight tasks still finish
	ShutdownImmediate
)

// String returns the string representation of ShutdownPolicy
func (sp ShutdownPolicy) String() string {
	switch sp {
	case ShutdownDrain:
		return "drain"
	case ShutdownImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// ParseShutdownPolicy parses "drain" or "immediate"
func ParseShutdownPolicy(s string) (ShutdownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drain":
		return ShutdownDrain, nil
	case "immediate":
		return ShutdownImmediate, nil
	default:
		return 0, fmt.Errorf("%w: unknown shutdown policy %q", types.ErrInvalidConfig, s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (sp *ShutdownPolicy) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseShutdownPolicy(s)
	if err != nil {
		return err
	}
	*sp = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (sp ShutdownPolicy) MarshalYAML() (interface{}, error) {
	return sp.String(), nil
}

// PanicPolicy decides what happens when a fire-and-forget task panics.
// Tasks submitted with a future always receive the panic as an error.
type PanicPolicy int

const (
	// PanicRecover logs the panic, hands it to the failure handler and keeps the worker alive
	PanicRecover PanicPolicy = iota
	// PanicCrash re-raises an unhandled panic on the worker, terminating the process
	PanicCrash
)

// String returns the string representation of PanicPolicy
func (pp PanicPolicy) String() string {
	switch pp {
	case PanicRecover:
		return "recover"
	case PanicCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// ParsePanicPolicy parses "recover" or "crash"
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recover":
		return PanicRecover, nil
	case "crash":
		return PanicCrash, nil
	default:
		return 0, fmt.Errorf("%w: unknown panic policy %q", types.ErrInvalidConfig, s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (pp *PanicPolicy) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParsePanicPolicy(s)
	if err != nil {
		return err
	}
	*pp = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (pp PanicPolicy) MarshalYAML() (interface{}, error) {
	return pp.String(), nil
}

// ErrorRoute sends fire-and-forget failures to Handler when their error chain
// holds an error with the same dynamic type as ErrorType, for example the
// error value a task panicked with. Routes take precedence over ErrorHandler.
type ErrorRoute struct {
	// Name identifies the route in logs; must be unique
	Name string

	// ErrorType is a sample value of the error type to match
	ErrorType error

	// Handler returns nil to absorb the failure
	Handler types.ErrorHandler
}

// Config defines configuration for the thread pool
type Config struct {
	// NumThreads is the fixed number of workers
	NumThreads int `yaml:"num_threads"`

	// MaxThreads is the largest NumThreads the pool agrees to spawn
	MaxThreads int `yaml:"max_threads"`

	// ShutdownPolicy decides whether queued tasks run on shutdown
	ShutdownPolicy ShutdownPolicy `yaml:"shutdown_policy"`

	// PanicPolicy decides how fire-and-forget panics are treated
	PanicPolicy PanicPolicy `yaml:"panic_policy"`

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock `yaml:"-"`

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger `yaml:"-"`

	// Observer receives lifecycle events (optional)
	Observer types.Observer `yaml:"-"`

	// Tracer starts one span per executed task (optional, defaults to the global provider)
	Tracer trace.Tracer `yaml:"-"`

	// ErrorHandler sees fire-and-forget failures first; returning nil absorbs them
	ErrorHandler types.ErrorHandler `yaml:"-"`

	// ErrorRoutes dispatch fire-and-forget failures by error type (optional)
	ErrorRoutes []ErrorRoute `yaml:"-"`

	// spawn starts a worker goroutine; replaced in tests to inject failures
	spawn func(w *Worker) error
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		NumThreads:     DefaultNumThreads,
		MaxThreads:     DefaultMaxThreads,
		ShutdownPolicy: ShutdownDrain,
		PanicPolicy:    PanicRecover,
		Clock:          types.NewRealClock(),
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.NumThreads <= 0 {
		return fmt.Errorf("%w: num threads must be positive, got %d", types.ErrInvalidConfig, c.NumThreads)
	}
	if c.MaxThreads < 0 {
		return fmt.Errorf("%w: max threads must not be negative, got %d", types.ErrInvalidConfig, c.MaxThreads)
	}
	maxThreads := c.MaxThreads
	if maxThreads == 0 {
		maxThreads = DefaultMaxThreads
	}
	if c.NumThreads > maxThreads {
		return fmt.Errorf("%w: %d workers requested, limit is %d", types.ErrSpawnFailed, c.NumThreads, maxThreads)
	}
	if c.ShutdownPolicy != ShutdownDrain && c.ShutdownPolicy != ShutdownImmediate {
		return fmt.Errorf("%w: unknown shutdown policy %d", types.ErrInvalidConfig, c.ShutdownPolicy)
	}
	if c.PanicPolicy != PanicRecover && c.PanicPolicy != PanicCrash {
		return fmt.Errorf("%w: unknown panic policy %d", types.ErrInvalidConfig, c.PanicPolicy)
	}
	for i, route := range c.ErrorRoutes {
		switch {
		case route.Name == "":
			return fmt.Errorf("%w: error route %d has no name", types.ErrInvalidConfig, i)
		case route.ErrorType == nil:
			return fmt.Errorf("%w: error route %q has no error type", types.ErrInvalidConfig, route.Name)
		case route.Handler == nil:
			return fmt.Errorf("%w: error route %q has no handler", types.ErrInvalidConfig, route.Name)
		}
	}
	return nil
}

// withDefaults returns a copy with every optional field populated
func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.MaxThreads == 0 {
		cfg.MaxThreads = DefaultMaxThreads
	}
	if cfg.Clock == nil {
		cfg.Clock = types.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = types.NopObserver{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if cfg.spawn == nil {
		cfg.spawn = func(w *Worker) error {
			go w.run()
			return nil
		}
	}
	return &cfg
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread pool config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}
