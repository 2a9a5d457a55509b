package xstack

import (
	"context"
	"log/slog"

	"github.com/aretw0/xstack/internal/logging"
	"github.com/aretw0/xstack/internal/runtime"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/signal"
)

// Stack is the high-level entry point for the xstack library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Stack struct {
	runtime     *runtime.Stack
	bus         ports.Bus
	resolver    ports.Resolver
	history     ports.RunHistory
	logger      *slog.Logger
	runtimeOpts []runtime.StackOption
	Name        string
}

// Option defines a functional option for configuring the Stack.
type Option func(*Stack)

// WithName labels the stack in events, logs and run results.
func WithName(name string) Option {
	return func(s *Stack) {
		s.Name = name
	}
}

// WithResolver injects the process discovery collaborator used by PushID.
func WithResolver(r ports.Resolver) Option {
	return func(s *Stack) {
		s.resolver = r
	}
}

// WithBus injects the signal bus lifecycle events are published on.
// By default each stack owns a private synchronous bus.
func WithBus(b ports.Bus) Option {
	return func(s *Stack) {
		s.bus = b
	}
}

// WithLogger sets a custom structured logger for the stack.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stack) {
		s.logger = logger
	}
}

// WithRunHistory records every finished run into h.
func WithRunHistory(h ports.RunHistory) Option {
	return func(s *Stack) {
		s.history = h
	}
}

// WithRollback enables (default) or disables the rollback pass after a failure.
func WithRollback(enabled bool) Option {
	return func(s *Stack) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithRollback(enabled))
	}
}

// WithResultCapture controls whether process results are copied into the
// Execution Context under domain.ResultKey(name). Enabled by default.
func WithResultCapture(enabled bool) Option {
	return func(s *Stack) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithResultCapture(enabled))
	}
}

// WithRunIDGenerator overrides how run identifiers are produced (UUIDv4 by default).
func WithRunIDGenerator(gen func() string) Option {
	return func(s *Stack) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithRunIDGenerator(gen))
	}
}

// New initializes an idle Stack.
func New(opts ...Option) *Stack {
	s := &Stack{}
	for _, opt := range opts {
		opt(s)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.bus == nil {
		s.bus = signal.NewBus(signal.WithLogger(s.logger))
	}

	runtimeOpts := []runtime.StackOption{
		runtime.WithName(s.Name),
		runtime.WithBus(s.bus),
		runtime.WithLogger(s.logger),
		runtime.WithResolver(s.resolver),
	}
	runtimeOpts = append(runtimeOpts, s.runtimeOpts...)
	s.runtime = runtime.NewStack(runtimeOpts...)

	return s
}

// Push appends a process to the execution order.
// Returns *domain.DuplicateProcessNameError on a name clash and
// *domain.InvalidStateError unless the stack is idle.
func (s *Stack) Push(p ports.Process) error {
	return s.runtime.Push(p)
}

// PushID resolves id with args through the configured resolver and pushes the result.
func (s *Stack) PushID(id string, args map[string]any) error {
	return s.runtime.PushID(id, args)
}

// Pop removes and returns the most recently pushed process.
func (s *Stack) Pop() (ports.Process, error) {
	return s.runtime.Pop()
}

// Run executes the stack. Pass nil to start from an empty Execution Context.
// A process failure is reported in the result, not as an error.
func (s *Stack) Run(ctx context.Context, ec *domain.ExecutionContext) (*domain.RunResult, error) {
	result, err := s.runtime.Run(ctx, ec)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		if herr := s.history.Save(ctx, result); herr != nil {
			s.logger.WarnContext(ctx, "failed to record run", "run_id", result.RunID, "error", herr)
		}
	}
	return result, nil
}

// RunWith is Run seeded with a copy of initial.
func (s *Stack) RunWith(ctx context.Context, initial map[string]any) (*domain.RunResult, error) {
	return s.Run(ctx, domain.NewExecutionContext(initial))
}

// Reset returns a finished stack to idle so it can run again.
func (s *Stack) Reset() error {
	return s.runtime.Reset()
}

// On subscribes handler to a lifecycle event on the stack's bus.
func (s *Stack) On(event domain.EventType, handler ports.Handler) ports.Subscription {
	return s.bus.Subscribe(event, handler)
}

// Off removes a subscription created with On.
func (s *Stack) Off(sub ports.Subscription) {
	s.bus.Unsubscribe(sub)
}

// Bus returns the bus lifecycle events are published on.
func (s *Stack) Bus() ports.Bus {
	return s.bus
}

// Status returns the aggregate stack status.
func (s *Stack) Status() domain.StackStatus {
	return s.runtime.Status()
}

// Len returns the number of pushed processes.
func (s *Stack) Len() int {
	return s.runtime.Len()
}

// Names returns the process names in execution order.
func (s *Stack) Names() []string {
	return s.runtime.Names()
}

// Processes reports the state of every process in execution order.
func (s *Stack) Processes() []domain.ProcessReport {
	return s.runtime.Processes()
}

// Context returns the Execution Context of the current or last run.
func (s *Stack) Context() *domain.ExecutionContext {
	return s.runtime.Context()
}

// LastResult returns the result of the last finished run.
func (s *Stack) LastResult() *domain.RunResult {
	return s.runtime.LastResult()
}
