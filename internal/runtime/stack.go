package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/xstack/internal/logging"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/signal"
	"github.com/google/uuid"
)

// entry is a process held by the stack together with its run-scoped state.
type entry struct {
	proc        ports.Process
	status      domain.ProcessStatus
	result      any
	err         error
	rollbackErr error
}

// Stack is the core execution engine: an ordered sequence of processes run
// front-to-back against one Execution Context, unwound in reverse on failure.
type Stack struct {
	mu      sync.Mutex
	entries []*entry
	status  domain.StackStatus
	ec      *domain.ExecutionContext
	last    *domain.RunResult

	name           string
	resolver       ports.Resolver
	bus            ports.Bus
	logger         *slog.Logger
	rollback       bool
	captureResults bool
	newRunID       func() string
	now            func() time.Time
}

// NewStack creates an idle stack.
func NewStack(opts ...StackOption) *Stack {
	s := &Stack{
		status:         domain.StackIdle,
		logger:         logging.NewNop(),
		rollback:       true,
		captureResults: true,
		newRunID:       uuid.NewString,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = signal.NewBus(signal.WithLogger(s.logger))
	}
	if s.name != "" {
		s.logger = s.logger.With("stack", s.name)
	}
	return s
}

// Bus returns the bus lifecycle events are published on.
func (s *Stack) Bus() ports.Bus {
	return s.bus
}

// Name returns the stack label.
func (s *Stack) Name() string {
	return s.name
}

// Push appends p to the execution order.
// Names must be unique within the stack; pushing is only allowed while idle.
func (s *Stack) Push(p ports.Process) error {
	if p == nil {
		return fmt.Errorf("push: process is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StackIdle {
		return &domain.InvalidStateError{Op: "push", Status: s.status}
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("push: process name is required")
	}
	for _, e := range s.entries {
		if e.proc.Name() == name {
			return &domain.DuplicateProcessNameError{Name: name}
		}
	}
	s.entries = append(s.entries, &entry{proc: p, status: domain.ProcessPending})
	return nil
}

// PushID resolves id through the configured resolver and pushes the result.
// Resolution errors are returned unchanged.
func (s *Stack) PushID(id string, args map[string]any) error {
	if s.resolver == nil {
		return &domain.UnknownProcessError{ID: id}
	}
	// Fail fast on state before paying for construction.
	if st := s.Status(); st != domain.StackIdle {
		return &domain.InvalidStateError{Op: "push", Status: st}
	}
	p, err := s.resolver.Resolve(id, args)
	if err != nil {
		return err
	}
	return s.Push(p)
}

// Pop removes and returns the last pushed process.
func (s *Stack) Pop() (ports.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StackIdle {
		return nil, &domain.InvalidStateError{Op: "pop", Status: s.status}
	}
	if len(s.entries) == 0 {
		return nil, fmt.Errorf("pop: stack is empty")
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last.proc, nil
}

// Reset returns a terminal stack to idle: process statuses go back to pending
// and the previous Execution Context is discarded.
func (s *Stack) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StackRunning {
		return &domain.InvalidStateError{Op: "reset", Status: s.status}
	}
	for _, e := range s.entries {
		*e = entry{proc: e.proc, status: domain.ProcessPending}
	}
	s.status = domain.StackIdle
	s.ec = nil
	s.last = nil
	return nil
}

// Status returns the aggregate stack status.
func (s *Stack) Status() domain.StackStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Len returns the number of pushed processes.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Names returns the process names in execution order.
func (s *Stack) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.proc.Name()
	}
	return names
}

// Processes reports the current state of every process in execution order.
func (s *Stack) Processes() []domain.ProcessReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportsLocked()
}

// Context returns the Execution Context of the current or last run, nil before the first run.
func (s *Stack) Context() *domain.ExecutionContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ec
}

// LastResult returns the result of the last finished run.
func (s *Stack) LastResult() *domain.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Stack) reportsLocked() []domain.ProcessReport {
	out := make([]domain.ProcessReport, len(s.entries))
	for i, e := range s.entries {
		_, compensable := e.proc.(ports.Compensator)
		out[i] = domain.ProcessReport{
			Name:        e.proc.Name(),
			Status:      e.status,
			Result:      e.result,
			Err:         e.err,
			RollbackErr: e.rollbackErr,
			Compensable: compensable,
		}
	}
	return out
}

func (s *Stack) mark(e *entry, status domain.ProcessStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.status = status
}

// Run executes every process in insertion order against ec (a fresh context when nil).
//
// A forward failure is not returned as an error: it triggers the rollback pass and
// is reported through the RunResult (Status, Cause) and the bus. The returned error
// is reserved for misuse, i.e. *domain.InvalidStateError when the stack is not idle.
func (s *Stack) Run(ctx context.Context, ec *domain.ExecutionContext) (*domain.RunResult, error) {
	s.mu.Lock()
	if s.status != domain.StackIdle {
		st := s.status
		s.mu.Unlock()
		return nil, &domain.InvalidStateError{Op: "run", Status: st}
	}
	if ec == nil {
		ec = domain.NewExecutionContext(nil)
	}
	s.status = domain.StackRunning
	s.ec = ec
	entries := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	r := &execution{
		stack:   s,
		id:      s.newRunID(),
		ec:      ec,
		started: s.now(),
	}
	r.logger = s.logger.With("run_id", r.id)

	r.logger.InfoContext(ctx, "stack started", "processes", len(entries))
	r.emit(ctx, domain.Event{Type: domain.EventStackStarted})

	failedAt, cause := r.forward(ctx, entries)

	final := domain.StackCompleted
	terminal := domain.EventStackCompleted
	if cause != nil {
		if s.rollback {
			r.unwind(ctx, entries[:failedAt])
			final = domain.StackRolledBack
			terminal = domain.EventStackRolledBack
		} else {
			r.logger.WarnContext(ctx, "rollback disabled, leaving succeeded processes in place",
				"succeeded", failedAt)
			final = domain.StackFailed
			terminal = domain.EventStackFailed
		}
	}

	s.mu.Lock()
	s.status = final
	result := &domain.RunResult{
		RunID:      r.id,
		Stack:      s.name,
		Status:     final,
		Cause:      cause,
		Context:    ec,
		Processes:  s.reportsLocked(),
		StartedAt:  r.started,
		FinishedAt: s.now(),
	}
	s.last = result
	s.mu.Unlock()

	if cause != nil {
		r.logger.InfoContext(ctx, "stack finished", "status", final, "error", cause, "duration", result.Duration())
	} else {
		r.logger.InfoContext(ctx, "stack finished", "status", final, "duration", result.Duration())
	}
	r.emit(ctx, domain.Event{Type: terminal, Cause: cause})

	return result, nil
}

// execution holds the state of one in-flight run.
type execution struct {
	stack   *Stack
	id      string
	ec      *domain.ExecutionContext
	started time.Time
	logger  *slog.Logger
}

func (r *execution) emit(ctx context.Context, event domain.Event) {
	event.RunID = r.id
	event.Stack = r.stack.name
	event.Context = r.ec
	if event.Timestamp.IsZero() {
		event.Timestamp = r.stack.now()
	}
	r.stack.bus.Emit(ctx, event)
}

// forward runs entries in order. It returns the index of the failed process and
// the failure cause, or (len(entries), nil) when every process succeeded.
func (r *execution) forward(ctx context.Context, entries []*entry) (int, error) {
	s := r.stack
	for i, e := range entries {
		name := e.proc.Name()

		s.mark(e, domain.ProcessRunning)
		r.logger.DebugContext(ctx, "process started", "process", name, "index", i)
		r.emit(ctx, domain.Event{Type: domain.EventProcessStarted, ProcessName: name, Index: i})

		result, err := execute(ctx, e.proc, r.ec)
		if err != nil {
			s.mu.Lock()
			e.status = domain.ProcessFailed
			e.err = err
			s.mu.Unlock()

			r.logger.WarnContext(ctx, "process failed", "process", name, "index", i, "error", err)
			r.emit(ctx, domain.Event{Type: domain.EventProcessFailed, ProcessName: name, Index: i, Cause: err})
			return i, err
		}

		s.mu.Lock()
		e.status = domain.ProcessSucceeded
		e.result = result
		s.mu.Unlock()

		if s.captureResults && result != nil {
			r.ec.Set(domain.ResultKey(name), result)
		}
		r.logger.DebugContext(ctx, "process succeeded", "process", name, "index", i)
		r.emit(ctx, domain.Event{Type: domain.EventProcessSucceeded, ProcessName: name, Index: i, Result: result})
	}
	return len(entries), nil
}

// execute invokes the forward action, converting errors and panics into *domain.ProcessError.
func execute(ctx context.Context, p ports.Process, ec *domain.ExecutionContext) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &domain.ProcessError{Process: p.Name(), Err: &domain.PanicError{Value: rec}}
		}
	}()

	result, err = p.Execute(ctx, ec)
	if err == nil {
		return result, nil
	}
	if pe, ok := err.(*domain.ProcessError); ok {
		return nil, pe
	}
	return nil, &domain.ProcessError{Process: p.Name(), Err: err}
}
