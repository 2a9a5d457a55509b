package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/xstack/pkg/ports"
)

// StackOption configures a Stack.
type StackOption func(*Stack)

// WithName labels the stack in events and logs.
func WithName(name string) StackOption {
	return func(s *Stack) {
		s.name = name
	}
}

// WithResolver sets the collaborator used by PushID.
func WithResolver(r ports.Resolver) StackOption {
	return func(s *Stack) {
		s.resolver = r
	}
}

// WithBus sets the bus lifecycle events are published on.
func WithBus(b ports.Bus) StackOption {
	return func(s *Stack) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) StackOption {
	return func(s *Stack) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRollback enables or disables the rollback pass after a forward failure.
// When disabled a failed run ends in domain.StackFailed.
func WithRollback(enabled bool) StackOption {
	return func(s *Stack) {
		s.rollback = enabled
	}
}

// WithResultCapture controls whether successful results are stored in the
// Execution Context under domain.ResultKey(name).
func WithResultCapture(enabled bool) StackOption {
	return func(s *Stack) {
		s.captureResults = enabled
	}
}

// WithRunIDGenerator overrides how run identifiers are produced.
func WithRunIDGenerator(gen func() string) StackOption {
	return func(s *Stack) {
		if gen != nil {
			s.newRunID = gen
		}
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) StackOption {
	return func(s *Stack) {
		if now != nil {
			s.now = now
		}
	}
}
