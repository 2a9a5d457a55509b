package ports

import (
	"context"

	"github.com/aretw0/xstack/pkg/domain"
)

// Process is a single pluggable unit of work within a stack.
type Process interface {
	// Name is the stable identifier used in logs, signals and duplicate detection.
	Name() string

	// Execute performs the unit of work against the shared Execution Context.
	// Expected business outcomes belong in the result or the context; an error means
	// the process failed and triggers a rollback of the stack.
	Execute(ctx context.Context, ec *domain.ExecutionContext) (any, error)
}

// Compensator is implemented by processes that can undo their forward action.
// Rollback is best effort: a returned error is reported but never stops the
// rollback of earlier processes.
type Compensator interface {
	Rollback(ctx context.Context, ec *domain.ExecutionContext) error
}
