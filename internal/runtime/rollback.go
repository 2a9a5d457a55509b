package runtime

import (
	"context"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
)

// unwind compensates the succeeded prefix in reverse insertion order.
// It always runs to completion: compensation failures are recorded and
// published as process_rollback_error, never propagated.
func (r *execution) unwind(ctx context.Context, succeeded []*entry) {
	// Compensation must still run when the caller's context is already done.
	ctx = context.WithoutCancel(ctx)
	s := r.stack

	r.logger.InfoContext(ctx, "starting rollback", "processes", len(succeeded))

	for i := len(succeeded) - 1; i >= 0; i-- {
		e := succeeded[i]
		name := e.proc.Name()

		comp, ok := e.proc.(ports.Compensator)
		if !ok {
			// No compensation defined: nothing to undo, but the step still counts as rolled back.
			s.mark(e, domain.ProcessRolledBack)
			r.logger.DebugContext(ctx, "process has no compensation", "process", name, "index", i)
			r.emit(ctx, domain.Event{Type: domain.EventProcessRolledBack, ProcessName: name, Index: i})
			continue
		}

		err := compensate(ctx, comp, r.ec)

		s.mu.Lock()
		e.status = domain.ProcessRolledBack
		e.rollbackErr = err
		s.mu.Unlock()

		if err != nil {
			r.logger.WarnContext(ctx, "rollback failed, continuing", "process", name, "index", i, "error", err)
			r.emit(ctx, domain.Event{Type: domain.EventProcessRollbackError, ProcessName: name, Index: i, Cause: err})
			continue
		}
		r.logger.DebugContext(ctx, "process rolled back", "process", name, "index", i)
		r.emit(ctx, domain.Event{Type: domain.EventProcessRolledBack, ProcessName: name, Index: i})
	}
}

func compensate(ctx context.Context, comp ports.Compensator, ec *domain.ExecutionContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.PanicError{Value: rec}
		}
	}()
	return comp.Rollback(ctx, ec)
}
