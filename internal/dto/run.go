// Package dto holds the wire representations shared by the CLI and HTTP adapters.
package dto

import (
	"errors"
	"time"

	"github.com/aretw0/xstack/pkg/domain"
)

// Run is the JSON view of a domain.RunResult.
type Run struct {
	RunID         string         `json:"run_id"`
	Stack         string         `json:"stack,omitempty"`
	Status        string         `json:"status"`
	Cause         string         `json:"cause,omitempty"`
	FailedProcess string         `json:"failed_process,omitempty"`
	Context       map[string]any `json:"context"`
	Processes     []Process      `json:"processes"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	DurationMS    int64          `json:"duration_ms"`
}

// Process is the JSON view of a domain.ProcessReport.
type Process struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	Compensable   bool   `json:"compensable"`
	Result        any    `json:"result,omitempty"`
	Error         string `json:"error,omitempty"`
	RollbackError string `json:"rollback_error,omitempty"`
}

// ProcessInfo describes a registered process identifier.
type ProcessInfo struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// FromResult converts a run result. The context is captured as a snapshot.
func FromResult(r *domain.RunResult) Run {
	out := Run{
		RunID:         r.RunID,
		Stack:         r.Stack,
		Status:        string(r.Status),
		FailedProcess: r.FailedProcess(),
		Context:       map[string]any{},
		Processes:     make([]Process, len(r.Processes)),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		DurationMS:    r.Duration().Milliseconds(),
	}
	if r.Cause != nil {
		out.Cause = r.Cause.Error()
	}
	if r.Context != nil {
		out.Context = r.Context.Snapshot()
	}
	for i, p := range r.Processes {
		out.Processes[i] = Process{
			Name:          p.Name,
			Status:        string(p.Status),
			Compensable:   p.Compensable,
			Result:        p.Result,
			Error:         errString(p.Err),
			RollbackError: errString(p.RollbackErr),
		}
	}
	return out
}

// ToResult rebuilds a run result from its JSON view.
// Errors come back as plain messages; their wrapped chains are not preserved.
func (r Run) ToResult() *domain.RunResult {
	out := &domain.RunResult{
		RunID:      r.RunID,
		Stack:      r.Stack,
		Status:     domain.StackStatus(r.Status),
		Cause:      errFromString(r.Cause),
		Context:    domain.NewExecutionContext(r.Context),
		Processes:  make([]domain.ProcessReport, len(r.Processes)),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for i, p := range r.Processes {
		out.Processes[i] = domain.ProcessReport{
			Name:        p.Name,
			Status:      domain.ProcessStatus(p.Status),
			Compensable: p.Compensable,
			Result:      p.Result,
			Err:         errFromString(p.Error),
			RollbackErr: errFromString(p.RollbackError),
		}
	}
	return out
}

func errFromString(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
