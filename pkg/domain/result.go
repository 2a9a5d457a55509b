package domain

import "time"

// ResultKeyPrefix namespaces process results stored in the Execution Context.
// The result of process "build" is readable under "results.build".
const ResultKeyPrefix = "results."

// ResultKey returns the context key holding the result of the named process.
func ResultKey(processName string) string {
	return ResultKeyPrefix + processName
}

// ProcessReport captures the observable state of one process after (or during) a run.
type ProcessReport struct {
	Name        string        `json:"name"`
	Status      ProcessStatus `json:"status"`
	Result      any           `json:"result,omitempty"`
	Err         error         `json:"-"`
	RollbackErr error         `json:"-"`
	Compensable bool          `json:"compensable"`
}

// RunResult is the outcome of a stack run.
// Forward failures are reported here (Status, Cause) rather than as a returned error.
type RunResult struct {
	RunID      string            `json:"run_id"`
	Stack      string            `json:"stack,omitempty"`
	Status     StackStatus       `json:"status"`
	Cause      error             `json:"-"`
	Context    *ExecutionContext `json:"-"`
	Processes  []ProcessReport   `json:"processes"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Succeeded reports whether every process completed.
func (r *RunResult) Succeeded() bool {
	return r != nil && r.Status == StackCompleted
}

// FailedProcess returns the name of the process whose failure ended the run, if any.
func (r *RunResult) FailedProcess() string {
	if r == nil {
		return ""
	}
	for _, p := range r.Processes {
		if p.Status == ProcessFailed {
			return p.Name
		}
	}
	return ""
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
