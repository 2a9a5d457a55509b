package domain

import (
	"encoding/json"
	"time"
)

// EventType names a lifecycle signal.
type EventType string

const (
	EventStackStarted         EventType = "stack_started"
	EventProcessStarted       EventType = "process_started"
	EventProcessSucceeded     EventType = "process_succeeded"
	EventProcessFailed        EventType = "process_failed"
	EventProcessRolledBack    EventType = "process_rolled_back"
	EventProcessRollbackError EventType = "process_rollback_error"
	EventStackCompleted       EventType = "stack_completed"
	EventStackRolledBack      EventType = "stack_rolled_back"
	EventStackFailed          EventType = "stack_failed"

	// EventSignalDispatchError is published by a bus when a subscriber fails.
	EventSignalDispatchError EventType = "signal_dispatch_error"

	// EventAny subscribes to every event.
	EventAny EventType = "*"
)

// Event is a lifecycle signal published by a stack.
// Fields that do not apply to a given event type are left zero.
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	Stack     string

	// ProcessName and Index identify the process for process_* events.
	ProcessName string
	Index       int

	// Result is set on process_succeeded.
	Result any

	// Cause is set on process_failed, process_rollback_error, stack_rolled_back,
	// stack_failed and signal_dispatch_error.
	Cause error

	// Source names the event whose dispatch failed (signal_dispatch_error only).
	Source EventType

	// Context references the run's Execution Context. It is not a copy.
	Context *ExecutionContext
}

// ResultOrCause returns the cause when set, the result otherwise.
func (e Event) ResultOrCause() any {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Result
}

type eventJSON struct {
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	RunID       string         `json:"run_id,omitempty"`
	Stack       string         `json:"stack,omitempty"`
	ProcessName string         `json:"process_name,omitempty"`
	Index       *int           `json:"index,omitempty"`
	Result      any            `json:"result,omitempty"`
	Cause       string         `json:"cause,omitempty"`
	Source      EventType      `json:"source,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// MarshalJSON flattens the cause to its message and the context to a snapshot.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Type:        e.Type,
		Timestamp:   e.Timestamp,
		RunID:       e.RunID,
		Stack:       e.Stack,
		ProcessName: e.ProcessName,
		Result:      e.Result,
		Source:      e.Source,
	}
	if e.ProcessName != "" {
		idx := e.Index
		out.Index = &idx
	}
	if e.Cause != nil {
		out.Cause = e.Cause.Error()
	}
	if e.Context != nil {
		out.Context = e.Context.Snapshot()
	}
	return json.Marshal(out)
}
