package domain

// ProcessStatus defines the lifecycle position of a single process within a stack.
type ProcessStatus string

const (
	ProcessPending    ProcessStatus = "pending"
	ProcessRunning    ProcessStatus = "running"
	ProcessSucceeded  ProcessStatus = "succeeded"
	ProcessFailed     ProcessStatus = "failed"
	ProcessRolledBack ProcessStatus = "rolled_back"
)

// StackStatus defines the aggregate state of a stack.
type StackStatus string

const (
	StackIdle       StackStatus = "idle"        // Accepting pushes, ready to run
	StackRunning    StackStatus = "running"     // Forward execution or rollback in progress
	StackCompleted  StackStatus = "completed"   // Every process succeeded
	StackFailed     StackStatus = "failed"      // A process failed and rollback was disabled
	StackRolledBack StackStatus = "rolled_back" // A process failed and the succeeded prefix was compensated
)

// IsTerminal reports whether a stack in this status must be reset before running again.
func (s StackStatus) IsTerminal() bool {
	switch s {
	case StackCompleted, StackFailed, StackRolledBack:
		return true
	}
	return false
}
