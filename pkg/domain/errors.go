package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrProcessFailed        = errors.New("process failed")
	ErrUnknownProcess       = errors.New("unknown process")
	ErrProcessConstruction  = errors.New("process construction failed")
	ErrDuplicateProcessName = errors.New("duplicate process name")
	ErrInvalidState         = errors.New("invalid stack state")
)

// ProcessError is raised when a process's forward action fails.
type ProcessError struct {
	Process string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process %q failed: %v", e.Process, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

func (e *ProcessError) Is(target error) bool { return target == ErrProcessFailed }

// UnknownProcessError is returned when an identifier has no registered implementation.
type UnknownProcessError struct {
	ID string
}

func (e *UnknownProcessError) Error() string {
	return fmt.Sprintf("unknown process: %s", e.ID)
}

func (e *UnknownProcessError) Is(target error) bool { return target == ErrUnknownProcess }

// ProcessConstructionError is returned when a registered factory fails to build a process.
type ProcessConstructionError struct {
	ID  string
	Err error
}

func (e *ProcessConstructionError) Error() string {
	return fmt.Sprintf("failed to construct process %s: %v", e.ID, e.Err)
}

func (e *ProcessConstructionError) Unwrap() error { return e.Err }

func (e *ProcessConstructionError) Is(target error) bool { return target == ErrProcessConstruction }

// DuplicateProcessNameError is returned when a push would break name uniqueness.
type DuplicateProcessNameError struct {
	Name string
}

func (e *DuplicateProcessNameError) Error() string {
	return fmt.Sprintf("process %q already exists in stack", e.Name)
}

func (e *DuplicateProcessNameError) Is(target error) bool { return target == ErrDuplicateProcessName }

// InvalidStateError is returned when an operation is not allowed in the current stack status.
type InvalidStateError struct {
	Op     string
	Status StackStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: stack is %s", e.Op, e.Status)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// PanicError carries a value recovered from a panicking process or subscriber.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
