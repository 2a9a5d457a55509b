package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestErrors_Sentinels(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{"process", &domain.ProcessError{Process: "build", Err: cause}, domain.ErrProcessFailed, `process "build" failed: disk full`},
		{"unknown", &domain.UnknownProcessError{ID: "teleport"}, domain.ErrUnknownProcess, "teleport"},
		{"construction", &domain.ProcessConstructionError{ID: "exec", Err: cause}, domain.ErrProcessConstruction, "failed to construct process exec: disk full"},
		{"duplicate", &domain.DuplicateProcessNameError{Name: "a"}, domain.ErrDuplicateProcessName, `"a"`},
		{"state", &domain.InvalidStateError{Op: "push", Status: domain.StackRunning}, domain.ErrInvalidState, "running"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Contains(t, tt.err.Error(), tt.message)
		})
	}
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("root")
	assert.ErrorIs(t, &domain.ProcessError{Process: "p", Err: cause}, cause)
	assert.ErrorIs(t, &domain.ProcessConstructionError{ID: "p", Err: cause}, cause)

	var pe *domain.PanicError
	err := &domain.ProcessError{Process: "p", Err: &domain.PanicError{Value: 42}}
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 42, pe.Value)
	assert.Equal(t, "panic: 42", pe.Error())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.StackIdle.IsTerminal())
	assert.False(t, domain.StackRunning.IsTerminal())
	assert.True(t, domain.StackCompleted.IsTerminal())
	assert.True(t, domain.StackFailed.IsTerminal())
	assert.True(t, domain.StackRolledBack.IsTerminal())
}
