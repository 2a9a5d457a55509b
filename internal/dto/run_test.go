package dto_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aretw0/xstack/internal/dto"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestFromResult(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res := &domain.RunResult{
		RunID:   "r1",
		Stack:   "deploy",
		Status:  domain.StackRolledBack,
		Cause:   &domain.ProcessError{Process: "ship", Err: errors.New("boom")},
		Context: domain.NewExecutionContext(map[string]any{"k": "v"}),
		Processes: []domain.ProcessReport{
			{Name: "reserve", Status: domain.ProcessRolledBack, Compensable: true, RollbackErr: errors.New("late")},
			{Name: "ship", Status: domain.ProcessFailed, Err: errors.New("boom")},
		},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}

	view := dto.FromResult(res)

	assert.Equal(t, "rolled_back", view.Status)
	assert.Equal(t, `process "ship" failed: boom`, view.Cause)
	assert.Equal(t, "ship", view.FailedProcess)
	assert.Equal(t, map[string]any{"k": "v"}, view.Context)
	assert.Equal(t, int64(1500), view.DurationMS)
	assert.Equal(t, "late", view.Processes[0].RollbackError)
	assert.Equal(t, "boom", view.Processes[1].Error)
	assert.True(t, view.Processes[0].Compensable)
}

func TestFromResult_NoContext(t *testing.T) {
	view := dto.FromResult(&domain.RunResult{RunID: "r2", Status: domain.StackCompleted})
	assert.NotNil(t, view.Context)
	assert.Empty(t, view.Cause)
	assert.Empty(t, view.Processes)
}

func TestRun_ToResult(t *testing.T) {
	view := dto.Run{
		RunID:   "r2",
		Status:  "rolled_back",
		Cause:   `process "ship" failed: boom`,
		Context: map[string]any{"k": "v"},
		Processes: []dto.Process{
			{Name: "reserve", Status: "rolled_back", Compensable: true, RollbackError: "late"},
			{Name: "ship", Status: "failed", Error: "boom"},
		},
	}

	res := view.ToResult()
	assert.Equal(t, domain.StackRolledBack, res.Status)
	assert.EqualError(t, res.Cause, `process "ship" failed: boom`)
	assert.Equal(t, "v", res.Context.Get("k", nil))
	assert.Equal(t, "ship", res.FailedProcess())
	assert.EqualError(t, res.Processes[0].RollbackErr, "late")
	assert.NoError(t, res.Processes[0].Err)
	assert.Equal(t, domain.ProcessFailed, res.Processes[1].Status)
}
