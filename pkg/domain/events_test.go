package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_MarshalJSON(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	e := domain.Event{
		Type:        domain.EventProcessFailed,
		Timestamp:   ts,
		RunID:       "run-1",
		Stack:       "deploy",
		ProcessName: "ship",
		Index:       0,
		Cause:       errors.New("boom"),
		Context:     domain.NewExecutionContext(map[string]any{"env": "prod"}),
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "process_failed",
		"timestamp": "2026-05-01T12:00:00Z",
		"run_id": "run-1",
		"stack": "deploy",
		"process_name": "ship",
		"index": 0,
		"cause": "boom",
		"context": {"env": "prod"}
	}`, string(data))
}

func TestEvent_MarshalJSON_StackLevelOmitsIndex(t *testing.T) {
	data, err := json.Marshal(domain.Event{Type: domain.EventStackStarted, RunID: "r"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.NotContains(t, out, "index")
	assert.NotContains(t, out, "cause")
	assert.NotContains(t, out, "context")
}

func TestEvent_ResultOrCause(t *testing.T) {
	cause := errors.New("x")
	assert.Equal(t, cause, domain.Event{Cause: cause, Result: 1}.ResultOrCause())
	assert.Equal(t, 1, domain.Event{Result: 1}.ResultOrCause())
}

func TestRunResult_Helpers(t *testing.T) {
	var nilResult *domain.RunResult
	assert.False(t, nilResult.Succeeded())
	assert.Empty(t, nilResult.FailedProcess())
	assert.Zero(t, nilResult.Duration())

	start := time.Now()
	r := &domain.RunResult{
		Status: domain.StackRolledBack,
		Processes: []domain.ProcessReport{
			{Name: "a", Status: domain.ProcessRolledBack},
			{Name: "b", Status: domain.ProcessFailed},
			{Name: "c", Status: domain.ProcessPending},
		},
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}
	assert.False(t, r.Succeeded())
	assert.Equal(t, "b", r.FailedProcess())
	assert.Equal(t, time.Second, r.Duration())
	assert.Equal(t, "results.b", domain.ResultKey("b"))
}
