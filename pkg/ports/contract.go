package ports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBusContract runs a suite of tests to verify that a Bus implementation
// adheres to the defined interface contract.
func RunBusContract(t *testing.T, bus Bus) {
	ctx := context.Background()

	t.Run("Delivers in subscription order", func(t *testing.T) {
		var got []string
		s1 := bus.Subscribe(domain.EventProcessStarted, func(ctx context.Context, e domain.Event) error {
			got = append(got, "first:"+e.ProcessName)
			return nil
		})
		s2 := bus.Subscribe(domain.EventProcessStarted, func(ctx context.Context, e domain.Event) error {
			got = append(got, "second:"+e.ProcessName)
			return nil
		})
		defer bus.Unsubscribe(s1)
		defer bus.Unsubscribe(s2)

		bus.Emit(ctx, domain.Event{Type: domain.EventProcessStarted, ProcessName: "a"})
		bus.Emit(ctx, domain.Event{Type: domain.EventProcessSucceeded, ProcessName: "a"})

		assert.Equal(t, []string{"first:a", "second:a"}, got)
	})

	t.Run("Unsubscribe stops delivery", func(t *testing.T) {
		count := 0
		sub := bus.Subscribe(domain.EventStackStarted, func(ctx context.Context, e domain.Event) error {
			count++
			return nil
		})
		bus.Emit(ctx, domain.Event{Type: domain.EventStackStarted})
		bus.Unsubscribe(sub)
		bus.Unsubscribe(sub) // idempotent
		bus.Emit(ctx, domain.Event{Type: domain.EventStackStarted})

		assert.Equal(t, 1, count)
	})

	t.Run("Subscriber failure is reported, not propagated", func(t *testing.T) {
		var reports []domain.Event
		var delivered bool

		report := bus.Subscribe(domain.EventSignalDispatchError, func(ctx context.Context, e domain.Event) error {
			reports = append(reports, e)
			return nil
		})
		failing := bus.Subscribe(domain.EventStackCompleted, func(ctx context.Context, e domain.Event) error {
			return errors.New("observer broke")
		})
		panicking := bus.Subscribe(domain.EventStackCompleted, func(ctx context.Context, e domain.Event) error {
			panic("observer exploded")
		})
		healthy := bus.Subscribe(domain.EventStackCompleted, func(ctx context.Context, e domain.Event) error {
			delivered = true
			return nil
		})
		defer func() {
			for _, s := range []Subscription{report, failing, panicking, healthy} {
				bus.Unsubscribe(s)
			}
		}()

		require.NotPanics(t, func() {
			bus.Emit(ctx, domain.Event{Type: domain.EventStackCompleted})
		})

		assert.True(t, delivered, "later subscribers must still be called")
		require.Len(t, reports, 2)
		for _, r := range reports {
			assert.Equal(t, domain.EventStackCompleted, r.Source)
			assert.Error(t, r.Cause)
		}
	})

	t.Run("Wildcard receives every event", func(t *testing.T) {
		var got []domain.EventType
		sub := bus.Subscribe(domain.EventAny, func(ctx context.Context, e domain.Event) error {
			got = append(got, e.Type)
			return nil
		})
		defer bus.Unsubscribe(sub)

		bus.Emit(ctx, domain.Event{Type: domain.EventStackStarted})
		bus.Emit(ctx, domain.Event{Type: domain.EventStackCompleted})

		assert.Equal(t, []domain.EventType{domain.EventStackStarted, domain.EventStackCompleted}, got)
	})
}

// RunHistoryContract runs a suite of tests to verify that a RunHistory implementation
// adheres to the defined interface contract.
func RunHistoryContract(t *testing.T, history RunHistory) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Get", func(t *testing.T) {
		ec := domain.NewExecutionContext(map[string]any{"foo": "bar"})
		result := &domain.RunResult{
			RunID:   runID,
			Status:  domain.StackCompleted,
			Context: ec,
			Processes: []domain.ProcessReport{
				{Name: "a", Status: domain.ProcessSucceeded},
			},
		}

		require.NoError(t, history.Save(ctx, result), "Save should not return error")

		loaded, err := history.Get(ctx, runID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, domain.StackCompleted, loaded.Status)
		require.Len(t, loaded.Processes, 1)
		assert.Equal(t, "a", loaded.Processes[0].Name)
		assert.Equal(t, "bar", loaded.Context.Get("foo", nil))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := history.Get(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("Save without RunID", func(t *testing.T) {
		err := history.Save(ctx, &domain.RunResult{Status: domain.StackCompleted})
		assert.Error(t, err)
	})

	t.Run("List most recent first", func(t *testing.T) {
		id1 := fmt.Sprintf("%s-1", runID)
		id2 := fmt.Sprintf("%s-2", runID)
		require.NoError(t, history.Save(ctx, &domain.RunResult{RunID: id1, Status: domain.StackCompleted}))
		require.NoError(t, history.Save(ctx, &domain.RunResult{RunID: id2, Status: domain.StackRolledBack}))

		ids, err := history.List(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(ids), 2)
		assert.Equal(t, id2, ids[0])
		assert.Equal(t, id1, ids[1])
	})
}
