package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/xstack"
	"github.com/aretw0/xstack/pkg/adapters/redis"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/process"
	"github.com/aretw0/xstack/pkg/signal"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestPublisher_ForwardsStackEvents(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	publisher := redis.NewFromClient(client, redis.WithPrefix("test:"))

	// Subscribe before running so no message is missed.
	observer := client.Subscribe(ctx, publisher.Channel())
	defer observer.Close()
	_, err := observer.Receive(ctx)
	require.NoError(t, err)
	messages := observer.Channel()

	stack := xstack.New(xstack.WithName("bridge"))
	publisher.Attach(stack.Bus())
	defer publisher.Detach()

	require.NoError(t, stack.Push(process.New("only", nil, nil)))
	res, err := stack.Run(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StackCompleted, res.Status)

	expected := []string{"stack_started", "process_started", "process_succeeded", "stack_completed"}
	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < len(expected) {
		select {
		case msg := <-messages:
			var payload struct {
				Type        string `json:"type"`
				RunID       string `json:"run_id"`
				Stack       string `json:"stack"`
				ProcessName string `json:"process_name"`
			}
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
			assert.Equal(t, res.RunID, payload.RunID)
			assert.Equal(t, "bridge", payload.Stack)
			got = append(got, payload.Type)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", got)
		}
	}
	assert.Equal(t, expected, got)
}

func TestPublisher_Journal(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	publisher := redis.NewFromClient(client, redis.WithJournal(3, time.Minute))
	bus := signal.NewBus()
	publisher.Attach(bus)

	for _, typ := range []domain.EventType{
		domain.EventStackStarted,
		domain.EventProcessStarted,
		domain.EventProcessFailed,
		domain.EventStackRolledBack,
	} {
		bus.Emit(ctx, domain.Event{Type: typ, RunID: "run-1", Cause: errors.New("x")})
	}

	journal, err := publisher.Journal(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, journal, 3, "journal is capped")

	var first struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(journal[0], &first))
	assert.Equal(t, "process_started", first.Type)

	assert.True(t, mr.TTL(publisher.JournalKey("run-1")) > 0)
}

func TestPublisher_FailureIsReportedOnBus(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	publisher := redis.NewFromClient(client, redis.WithTimeout(200*time.Millisecond))
	bus := signal.NewBus()
	rec := signal.NewRecorder(bus, 0)
	publisher.Attach(bus)

	mr.Close() // Redis goes away

	require.NotPanics(t, func() {
		bus.Emit(ctx, domain.Event{Type: domain.EventStackStarted, RunID: "run-2"})
	})
	assert.Contains(t, rec.Types(), domain.EventSignalDispatchError)
}
