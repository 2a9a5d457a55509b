package xstack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/xstack"
	"github.com/aretw0/xstack/pkg/adapters/memory"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/process"
	"github.com/aretw0/xstack/pkg/registry"
	"github.com/aretw0/xstack/pkg/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_EndToEnd(t *testing.T) {
	reg := registry.NewRegistry()
	reg.MustRegister("reserve", func(args map[string]any) (ports.Process, error) {
		var cfg struct {
			SKU string `mapstructure:"sku"`
		}
		if err := registry.Decode(args, &cfg); err != nil {
			return nil, err
		}
		return process.New("reserve",
			func(ctx context.Context, ec *domain.ExecutionContext) (any, error) {
				ec.Set("reserved", cfg.SKU)
				return cfg.SKU, nil
			},
			func(ctx context.Context, ec *domain.ExecutionContext) error {
				ec.Delete("reserved")
				return nil
			},
		), nil
	})
	reg.MustRegister("charge", func(args map[string]any) (ports.Process, error) {
		return process.New("charge", func(ctx context.Context, ec *domain.ExecutionContext) (any, error) {
			return nil, errors.New("card declined")
		}, nil), nil
	})

	history := memory.NewHistory(0)
	stack := xstack.New(
		xstack.WithName("checkout"),
		xstack.WithResolver(reg),
		xstack.WithRunHistory(history),
	)

	var seen []domain.EventType
	sub := stack.On(domain.EventAny, func(ctx context.Context, e domain.Event) error {
		seen = append(seen, e.Type)
		return nil
	})

	require.NoError(t, stack.PushID("reserve", map[string]any{"sku": "A-1"}))
	require.NoError(t, stack.PushID("charge", nil))
	assert.ErrorIs(t, stack.PushID("ship", nil), domain.ErrUnknownProcess)
	assert.Equal(t, []string{"reserve", "charge"}, stack.Names())

	res, err := stack.RunWith(context.Background(), map[string]any{"customer": "c-9"})
	require.NoError(t, err)

	assert.Equal(t, domain.StackRolledBack, res.Status)
	assert.Equal(t, "charge", res.FailedProcess())
	assert.False(t, res.Context.Has("reserved"))
	assert.Equal(t, "c-9", res.Context.Get("customer", nil))
	assert.Equal(t, domain.EventStackRolledBack, seen[len(seen)-1])
	assert.Same(t, res, stack.LastResult())

	stored, err := history.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.StackRolledBack, stored.Status)

	// Unsubscribed handlers see nothing from the next run.
	stack.Off(sub)
	before := len(seen)
	require.NoError(t, stack.Reset())
	_, err = stack.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, seen, before)
}

func TestStack_SharedBus(t *testing.T) {
	bus := signal.NewBus()
	rec := signal.NewRecorder(bus, 0)

	a := xstack.New(xstack.WithName("a"), xstack.WithBus(bus))
	b := xstack.New(xstack.WithName("b"), xstack.WithBus(bus))
	require.NoError(t, a.Push(process.New("x", nil, nil)))
	require.NoError(t, b.Push(process.New("x", nil, nil)))

	ra, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	rb, err := b.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Same(t, bus, a.Bus())
	assert.Len(t, rec.ForRun(ra.RunID), 4)
	assert.Len(t, rec.ForRun(rb.RunID), 4)
	assert.NotEqual(t, ra.RunID, rb.RunID)
}

func TestStack_Options(t *testing.T) {
	stack := xstack.New(
		xstack.WithRollback(false),
		xstack.WithResultCapture(false),
		xstack.WithRunIDGenerator(func() string { return "fixed" }),
	)
	require.NoError(t, stack.Push(process.New("one", func(ctx context.Context, ec *domain.ExecutionContext) (any, error) {
		return 1, nil
	}, func(ctx context.Context, ec *domain.ExecutionContext) error {
		t.Error("rollback is disabled")
		return nil
	})))
	require.NoError(t, stack.Push(process.New("two", func(ctx context.Context, ec *domain.ExecutionContext) (any, error) {
		return nil, errors.New("boom")
	}, nil)))

	res, err := stack.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.RunID)
	assert.Equal(t, domain.StackFailed, res.Status)
	assert.Equal(t, domain.StackFailed, stack.Status())
	assert.Equal(t, 0, res.Context.Len())
	assert.Equal(t, 2, stack.Len())

	p, err := stack.Pop()
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Nil(t, p)
}

type failingHistory struct{}

func (failingHistory) Save(context.Context, *domain.RunResult) error {
	return errors.New("history down")
}
func (failingHistory) Get(context.Context, string) (*domain.RunResult, error) {
	return nil, ports.ErrRunNotFound
}
func (failingHistory) List(context.Context) ([]string, error) { return nil, nil }

func TestStack_HistoryFailureDoesNotFailRun(t *testing.T) {
	stack := xstack.New(xstack.WithRunHistory(failingHistory{}))
	res, err := stack.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
}
