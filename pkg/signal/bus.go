package signal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/xstack/internal/logging"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
)

type subscriber struct {
	id      uint64
	event   domain.EventType
	handler ports.Handler
}

// Bus is a synchronous in-memory publish/subscribe channel.
// Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report dispatch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the timestamp source for events emitted without one.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ ports.Bus = (*Bus)(nil)

// Subscribe registers handler for event. Use domain.EventAny to receive everything.
func (b *Bus) Subscribe(event domain.EventType, handler ports.Handler) ports.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, event: event, handler: handler})
	return ports.Subscription{ID: b.nextID, Event: event}
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (b *Bus) Unsubscribe(sub ports.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.ID {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Emit delivers event to the exact-name subscribers, then to wildcard subscribers.
func (b *Bus) Emit(ctx context.Context, event domain.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}

	for _, s := range b.targets(event.Type) {
		if err := b.deliver(ctx, s, event); err != nil {
			b.reportFailure(ctx, event, err)
		}
	}
}

// targets snapshots the matching subscribers so handlers may (un)subscribe while being called.
func (b *Bus) targets(event domain.EventType) []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.event == event {
			out = append(out, s)
		}
	}
	for _, s := range b.subs {
		if s.event == domain.EventAny && event != domain.EventAny {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bus) deliver(ctx context.Context, s subscriber, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PanicError{Value: r}
		}
	}()
	return s.handler(ctx, event)
}

func (b *Bus) reportFailure(ctx context.Context, event domain.Event, cause error) {
	b.logger.ErrorContext(ctx, "signal dispatch failed",
		"event", event.Type,
		"process", event.ProcessName,
		"error", cause,
	)

	// Failures while delivering a failure report are only logged.
	if event.Type == domain.EventSignalDispatchError {
		return
	}

	report := domain.Event{
		Type:        domain.EventSignalDispatchError,
		Timestamp:   b.now(),
		RunID:       event.RunID,
		Stack:       event.Stack,
		ProcessName: event.ProcessName,
		Index:       event.Index,
		Cause:       fmt.Errorf("subscriber for %s failed: %w", event.Type, cause),
		Source:      event.Type,
		Context:     event.Context,
	}
	for _, s := range b.targets(domain.EventSignalDispatchError) {
		if err := b.deliver(ctx, s, report); err != nil {
			b.logger.ErrorContext(ctx, "signal dispatch error report failed",
				"event", event.Type,
				"error", err,
			)
		}
	}
}
