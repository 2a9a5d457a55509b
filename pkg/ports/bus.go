package ports

import (
	"context"

	"github.com/aretw0/xstack/pkg/domain"
)

// Handler receives a published event. A returned error is reported by the bus,
// it never reaches the publisher.
type Handler func(ctx context.Context, event domain.Event) error

// Subscription is the handle returned by Bus.Subscribe.
type Subscription struct {
	ID    uint64
	Event domain.EventType
}

// Bus is the publish/subscribe channel used by stacks to announce lifecycle events.
// Emit is fire-and-forget from the publisher's point of view.
type Bus interface {
	Emit(ctx context.Context, event domain.Event)
	Subscribe(event domain.EventType, handler Handler) Subscription
	Unsubscribe(sub Subscription)
}
