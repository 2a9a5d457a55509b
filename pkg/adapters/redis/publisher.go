package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Publisher bridges stack lifecycle events from a local bus to Redis pub/sub,
// so observers in other processes can follow runs.
type Publisher struct {
	client     *backend.Client
	prefix     string
	timeout    time.Duration
	journalMax int64
	journalTTL time.Duration

	bus ports.Bus
	sub ports.Subscription
}

type Option func(*Publisher)

// WithPrefix sets the key/channel prefix (default "xstack:").
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithTimeout bounds each Redis round trip.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// WithJournal additionally keeps the last max events of each run in a Redis list
// that expires after ttl (0 = no expiration).
func WithJournal(max int64, ttl time.Duration) Option {
	return func(p *Publisher) {
		p.journalMax = max
		p.journalTTL = ttl
	}
}

// New creates a publisher connected to address.
func New(address, password string, db int, opts ...Option) *Publisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		prefix:  "xstack:",
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client exposes the underlying connection so other adapters can share it.
func (p *Publisher) Client() *backend.Client {
	return p.client
}

// Channel is the pub/sub channel events are published on.
func (p *Publisher) Channel() string {
	return p.prefix + "events"
}

// JournalKey is the list holding the journal of a run.
func (p *Publisher) JournalKey(runID string) string {
	return p.prefix + "run:" + runID
}

// Attach subscribes the publisher to every event on bus.
// Publishing errors surface as signal_dispatch_error on that bus.
func (p *Publisher) Attach(bus ports.Bus) {
	p.Detach()
	p.bus = bus
	p.sub = bus.Subscribe(domain.EventAny, p.Handle)
}

// Detach stops forwarding events.
func (p *Publisher) Detach() {
	if p.bus != nil {
		p.bus.Unsubscribe(p.sub)
		p.bus = nil
	}
}

// Handle publishes a single event. It satisfies ports.Handler.
func (p *Publisher) Handle(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	pipe := p.client.Pipeline()

	// 1. Fan out to live subscribers
	pipe.Publish(ctx, p.Channel(), data)

	// 2. Optional per-run journal (newest first, capped)
	if p.journalMax > 0 && event.RunID != "" {
		key := p.JournalKey(event.RunID)
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, p.journalMax-1)
		if p.journalTTL > 0 {
			pipe.Expire(ctx, key, p.journalTTL)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Journal returns the journaled events of a run as raw JSON, oldest first.
func (p *Publisher) Journal(ctx context.Context, runID string) ([]json.RawMessage, error) {
	vals, err := p.client.LRange(ctx, p.JournalKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	out := make([]json.RawMessage, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		out = append(out, json.RawMessage(vals[i]))
	}
	return out, nil
}

// Close detaches from the bus and closes the redis client.
func (p *Publisher) Close() error {
	p.Detach()
	return p.client.Close()
}
