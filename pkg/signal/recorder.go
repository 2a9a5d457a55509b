package signal

import (
	"context"
	"sync"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
)

// DefaultRecorderCapacity bounds a Recorder created with a non-positive capacity.
const DefaultRecorderCapacity = 1024

// Recorder keeps the most recent events seen on a bus in a ring buffer.
type Recorder struct {
	mu    sync.Mutex
	ring  []domain.Event
	start int
	size  int

	bus ports.Bus
	sub ports.Subscription
}

// NewRecorder subscribes a recorder to every event published on bus.
func NewRecorder(bus ports.Bus, capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	r := &Recorder{
		ring: make([]domain.Event, capacity),
		bus:  bus,
	}
	r.sub = bus.Subscribe(domain.EventAny, r.record)
	return r
}

func (r *Recorder) record(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.ring)
	if r.size < capacity {
		r.ring[(r.start+r.size)%capacity] = event
		r.size++
		return nil
	}

	// Overwrite oldest.
	r.ring[r.start] = event
	r.start = (r.start + 1) % capacity
	return nil
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Event, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.ring[(r.start+i)%len(r.ring)])
	}
	return out
}

// Types returns the recorded event types, oldest first.
func (r *Recorder) Types() []domain.EventType {
	events := r.Events()
	out := make([]domain.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// ForRun returns the recorded events of a single run, oldest first.
func (r *Recorder) ForRun(runID string) []domain.Event {
	var out []domain.Event
	for _, e := range r.Events() {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start, r.size = 0, 0
}

// Close detaches the recorder from its bus.
func (r *Recorder) Close() {
	r.bus.Unsubscribe(r.sub)
}
