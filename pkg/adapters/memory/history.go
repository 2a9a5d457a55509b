package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
)

// DefaultHistoryCapacity bounds a History created with a non-positive capacity.
const DefaultHistoryCapacity = 256

// History implements ports.RunHistory in memory, evicting the oldest run once full.
// Safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	data     map[string]*domain.RunResult
	order    []string // oldest first
	capacity int
}

// NewHistory creates a new in-memory run history.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		data:     make(map[string]*domain.RunResult),
		capacity: capacity,
	}
}

var _ ports.RunHistory = (*History)(nil)

// Save records a copy of the result.
func (h *History) Save(ctx context.Context, result *domain.RunResult) error {
	if result == nil || result.RunID == "" {
		return fmt.Errorf("memory: run id is required")
	}
	copied := clone(result)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.data[result.RunID]; exists {
		h.remove(result.RunID)
	}
	h.data[result.RunID] = copied
	h.order = append(h.order, result.RunID)

	for len(h.order) > h.capacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.data, oldest)
	}
	return nil
}

// Get retrieves a copy of a recorded run.
func (h *History) Get(ctx context.Context, runID string) (*domain.RunResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result, ok := h.data[runID]
	if !ok {
		return nil, ports.ErrRunNotFound
	}
	return clone(result), nil
}

// List returns the retained run IDs, most recent first.
func (h *History) List(ctx context.Context) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.order))
	for i := len(h.order) - 1; i >= 0; i-- {
		ids = append(ids, h.order[i])
	}
	return ids, nil
}

func (h *History) remove(runID string) {
	for i, id := range h.order {
		if id == runID {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

// clone copies the result so callers can't mutate stored runs by pointer.
// The context is snapshotted: a later run reusing the same context must not
// rewrite history.
func clone(r *domain.RunResult) *domain.RunResult {
	ret := *r
	ret.Processes = append([]domain.ProcessReport(nil), r.Processes...)
	if r.Context != nil {
		ret.Context = domain.NewExecutionContext(r.Context.Snapshot())
	}
	return &ret
}
