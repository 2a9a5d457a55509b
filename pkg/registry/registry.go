package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
)

// Factory constructs a process from its construction arguments.
type Factory func(args map[string]any) (ports.Process, error)

// Entry describes a registered process implementation.
type Entry struct {
	ID          string
	Description string
	Factory     Factory
}

// Registry maps identifiers to process factories.
// It implements ports.Resolver and is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
	}
}

var _ ports.Resolver = (*Registry)(nil)

// Register adds a factory under id.
// Returns an error if the id is empty, the factory is nil or the id already exists.
func (r *Registry) Register(id string, factory Factory) error {
	return r.RegisterEntry(Entry{ID: id, Factory: factory})
}

// RegisterEntry adds a described factory.
func (r *Registry) RegisterEntry(entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("registry: id is required")
	}
	if entry.Factory == nil {
		return fmt.Errorf("registry: factory is required for %s", entry.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("registry: %s already registered", entry.ID)
	}
	r.entries[entry.ID] = entry
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs a fresh process for id. Instances are never cached.
func (r *Registry) Resolve(id string, args map[string]any) (ports.Process, error) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.UnknownProcessError{ID: id}
	}

	proc, err := construct(entry.Factory, args)
	if err != nil {
		return nil, &domain.ProcessConstructionError{ID: id, Err: err}
	}
	if proc == nil {
		return nil, &domain.ProcessConstructionError{ID: id, Err: fmt.Errorf("factory returned no process")}
	}
	if proc.Name() == "" {
		return nil, &domain.ProcessConstructionError{ID: id, Err: fmt.Errorf("process name is empty")}
	}
	return proc, nil
}

func construct(factory Factory, args map[string]any) (proc ports.Process, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			proc, err = nil, &domain.PanicError{Value: rec}
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return factory(args)
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Describe returns the description registered for id.
func (r *Registry) Describe(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry.Description, ok
}

// IDs returns a sorted list of registered identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
