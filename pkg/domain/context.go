package domain

import (
	"sort"
	"sync"
)

// ExecutionContext is the mutable bag shared by every process of one stack run.
// It is the only channel for a process to hand data to later processes or to the caller.
type ExecutionContext struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewExecutionContext creates a context seeded with a copy of initial.
func NewExecutionContext(initial map[string]any) *ExecutionContext {
	data := make(map[string]any, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return &ExecutionContext{data: data}
}

// Get returns the value stored under key, or def when the key is absent.
func (c *ExecutionContext) Get(key string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.data[key]; ok {
		return v
	}
	return def
}

// Lookup returns the value stored under key and whether it was present.
func (c *ExecutionContext) Lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (c *ExecutionContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
}

// Has reports whether key is present (even with a nil value).
func (c *ExecutionContext) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[key]
	return ok
}

// Delete removes key.
func (c *ExecutionContext) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len returns the number of stored keys.
func (c *ExecutionContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Keys returns the stored keys in lexical order.
func (c *ExecutionContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the stored values.
func (c *ExecutionContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}
