package domain_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestExecutionContext_CopiesInitial(t *testing.T) {
	initial := map[string]any{"a": 1}
	ec := domain.NewExecutionContext(initial)

	ec.Set("a", 2)
	ec.Set("b", 3)

	assert.Equal(t, map[string]any{"a": 1}, initial, "the caller's map is untouched")
	assert.Equal(t, 2, ec.Get("a", nil))
}

func TestExecutionContext_GetDefault(t *testing.T) {
	ec := domain.NewExecutionContext(nil)
	assert.Equal(t, "fallback", ec.Get("missing", "fallback"))

	ec.Set("nil-value", nil)
	assert.Nil(t, ec.Get("nil-value", "fallback"), "a stored nil is still a value")
	assert.True(t, ec.Has("nil-value"))

	_, ok := ec.Lookup("missing")
	assert.False(t, ok)
}

func TestExecutionContext_DeleteKeysSnapshot(t *testing.T) {
	ec := domain.NewExecutionContext(map[string]any{"b": 1, "a": 2, "c": 3})
	ec.Delete("c")
	ec.Delete("never-there")

	assert.Equal(t, []string{"a", "b"}, ec.Keys())
	assert.Equal(t, 2, ec.Len())

	snap := ec.Snapshot()
	snap["a"] = 100
	assert.Equal(t, 2, ec.Get("a", nil), "snapshots are detached")
}

func TestExecutionContext_ZeroValueIsUsable(t *testing.T) {
	var ec domain.ExecutionContext
	assert.Equal(t, 0, ec.Len())
	ec.Set("k", "v")
	assert.Equal(t, "v", ec.Get("k", nil))
}

func TestExecutionContext_ConcurrentAccess(t *testing.T) {
	ec := domain.NewExecutionContext(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			ec.Set(key, i)
			_ = ec.Get(key, nil)
			_ = ec.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, ec.Len())
}
