package builtin

import (
	"context"
	"errors"
	"sort"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/process"
	"github.com/aretw0/xstack/pkg/registry"
)

type prior struct {
	value   any
	existed bool
}

// contextSet writes a fixed set of values and remembers what it overwrote.
type contextSet struct {
	process.Base
	values map[string]any
	saved  map[string]prior
}

func newContextSet(args map[string]any) (ports.Process, error) {
	var cfg struct {
		Values map[string]any `mapstructure:"values"`
	}
	if err := registry.Decode(args, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Values) == 0 {
		return nil, errors.New("values is required")
	}
	return &contextSet{Base: process.NewBase(ContextSet), values: cfg.Values}, nil
}

func (p *contextSet) keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *contextSet) Execute(_ context.Context, ec *domain.ExecutionContext) (any, error) {
	p.saved = make(map[string]prior, len(p.values))
	for _, k := range p.keys() {
		v, ok := ec.Lookup(k)
		p.saved[k] = prior{value: v, existed: ok}
		ec.Set(k, p.values[k])
	}
	return nil, nil
}

func (p *contextSet) Rollback(_ context.Context, ec *domain.ExecutionContext) error {
	for k, old := range p.saved {
		if old.existed {
			ec.Set(k, old.value)
		} else {
			ec.Delete(k)
		}
	}
	p.saved = nil
	return nil
}
