// Package process provides building blocks for ports.Process implementations.
package process

import (
	"context"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
)

// DoFunc is a forward action.
type DoFunc func(ctx context.Context, ec *domain.ExecutionContext) (any, error)

// UndoFunc is a compensating action.
type UndoFunc func(ctx context.Context, ec *domain.ExecutionContext) error

// Base provides identity for embedding in process implementations.
type Base struct {
	name string
}

// NewBase seeds the helper with a name.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name implements ports.Process.Name.
func (b Base) Name() string {
	return b.name
}

// Func is a process assembled from plain functions.
type Func struct {
	Base
	do DoFunc
}

// Compensable is a Func that also carries an undo action.
type Compensable struct {
	Func
	undo UndoFunc
}

// New builds a process from a forward action and an optional compensating action.
// When undo is nil the returned process does not implement ports.Compensator.
func New(name string, do DoFunc, undo UndoFunc) ports.Process {
	if do == nil {
		do = func(context.Context, *domain.ExecutionContext) (any, error) { return nil, nil }
	}
	f := Func{Base: NewBase(name), do: do}
	if undo == nil {
		return &f
	}
	return &Compensable{Func: f, undo: undo}
}

// Execute implements ports.Process.
func (f *Func) Execute(ctx context.Context, ec *domain.ExecutionContext) (any, error) {
	return f.do(ctx, ec)
}

// Rollback implements ports.Compensator.
func (c *Compensable) Rollback(ctx context.Context, ec *domain.ExecutionContext) error {
	return c.undo(ctx, ec)
}

// IsCompensable reports whether p declares a compensating action.
func IsCompensable(p ports.Process) bool {
	_, ok := p.(ports.Compensator)
	return ok
}

type renamed struct {
	ports.Process
	name string
}

func (r *renamed) Name() string { return r.name }

type renamedCompensable struct {
	*renamed
	comp ports.Compensator
}

func (r *renamedCompensable) Rollback(ctx context.Context, ec *domain.ExecutionContext) error {
	return r.comp.Rollback(ctx, ec)
}

// Named returns p under a different name, preserving its compensating action.
// It lets one implementation appear several times in the same stack.
func Named(name string, p ports.Process) ports.Process {
	if p == nil || name == "" || name == p.Name() {
		return p
	}
	r := &renamed{Process: p, name: name}
	if comp, ok := p.(ports.Compensator); ok {
		return &renamedCompensable{renamed: r, comp: comp}
	}
	return r
}
