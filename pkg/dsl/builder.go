package dsl

import (
	"fmt"

	"github.com/aretw0/xstack/pkg/manifest"
)

// Builder manages the manifest construction.
type Builder struct {
	m     manifest.Manifest
	steps []*StepBuilder
}

// New creates a new manifest builder for a stack called name.
func New(name string) *Builder {
	return &Builder{m: manifest.Manifest{Name: name}}
}

// Rollback enables or disables compensation on failure (enabled by default).
func (b *Builder) Rollback(enabled bool) *Builder {
	b.m.Rollback = &enabled
	return b
}

// Context seeds a value into the initial Execution Context.
func (b *Builder) Context(key string, value any) *Builder {
	if b.m.Context == nil {
		b.m.Context = make(map[string]any)
	}
	b.m.Context[key] = value
	return b
}

// Add appends a process resolved by identifier. Steps run in the order they are added.
func (b *Builder) Add(use string) *StepBuilder {
	sb := &StepBuilder{step: manifest.Step{Use: use}, builder: b}
	b.steps = append(b.steps, sb)
	return sb
}

// Build validates and returns the manifest.
func (b *Builder) Build() (*manifest.Manifest, error) {
	m := b.m
	m.Processes = make([]manifest.Step, len(b.steps))
	for i, sb := range b.steps {
		m.Processes[i] = sb.step
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %q: %w", m.Name, err)
	}
	return &m, nil
}

// MustBuild is Build that panics on error.
func (b *Builder) MustBuild() *manifest.Manifest {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}
