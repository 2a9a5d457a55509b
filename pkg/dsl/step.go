package dsl

import "github.com/aretw0/xstack/pkg/manifest"

// StepBuilder provides a fluent API for configuring a step.
// Builder methods are forwarded so that steps can be chained.
type StepBuilder struct {
	step    manifest.Step
	builder *Builder
}

// Named sets the name the process takes in the stack.
func (s *StepBuilder) Named(name string) *StepBuilder {
	s.step.Name = name
	return s
}

// With sets one construction argument.
func (s *StepBuilder) With(key string, value any) *StepBuilder {
	if s.step.With == nil {
		s.step.With = make(map[string]any)
	}
	s.step.With[key] = value
	return s
}

// Run makes an exec step execute the registered command name.
func (s *StepBuilder) Run(name string) *StepBuilder {
	return s.With("run", name)
}

// UndoRun compensates an exec step with the registered command name.
func (s *StepBuilder) UndoRun(name string) *StepBuilder {
	return s.With("undo", map[string]any{"run": name})
}

// Undo sets an inline compensating command line of an exec step.
// It only resolves when inline execution is enabled.
func (s *StepBuilder) Undo(command string, args ...string) *StepBuilder {
	undo := map[string]any{"command": command}
	if len(args) > 0 {
		undo["args"] = args
	}
	return s.With("undo", undo)
}

// Add starts the next step.
func (s *StepBuilder) Add(use string) *StepBuilder {
	return s.builder.Add(use)
}

// Context seeds a value into the initial Execution Context.
func (s *StepBuilder) Context(key string, value any) *StepBuilder {
	s.builder.Context(key, value)
	return s
}

// Build validates and returns the manifest.
func (s *StepBuilder) Build() (*manifest.Manifest, error) {
	return s.builder.Build()
}

// MustBuild is Build that panics on error.
func (s *StepBuilder) MustBuild() *manifest.Manifest {
	return s.builder.MustBuild()
}
